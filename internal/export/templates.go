package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"

	"beacon/api/internal/textdiff"
)

//go:embed templates/*.html
var templateFS embed.FS

var articleTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/article.html")
	if err != nil {
		// Fallback to built-in template if file not found
		articleTemplate = template.Must(template.New("article").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	articleTemplate = template.Must(template.New("article").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for article template rendering
type TemplateData struct {
	Question         string
	Answer           string
	Keywords         string
	Breadcrumb       string
	UpdatedBy        string
	UpdatedAt        time.Time
	SuggestionStatus string
	Diffs            []TemplateDiff
}

// TemplateDiff holds one field's diff runs for the template
type TemplateDiff struct {
	Field string
	Runs  []textdiff.Run
}

// RenderArticleHTML renders the article template with provided data
func RenderArticleHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := articleTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Question}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .diff { background: #f5f5f5; padding: 1rem; margin: 1rem 0; border-left: 3px solid #333; }
    .added { background: #d4f7d4; }
    .removed { background: #f7d4d4; text-decoration: line-through; }
  </style>
</head>
<body>
  <h1>{{.Question}}</h1>
  {{if .Breadcrumb}}<div class="meta">{{.Breadcrumb}}</div>{{end}}
  <div class="meta">{{.UpdatedBy}} | {{.UpdatedAt.Format "Jan 2, 2006"}}</div>
  <div>{{.Answer}}</div>
  {{if .Keywords}}<p class="meta">{{.Keywords}}</p>{{end}}
  {{if .Diffs}}
  <h2>Suggested changes{{if .SuggestionStatus}} ({{.SuggestionStatus}}){{end}}</h2>
  {{range .Diffs}}
  <div class="diff">
    <strong>{{.Field}}</strong>
    <p>{{range .Runs}}<span class="{{.Type}}">{{.Value}}</span>{{end}}</p>
  </div>
  {{end}}
  {{end}}
</body>
</html>`
