package export

import (
	"context"
	"strings"
	"testing"
	"time"
)

type fakeDataStore struct {
	article    ArticleInfo
	suggestion SuggestionInfo
}

func (f *fakeDataStore) GetArticleInfo(context.Context, int64) (ArticleInfo, error) {
	return f.article, nil
}

func (f *fakeDataStore) GetSuggestionInfo(context.Context, int64) (SuggestionInfo, error) {
	return f.suggestion, nil
}

func sampleArticle() ArticleInfo {
	return ArticleInfo{
		ID:                 42,
		Question:           "Como emitir a segunda via da fatura?",
		Answer:             "Acesse o aplicativo e toque em Faturas.",
		Keywords:           "fatura, segunda via",
		ProductStandard:    "Cartões",
		SubproductStandard: "Cartão de Crédito",
		UpdatedBy:          "Ana",
		UpdatedAt:          time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestExportHTMLRendersArticle(t *testing.T) {
	svc := NewService(&fakeDataStore{article: sampleArticle()})

	result, err := svc.Export(context.Background(), Request{ArticleID: 42, Format: FormatHTML})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	html := string(result.Data)
	for _, want := range []string{
		"Como emitir a segunda via da fatura?",
		"Acesse o aplicativo e toque em Faturas.",
		"Cartões &gt; Cartão de Crédito",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered HTML missing %q", want)
		}
	}
	if result.MimeType != "text/html; charset=utf-8" {
		t.Fatalf("unexpected mime type %q", result.MimeType)
	}
	if !strings.HasSuffix(result.Filename, ".html") {
		t.Fatalf("unexpected filename %q", result.Filename)
	}
}

func TestExportHTMLIncludesSuggestionDiff(t *testing.T) {
	svc := NewService(&fakeDataStore{
		article: sampleArticle(),
		suggestion: SuggestionInfo{
			ID:       7,
			Question: "Como emitir a segunda via da fatura?",
			Answer:   "Acesse o aplicativo, toque em Faturas e escolha Segunda via.",
			Status:   "pending",
		},
	})

	result, err := svc.Export(context.Background(), Request{ArticleID: 42, Format: FormatHTML, SuggestionID: 7})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	html := string(result.Data)
	if !strings.Contains(html, "Suggested changes") {
		t.Fatal("diff section missing")
	}
	if !strings.Contains(html, `class="added"`) || !strings.Contains(html, `class="removed"`) {
		t.Fatal("diff runs not rendered with change classes")
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := NewService(&fakeDataStore{article: sampleArticle()})

	if _, err := svc.Export(context.Background(), Request{ArticleID: 42, Format: "docx"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"Como emitir a segunda via?": "Como-emitir-a-segunda-via",
		"":                           "article",
		"///":                        "article",
	}
	for input, want := range cases {
		if got := sanitizeFilename(input); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	got := percentEncodeForDataURL("a b<c>")
	if got != "a%20b%3Cc%3E" {
		t.Fatalf("unexpected encoding %q", got)
	}
}
