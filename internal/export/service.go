package export

import (
	"context"
	"fmt"
	"strings"

	"beacon/api/internal/textdiff"
)

// DataStore defines the interface for data access
type DataStore interface {
	GetArticleInfo(ctx context.Context, id int64) (ArticleInfo, error)
	GetSuggestionInfo(ctx context.Context, id int64) (SuggestionInfo, error)
}

// Service provides article export functionality
type Service struct {
	store DataStore
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	article, err := s.store.GetArticleInfo(ctx, req.ArticleID)
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}

	data := TemplateData{
		Question:   article.Question,
		Answer:     article.Answer,
		Keywords:   article.Keywords,
		Breadcrumb: breadcrumb(article),
		UpdatedBy:  article.UpdatedBy,
		UpdatedAt:  article.UpdatedAt,
		Diffs:      []TemplateDiff{},
	}

	if req.SuggestionID != 0 {
		suggestion, err := s.store.GetSuggestionInfo(ctx, req.SuggestionID)
		if err != nil {
			return nil, fmt.Errorf("get suggestion: %w", err)
		}
		data.SuggestionStatus = suggestion.Status
		data.Diffs = []TemplateDiff{
			{Field: "question", Runs: textdiff.Words(article.Question, suggestion.Question)},
			{Field: "answer", Runs: textdiff.Words(article.Answer, suggestion.Answer)},
		}
	}

	html, err := RenderArticleHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(article.Question) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(html, article.Question)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}

func breadcrumb(article ArticleInfo) string {
	parts := make([]string, 0, 2)
	if article.ProductStandard != "" {
		parts = append(parts, article.ProductStandard)
	}
	if article.SubproductStandard != "" {
		parts = append(parts, article.SubproductStandard)
	}
	return strings.Join(parts, " > ")
}
