package app

import (
	"context"

	"beacon/api/internal/export"
	"beacon/api/internal/store"
)

// ExportStore is the slice of the data layer the export renderer reads.
type ExportStore interface {
	GetArticle(ctx context.Context, id int64) (store.Article, error)
	GetSuggestion(ctx context.Context, id int64) (store.Suggestion, error)
}

// ExportData adapts the data layer to the export renderer's view of
// articles and suggestions.
type ExportData struct {
	store ExportStore
}

func NewExportData(st ExportStore) *ExportData {
	return &ExportData{store: st}
}

func (d *ExportData) GetArticleInfo(ctx context.Context, id int64) (export.ArticleInfo, error) {
	article, err := d.store.GetArticle(ctx, id)
	if err != nil {
		return export.ArticleInfo{}, err
	}
	keywords := ""
	if article.Keywords != nil {
		keywords = *article.Keywords
	}
	return export.ArticleInfo{
		ID:                 article.ID,
		Question:           article.Question,
		Answer:             article.Answer,
		Keywords:           keywords,
		ProductStandard:    article.ProductStandard,
		SubproductStandard: article.SubproductStandard,
		UpdatedBy:          article.UpdatedBy,
		UpdatedAt:          article.UpdatedAt,
	}, nil
}

func (d *ExportData) GetSuggestionInfo(ctx context.Context, id int64) (export.SuggestionInfo, error) {
	suggestion, err := d.store.GetSuggestion(ctx, id)
	if err != nil {
		return export.SuggestionInfo{}, err
	}
	return export.SuggestionInfo{
		ID:       suggestion.ID,
		Question: suggestion.Question,
		Answer:   suggestion.Answer,
		Status:   suggestion.Status,
	}, nil
}
