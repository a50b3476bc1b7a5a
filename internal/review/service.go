// Package review implements the suggestion lifecycle: machine-generated
// knowledge candidates enter as pending (or skipped, when the generation
// pipeline discards them at birth) and are resolved exactly once by a human
// reviewer into approved, rejected, or merged. All resolved statuses are
// terminal; the store enforces single resolution with a compare-and-swap on
// status, so this service carries the validation and the article mutation
// being resolved into.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"beacon/api/internal/store"
	"beacon/api/internal/textdiff"
)

// ErrInvalidCandidate rejects ingest payloads with no reviewable content.
var ErrInvalidCandidate = errors.New("candidate needs question and answer")

// SuggestionStore defines the storage interface for the lifecycle.
type SuggestionStore interface {
	CreateSuggestion(ctx context.Context, item store.Suggestion) (store.Suggestion, error)
	GetSuggestion(ctx context.Context, id int64) (store.Suggestion, error)
	GetArticle(ctx context.Context, id int64) (store.Article, error)
	ApproveSuggestion(ctx context.Context, id int64, reviewedBy, note string, article store.Article) (store.Suggestion, store.Article, error)
	MergeSuggestion(ctx context.Context, id int64, reviewedBy, note string, article store.Article) (store.Suggestion, store.Article, error)
	RejectSuggestion(ctx context.Context, id int64, reviewedBy, reason string) (store.Suggestion, error)
}

type Service struct {
	store SuggestionStore
}

func NewService(store SuggestionStore) *Service {
	return &Service{store: store}
}

// Candidate is what the generation pipeline submits for review.
type Candidate struct {
	Question           string
	Answer             string
	Keywords           *string
	ProductStandard    string
	SubproductStandard string
	SubjectID          *int64
	IntentID           *int64
	ConfidenceScore    int
	QualityFlags       store.QualityFlags
	SimilarArticleID   *int64
	SimilarityScore    *int
	UpdateReason       string
	RawExtraction      store.RawExtraction
	SourceTicketID     string
}

// Submit records a candidate as a pending suggestion. The type is derived
// here and never changes afterwards: update when the generator matched an
// existing article above its similarity threshold, new otherwise.
func (s *Service) Submit(ctx context.Context, candidate Candidate) (store.Suggestion, error) {
	if strings.TrimSpace(candidate.Question) == "" || strings.TrimSpace(candidate.Answer) == "" {
		return store.Suggestion{}, ErrInvalidCandidate
	}

	suggestionType := store.SuggestionCreate
	if candidate.SimilarArticleID != nil {
		suggestionType = store.SuggestionUpdate
	}

	created, err := s.store.CreateSuggestion(ctx, store.Suggestion{
		Type:               suggestionType,
		Status:             store.StatusPending,
		Question:           candidate.Question,
		Answer:             candidate.Answer,
		Keywords:           candidate.Keywords,
		ProductStandard:    candidate.ProductStandard,
		SubproductStandard: candidate.SubproductStandard,
		SubjectID:          candidate.SubjectID,
		IntentID:           candidate.IntentID,
		ConfidenceScore:    candidate.ConfidenceScore,
		QualityFlags:       candidate.QualityFlags,
		SimilarArticleID:   candidate.SimilarArticleID,
		SimilarityScore:    candidate.SimilarityScore,
		UpdateReason:       candidate.UpdateReason,
		RawExtraction:      candidate.RawExtraction,
		SourceTicketID:     candidate.SourceTicketID,
	})
	if err != nil {
		return store.Suggestion{}, fmt.Errorf("submit candidate: %w", err)
	}
	return created, nil
}

// RecordSkip preserves a candidate the generation pipeline chose not to
// surface. The suggestion is created directly in skipped, which is terminal:
// skipping is never a reviewer action and never reachable from pending.
func (s *Service) RecordSkip(ctx context.Context, candidate Candidate, skipReason string) (store.Suggestion, error) {
	suggestionType := store.SuggestionCreate
	if candidate.SimilarArticleID != nil {
		suggestionType = store.SuggestionUpdate
	}

	created, err := s.store.CreateSuggestion(ctx, store.Suggestion{
		Type:               suggestionType,
		Status:             store.StatusSkipped,
		Question:           candidate.Question,
		Answer:             candidate.Answer,
		Keywords:           candidate.Keywords,
		ProductStandard:    candidate.ProductStandard,
		SubproductStandard: candidate.SubproductStandard,
		SubjectID:          candidate.SubjectID,
		IntentID:           candidate.IntentID,
		ConfidenceScore:    candidate.ConfidenceScore,
		QualityFlags:       candidate.QualityFlags,
		SimilarArticleID:   candidate.SimilarArticleID,
		SimilarityScore:    candidate.SimilarityScore,
		SkipReason:         skipReason,
		RawExtraction:      candidate.RawExtraction,
		SourceTicketID:     candidate.SourceTicketID,
	})
	if err != nil {
		return store.Suggestion{}, fmt.Errorf("record skip: %w", err)
	}
	return created, nil
}

// Approve resolves a pending suggestion into the knowledge base. A new-type
// suggestion becomes a fresh article; an update-type suggestion overwrites
// its similar article's content. Article write and status flip happen in one
// store transaction, so a concurrent reviewer loses cleanly with
// store.ErrInvalidTransition and no article is touched.
func (s *Service) Approve(ctx context.Context, id int64, reviewedBy, note string) (store.Suggestion, store.Article, error) {
	suggestion, err := s.store.GetSuggestion(ctx, id)
	if err != nil {
		return store.Suggestion{}, store.Article{}, fmt.Errorf("load suggestion: %w", err)
	}

	article, err := s.articleMutation(ctx, suggestion)
	if err != nil {
		return store.Suggestion{}, store.Article{}, err
	}

	resolved, written, err := s.store.ApproveSuggestion(ctx, id, reviewedBy, note, article)
	if err != nil {
		return store.Suggestion{}, store.Article{}, fmt.Errorf("approve suggestion: %w", err)
	}
	return resolved, written, nil
}

// Reject resolves a pending suggestion without touching the knowledge base.
func (s *Service) Reject(ctx context.Context, id int64, reviewedBy, reason string) (store.Suggestion, error) {
	resolved, err := s.store.RejectSuggestion(ctx, id, reviewedBy, reason)
	if err != nil {
		return store.Suggestion{}, fmt.Errorf("reject suggestion: %w", err)
	}
	return resolved, nil
}

// MergedContent is the reviewer-curated result of combining a suggestion
// with the target article. Merging never happens automatically.
type MergedContent struct {
	Question string
	Answer   string
	Keywords *string
}

// Merge resolves a pending suggestion by folding reviewer-curated content
// into an existing article, under the same transactional guarantees as
// Approve.
func (s *Service) Merge(ctx context.Context, id, targetArticleID int64, merged MergedContent, reviewedBy, note string) (store.Suggestion, store.Article, error) {
	if strings.TrimSpace(merged.Question) == "" || strings.TrimSpace(merged.Answer) == "" {
		return store.Suggestion{}, store.Article{}, ErrInvalidCandidate
	}

	target, err := s.store.GetArticle(ctx, targetArticleID)
	if err != nil {
		return store.Suggestion{}, store.Article{}, fmt.Errorf("load merge target: %w", err)
	}
	target.Question = merged.Question
	target.Answer = merged.Answer
	if merged.Keywords != nil {
		target.Keywords = merged.Keywords
	}

	resolved, written, err := s.store.MergeSuggestion(ctx, id, reviewedBy, note, target)
	if err != nil {
		return store.Suggestion{}, store.Article{}, fmt.Errorf("merge suggestion: %w", err)
	}
	return resolved, written, nil
}

// articleMutation builds the article write an approval resolves into.
func (s *Service) articleMutation(ctx context.Context, suggestion store.Suggestion) (store.Article, error) {
	if suggestion.Type == store.SuggestionUpdate && suggestion.SimilarArticleID != nil {
		existing, err := s.store.GetArticle(ctx, *suggestion.SimilarArticleID)
		if err != nil {
			return store.Article{}, fmt.Errorf("load similar article: %w", err)
		}
		existing.Question = suggestion.Question
		existing.Answer = suggestion.Answer
		if suggestion.Keywords != nil {
			existing.Keywords = suggestion.Keywords
		}
		if suggestion.ProductStandard != "" {
			existing.ProductStandard = suggestion.ProductStandard
			existing.SubproductStandard = suggestion.SubproductStandard
		}
		if suggestion.SubjectID != nil {
			existing.SubjectID = suggestion.SubjectID
		}
		if suggestion.IntentID != nil {
			existing.IntentID = suggestion.IntentID
		}
		return existing, nil
	}

	return store.Article{
		Question:           suggestion.Question,
		Answer:             suggestion.Answer,
		Keywords:           suggestion.Keywords,
		SubjectID:          suggestion.SubjectID,
		IntentID:           suggestion.IntentID,
		ProductStandard:    suggestion.ProductStandard,
		SubproductStandard: suggestion.SubproductStandard,
	}, nil
}

// FieldDiff is the word-level diff of one reviewable field between a
// suggestion and the article it would replace.
type FieldDiff struct {
	Field string         `json:"field"`
	Runs  []textdiff.Run `json:"runs"`
}

// Compare renders the reviewer-facing diff between an update-type suggestion
// and its similar article. Render only: nothing here mutates state.
func Compare(suggestion store.Suggestion, article store.Article) []FieldDiff {
	diffs := []FieldDiff{
		{Field: "question", Runs: textdiff.Words(article.Question, suggestion.Question)},
		{Field: "answer", Runs: textdiff.Words(article.Answer, suggestion.Answer)},
	}
	before := ""
	if article.Keywords != nil {
		before = *article.Keywords
	}
	after := ""
	if suggestion.Keywords != nil {
		after = *suggestion.Keywords
	}
	if before != "" || after != "" {
		diffs = append(diffs, FieldDiff{Field: "keywords", Runs: textdiff.Words(before, after)})
	}
	return diffs
}
