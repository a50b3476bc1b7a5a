package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Exercises the transactional approve path against a real database: the
// winning reviewer gets the article write plus the status flip, the loser
// gets ErrInvalidTransition and writes nothing.
func TestApproveSuggestionCompareAndSwap(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := strings.TrimSpace(os.Getenv("BEACON_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("BEACON_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	s := NewPostgresStore(db)

	suggestion, err := s.CreateSuggestion(ctx, Suggestion{
		Type:            SuggestionCreate,
		Status:          StatusPending,
		Question:        "Como emitir a segunda via da fatura?",
		Answer:          "Acesse o aplicativo e toque em Faturas.",
		ProductStandard: "Cartões",
	})
	if err != nil {
		t.Fatalf("create suggestion: %v", err)
	}
	defer func() { _ = s.DeleteSuggestion(context.Background(), suggestion.ID) }()

	article := Article{
		Question:        suggestion.Question,
		Answer:          suggestion.Answer,
		ProductStandard: suggestion.ProductStandard,
	}

	approved, written, err := s.ApproveSuggestion(ctx, suggestion.ID, "Ana", "", article)
	if err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if approved.Status != StatusApproved {
		t.Fatalf("status = %q, want approved", approved.Status)
	}
	if approved.ArticleID == nil || *approved.ArticleID != written.ID {
		t.Fatalf("approved suggestion should point at the written article")
	}

	countBefore := countArticles(ctx, t, s)

	_, _, err = s.ApproveSuggestion(ctx, suggestion.ID, "Bruno", "", article)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second approve should lose the swap, got %v", err)
	}

	if countAfter := countArticles(ctx, t, s); countAfter != countBefore {
		t.Fatalf("losing approve must not write an article: %d -> %d", countBefore, countAfter)
	}

	_, err = s.RejectSuggestion(ctx, suggestion.ID, "Bruno", "duplicada")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("reject after approve should fail the swap, got %v", err)
	}

	pending, err := s.CreateSuggestion(ctx, Suggestion{
		Type:     SuggestionCreate,
		Status:   StatusPending,
		Question: "Como bloquear o cartão?",
		Answer:   "Acesse o aplicativo e toque em Bloquear.",
	})
	if err != nil {
		t.Fatalf("create second suggestion: %v", err)
	}
	defer func() { _ = s.DeleteSuggestion(context.Background(), pending.ID) }()

	rejected, err := s.RejectSuggestion(ctx, pending.ID, "Bruno", "conteúdo duplicado")
	if err != nil {
		t.Fatalf("reject pending: %v", err)
	}
	if rejected.Status != StatusRejected || rejected.RejectionReason != "conteúdo duplicado" {
		t.Fatalf("rejected as %q with reason %q", rejected.Status, rejected.RejectionReason)
	}
}

func countArticles(ctx context.Context, t *testing.T, s *PostgresStore) int {
	t.Helper()
	var count int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_base`).Scan(&count); err != nil {
		t.Fatalf("count articles: %v", err)
	}
	return count
}
