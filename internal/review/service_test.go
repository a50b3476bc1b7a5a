package review

import (
	"context"
	"errors"
	"testing"

	"beacon/api/internal/store"
	"beacon/api/internal/textdiff"
)

type fakeStore struct {
	createSuggestionFn  func(context.Context, store.Suggestion) (store.Suggestion, error)
	getSuggestionFn     func(context.Context, int64) (store.Suggestion, error)
	getArticleFn        func(context.Context, int64) (store.Article, error)
	approveSuggestionFn func(context.Context, int64, string, string, store.Article) (store.Suggestion, store.Article, error)
	mergeSuggestionFn   func(context.Context, int64, string, string, store.Article) (store.Suggestion, store.Article, error)
	rejectSuggestionFn  func(context.Context, int64, string, string) (store.Suggestion, error)
}

func (f *fakeStore) CreateSuggestion(ctx context.Context, item store.Suggestion) (store.Suggestion, error) {
	if f.createSuggestionFn != nil {
		return f.createSuggestionFn(ctx, item)
	}
	item.ID = 1
	return item, nil
}

func (f *fakeStore) GetSuggestion(ctx context.Context, id int64) (store.Suggestion, error) {
	if f.getSuggestionFn != nil {
		return f.getSuggestionFn(ctx, id)
	}
	return store.Suggestion{}, store.ErrNotFound
}

func (f *fakeStore) GetArticle(ctx context.Context, id int64) (store.Article, error) {
	if f.getArticleFn != nil {
		return f.getArticleFn(ctx, id)
	}
	return store.Article{}, store.ErrNotFound
}

func (f *fakeStore) ApproveSuggestion(ctx context.Context, id int64, reviewedBy, note string, article store.Article) (store.Suggestion, store.Article, error) {
	if f.approveSuggestionFn != nil {
		return f.approveSuggestionFn(ctx, id, reviewedBy, note, article)
	}
	return store.Suggestion{}, store.Article{}, nil
}

func (f *fakeStore) MergeSuggestion(ctx context.Context, id int64, reviewedBy, note string, article store.Article) (store.Suggestion, store.Article, error) {
	if f.mergeSuggestionFn != nil {
		return f.mergeSuggestionFn(ctx, id, reviewedBy, note, article)
	}
	return store.Suggestion{}, store.Article{}, nil
}

func (f *fakeStore) RejectSuggestion(ctx context.Context, id int64, reviewedBy, reason string) (store.Suggestion, error) {
	if f.rejectSuggestionFn != nil {
		return f.rejectSuggestionFn(ctx, id, reviewedBy, reason)
	}
	return store.Suggestion{}, nil
}

func int64Ptr(v int64) *int64 { return &v }

func TestSubmitDerivesTypeFromSimilarArticle(t *testing.T) {
	var captured store.Suggestion
	fs := &fakeStore{
		createSuggestionFn: func(_ context.Context, item store.Suggestion) (store.Suggestion, error) {
			captured = item
			item.ID = 7
			return item, nil
		},
	}
	svc := NewService(fs)

	_, err := svc.Submit(context.Background(), Candidate{Question: "Q", Answer: "A"})
	if err != nil {
		t.Fatalf("submit new: %v", err)
	}
	if captured.Type != "create" || captured.Status != store.StatusPending {
		t.Fatalf("fresh candidate stored as %s/%s", captured.Type, captured.Status)
	}

	_, err = svc.Submit(context.Background(), Candidate{
		Question:         "Q",
		Answer:           "A",
		SimilarArticleID: int64Ptr(42),
	})
	if err != nil {
		t.Fatalf("submit update: %v", err)
	}
	if captured.Type != store.SuggestionUpdate {
		t.Fatalf("similar-matched candidate stored as type %q", captured.Type)
	}
}

func TestSubmitRejectsEmptyContent(t *testing.T) {
	svc := NewService(&fakeStore{})
	for _, candidate := range []Candidate{
		{Question: "", Answer: "A"},
		{Question: "Q", Answer: "   "},
	} {
		if _, err := svc.Submit(context.Background(), candidate); !errors.Is(err, ErrInvalidCandidate) {
			t.Fatalf("candidate %+v: got %v, want ErrInvalidCandidate", candidate, err)
		}
	}
}

func TestRecordSkipCreatesTerminalSuggestion(t *testing.T) {
	var captured store.Suggestion
	fs := &fakeStore{
		createSuggestionFn: func(_ context.Context, item store.Suggestion) (store.Suggestion, error) {
			captured = item
			return item, nil
		},
	}
	svc := NewService(fs)

	_, err := svc.RecordSkip(context.Background(), Candidate{Question: "Q", Answer: "A"}, "duplicate of existing article")
	if err != nil {
		t.Fatalf("record skip: %v", err)
	}
	if captured.Status != store.StatusSkipped {
		t.Fatalf("skip stored with status %q", captured.Status)
	}
	if captured.SkipReason != "duplicate of existing article" {
		t.Fatalf("skip reason not preserved: %q", captured.SkipReason)
	}
}

func TestApproveNewSuggestionInsertsArticle(t *testing.T) {
	fs := &fakeStore{
		getSuggestionFn: func(context.Context, int64) (store.Suggestion, error) {
			return store.Suggestion{
				ID:              5,
				Type:            store.SuggestionCreate,
				Status:          store.StatusPending,
				Question:        "Como pedir cartão adicional?",
				Answer:          "Pelo aplicativo, em Cartões.",
				ProductStandard: "Cartões",
			}, nil
		},
		approveSuggestionFn: func(_ context.Context, id int64, reviewedBy, _ string, article store.Article) (store.Suggestion, store.Article, error) {
			if article.ID != 0 {
				t.Fatalf("new-type approval must insert, got article id %d", article.ID)
			}
			if article.Question != "Como pedir cartão adicional?" {
				t.Fatalf("article content not taken from suggestion: %q", article.Question)
			}
			article.ID = 100
			return store.Suggestion{ID: id, Status: store.StatusApproved, ReviewedBy: reviewedBy, ArticleID: int64Ptr(100)}, article, nil
		},
	}
	svc := NewService(fs)

	resolved, written, err := svc.Approve(context.Background(), 5, "Ana", "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if resolved.Status != store.StatusApproved || written.ID != 100 {
		t.Fatalf("unexpected result: %+v %+v", resolved, written)
	}
}

func TestApproveUpdateSuggestionOverwritesSimilarArticle(t *testing.T) {
	keywords := "fatura, segunda via"
	fs := &fakeStore{
		getSuggestionFn: func(context.Context, int64) (store.Suggestion, error) {
			return store.Suggestion{
				ID:               6,
				Type:             store.SuggestionUpdate,
				Status:           store.StatusPending,
				Question:         "Como emitir a segunda via?",
				Answer:           "Resposta atualizada.",
				Keywords:         &keywords,
				SimilarArticleID: int64Ptr(42),
			}, nil
		},
		getArticleFn: func(_ context.Context, id int64) (store.Article, error) {
			if id != 42 {
				t.Fatalf("loaded article %d, want similar article 42", id)
			}
			return store.Article{ID: 42, Question: "old", Answer: "old", ProductStandard: "Cartões"}, nil
		},
		approveSuggestionFn: func(_ context.Context, id int64, _, _ string, article store.Article) (store.Suggestion, store.Article, error) {
			if article.ID != 42 {
				t.Fatalf("update-type approval must target article 42, got %d", article.ID)
			}
			if article.Answer != "Resposta atualizada." {
				t.Fatalf("article not overwritten: %q", article.Answer)
			}
			if article.ProductStandard != "Cartões" {
				t.Fatal("existing linkage should survive when the suggestion has none")
			}
			return store.Suggestion{ID: id, Status: store.StatusApproved}, article, nil
		},
	}
	svc := NewService(fs)

	if _, _, err := svc.Approve(context.Background(), 6, "Ana", ""); err != nil {
		t.Fatalf("approve update: %v", err)
	}
}

func TestApprovePropagatesLostSwap(t *testing.T) {
	fs := &fakeStore{
		getSuggestionFn: func(context.Context, int64) (store.Suggestion, error) {
			return store.Suggestion{ID: 5, Type: store.SuggestionCreate, Status: store.StatusPending, Question: "Q", Answer: "A"}, nil
		},
		approveSuggestionFn: func(context.Context, int64, string, string, store.Article) (store.Suggestion, store.Article, error) {
			return store.Suggestion{}, store.Article{}, store.ErrInvalidTransition
		},
	}
	svc := NewService(fs)

	if _, _, err := svc.Approve(context.Background(), 5, "Bruno", ""); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("got %v, want ErrInvalidTransition", err)
	}
}

func TestMergeRequiresCuratedContent(t *testing.T) {
	svc := NewService(&fakeStore{})
	_, _, err := svc.Merge(context.Background(), 5, 42, MergedContent{Question: "", Answer: "A"}, "Ana", "")
	if !errors.Is(err, ErrInvalidCandidate) {
		t.Fatalf("got %v, want ErrInvalidCandidate", err)
	}
}

func TestMergeFoldsContentIntoTarget(t *testing.T) {
	fs := &fakeStore{
		getArticleFn: func(_ context.Context, id int64) (store.Article, error) {
			return store.Article{ID: id, Question: "old", Answer: "old", SubjectID: int64Ptr(9)}, nil
		},
		mergeSuggestionFn: func(_ context.Context, id int64, _, _ string, article store.Article) (store.Suggestion, store.Article, error) {
			if article.ID != 42 || article.Question != "curada" || article.Answer != "resposta curada" {
				t.Fatalf("unexpected merge target: %+v", article)
			}
			if article.SubjectID == nil || *article.SubjectID != 9 {
				t.Fatal("target linkage must survive the merge")
			}
			return store.Suggestion{ID: id, Status: store.StatusMerged, ArticleID: int64Ptr(42)}, article, nil
		},
	}
	svc := NewService(fs)

	resolved, _, err := svc.Merge(context.Background(), 5, 42, MergedContent{Question: "curada", Answer: "resposta curada"}, "Ana", "")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if resolved.Status != store.StatusMerged {
		t.Fatalf("status = %q, want merged", resolved.Status)
	}
}

func TestCompareProducesFieldDiffs(t *testing.T) {
	suggestion := store.Suggestion{Question: "Como emitir a segunda via?", Answer: "Nova resposta"}
	article := store.Article{Question: "Como emitir segunda via?", Answer: "Resposta antiga"}

	diffs := Compare(suggestion, article)

	if len(diffs) != 2 {
		t.Fatalf("expected question and answer diffs, got %d", len(diffs))
	}
	for _, d := range diffs {
		if before := textdiff.Reconstruct(d.Runs, textdiff.Removed); d.Field == "answer" && before != article.Answer {
			t.Fatalf("answer diff does not reconstruct the article side: %q", before)
		}
		if after := textdiff.Reconstruct(d.Runs, textdiff.Added); d.Field == "answer" && after != suggestion.Answer {
			t.Fatalf("answer diff does not reconstruct the suggestion side: %q", after)
		}
	}
}
