package history

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestArticleRevisionLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	first := Content{
		Question:        "Como emitir a segunda via da fatura?",
		Answer:          "Acesse o aplicativo e toque em Faturas.",
		ProductStandard: "Cartões",
	}

	rev1, err := svc.RecordRevision(42, first, "Ana", "Approve suggestion 7")
	if err != nil {
		t.Fatalf("RecordRevision() error = %v", err)
	}
	if rev1.Hash == "" {
		t.Fatal("expected commit hash")
	}
	if _, err := os.Stat(filepath.Join(tempDir, "42")); err != nil {
		t.Fatalf("repo directory missing: %v", err)
	}

	second := first
	second.Answer = "Acesse o aplicativo, toque em Faturas e escolha Segunda via."
	rev2, err := svc.RecordRevision(42, second, "Bruno", "Merge suggestion 9")
	if err != nil {
		t.Fatalf("RecordRevision() second error = %v", err)
	}
	if rev2.Hash == rev1.Hash {
		t.Fatal("expected a new revision for changed content")
	}

	revisions, err := svc.History(42, 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(revisions) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(revisions))
	}
	if revisions[0].Hash != rev2.Hash || revisions[0].Author != "Bruno" {
		t.Fatalf("newest revision first, got %+v", revisions[0])
	}

	old, err := svc.ContentAt(42, rev1.Hash)
	if err != nil {
		t.Fatalf("ContentAt() error = %v", err)
	}
	if old.Answer != first.Answer {
		t.Fatalf("revision content mismatch: %q", old.Answer)
	}
}

func TestRecordRevisionIsIdempotentForIdenticalContent(t *testing.T) {
	svc := New(t.TempDir())

	content := Content{Question: "Q", Answer: "A"}
	rev1, err := svc.RecordRevision(7, content, "Ana", "Approve")
	if err != nil {
		t.Fatalf("first RecordRevision() error = %v", err)
	}
	rev2, err := svc.RecordRevision(7, content, "Bruno", "Approve again")
	if err != nil {
		t.Fatalf("second RecordRevision() error = %v", err)
	}
	if rev2.Hash != rev1.Hash {
		t.Fatalf("identical content should not create a new revision: %s vs %s", rev1.Hash, rev2.Hash)
	}

	revisions, err := svc.History(7, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(revisions) != 1 {
		t.Fatalf("expected a single revision, got %d", len(revisions))
	}
}

func TestHistoryForUnknownArticleIsEmpty(t *testing.T) {
	svc := New(t.TempDir())

	revisions, err := svc.History(999, 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(revisions) != 0 {
		t.Fatalf("expected no revisions, got %d", len(revisions))
	}
}

func TestConcurrentRevisions(t *testing.T) {
	svc := New(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			content := Content{Question: "Q", Answer: string(rune('a' + n))}
			if _, err := svc.RecordRevision(1, content, "Ana", "Approve"); err != nil {
				t.Errorf("RecordRevision() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	revisions, err := svc.History(1, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(revisions) == 0 {
		t.Fatal("expected revisions after concurrent writes")
	}
}
