package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"beacon/api/internal/hierarchy"
)

func setupTestCache(t *testing.T) (*HierarchyCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	c, err := New("redis://"+s.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return c, s
}

func sampleSnapshot() Snapshot {
	return Snapshot{
		Nodes: []*hierarchy.Node{
			{
				Name:     "Cartões",
				Level:    hierarchy.LevelProduct,
				FullPath: "Cartões",
				Children: []*hierarchy.Node{
					{
						Name:     "Fatura",
						Level:    hierarchy.LevelSubject,
						FullPath: "Cartões > Fatura",
						Children: []*hierarchy.Node{},
						Articles: []hierarchy.Article{{
							ID:              1,
							Question:        "Como emitir segunda via?",
							Answer:          "Acesse o app e toque em Fatura.",
							SubjectID:       3,
							ProductStandard: "Cartões",
						}},
					},
				},
				Articles: []hierarchy.Article{},
			},
		},
		Report: hierarchy.Report{UnclassifiedArticles: []int64{9}},
	}
}

func TestPutAndGetSnapshot(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	if err := c.Put(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Nodes) != 1 || got.Nodes[0].FullPath != "Cartões" {
		t.Fatalf("unexpected snapshot root: %+v", got.Nodes)
	}
	article := got.Nodes[0].Children[0].Articles[0]
	if article.ID != 1 || article.Answer != "Acesse o app e toque em Fatura." ||
		article.SubjectID != 3 || article.ProductStandard != "Cartões" {
		t.Fatalf("nested article lost fields in round trip: %+v", article)
	}
	if len(got.Report.UnclassifiedArticles) != 1 || got.Report.UnclassifiedArticles[0] != 9 {
		t.Fatalf("report lost in round trip: %+v", got.Report)
	}
}

func TestGetMiss(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	if _, err := c.Get(context.Background()); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
}

func TestInvalidateDropsSnapshot(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	if err := c.Put(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, err := c.Get(ctx); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss after invalidate, got %v", err)
	}
}

func TestSnapshotExpires(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()
	c, err := New("redis://"+s.Addr(), time.Second)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Put(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	s.FastForward(2 * time.Second)

	if _, err := c.Get(ctx); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss after TTL, got %v", err)
	}
}
