// Package archive pushes terminally-reviewed suggestions to object storage.
// The review tables only need live and recent rows; everything older moves to
// a bucket as JSON, one object per suggestion, and is deleted from Postgres
// once the upload is confirmed.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"beacon/api/internal/store"
)

// Config holds the object-storage connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store is the slice of the data layer the archiver needs.
type Store interface {
	ListArchivableSuggestions(ctx context.Context, before string, limit int) ([]store.Suggestion, error)
	DeleteSuggestion(ctx context.Context, id int64) error
}

// Archiver moves resolved suggestions into a bucket.
type Archiver struct {
	client *minio.Client
	bucket string
	store  Store
}

// New connects to object storage and ensures the bucket exists.
func New(ctx context.Context, cfg Config, st Store) (*Archiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Archiver{client: client, bucket: cfg.Bucket, store: st}, nil
}

// Report summarizes one archive run.
type Report struct {
	Archived int     `json:"archived"`
	Failed   int     `json:"failed"`
	IDs      []int64 `json:"ids"`
}

// Run archives terminally-reviewed suggestions last touched before the
// cutoff, at most limit per run. Rows are deleted only after their object is
// stored; a failed upload leaves the row in place for the next run.
func (a *Archiver) Run(ctx context.Context, before time.Time, limit int) (Report, error) {
	if limit <= 0 {
		limit = 500
	}

	suggestions, err := a.store.ListArchivableSuggestions(ctx, before.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return Report{}, fmt.Errorf("list archivable suggestions: %w", err)
	}

	report := Report{IDs: make([]int64, 0, len(suggestions))}
	for _, suggestion := range suggestions {
		if err := a.upload(ctx, suggestion); err != nil {
			log.Printf("archive: upload suggestion %d: %v", suggestion.ID, err)
			report.Failed++
			continue
		}
		if err := a.store.DeleteSuggestion(ctx, suggestion.ID); err != nil {
			log.Printf("archive: delete suggestion %d after upload: %v", suggestion.ID, err)
			report.Failed++
			continue
		}
		report.Archived++
		report.IDs = append(report.IDs, suggestion.ID)
	}
	return report, nil
}

func (a *Archiver) upload(ctx context.Context, suggestion store.Suggestion) error {
	payload, err := json.MarshalIndent(suggestion, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal suggestion: %w", err)
	}

	key := objectKey(suggestion)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// objectKey partitions the bucket by status and resolution month so old runs
// stay browsable.
func objectKey(suggestion store.Suggestion) string {
	when := suggestion.UpdatedAt
	if suggestion.ReviewedAt != nil {
		when = *suggestion.ReviewedAt
	}
	return fmt.Sprintf("suggestions/%s/%s/%d.json", suggestion.Status, when.UTC().Format("2006-01"), suggestion.ID)
}
