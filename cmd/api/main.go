package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"beacon/api/internal/app"
	"beacon/api/internal/archive"
	"beacon/api/internal/cache"
	"beacon/api/internal/config"
	"beacon/api/internal/export"
	"beacon/api/internal/history"
	"beacon/api/internal/review"
	"beacon/api/internal/search"
	"beacon/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		log.Fatalf("failed to create repos dir: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		defer meiliClient.Close()
		go searchService.ReindexAllFromPG(ctx)
	}

	var hierarchyCache *cache.HierarchyCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		hierarchyCache, err = cache.New(cfg.RedisURL, cfg.HierarchyTTL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer hierarchyCache.Close()
		log.Printf("Hierarchy cache enabled (ttl %s)", cfg.HierarchyTTL)
	}

	reviews := review.NewService(dataStore)
	revisions := history.New(cfg.ReposDir)
	exporter := export.NewService(app.NewExportData(dataStore))

	service := app.NewService(cfg, dataStore, reviews, searchService, hierarchyCache, revisions, exporter, nil)
	if strings.TrimSpace(cfg.ArchiveEndpoint) != "" {
		archiver, err := archive.New(ctx, archive.Config{
			Endpoint:  cfg.ArchiveEndpoint,
			AccessKey: cfg.ArchiveAccessKey,
			SecretKey: cfg.ArchiveSecretKey,
			Bucket:    cfg.ArchiveBucket,
			UseSSL:    cfg.ArchiveUseSSL,
		}, dataStore)
		if err != nil {
			log.Fatalf("object storage connection failed: %v", err)
		}
		service = app.NewService(cfg, dataStore, reviews, searchService, hierarchyCache, revisions, exporter, archiver)
		log.Printf("Suggestion archive enabled (bucket %s)", cfg.ArchiveBucket)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Beacon API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
