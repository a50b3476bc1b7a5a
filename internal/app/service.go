package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"beacon/api/internal/archive"
	"beacon/api/internal/cache"
	"beacon/api/internal/config"
	"beacon/api/internal/export"
	"beacon/api/internal/hierarchy"
	"beacon/api/internal/history"
	"beacon/api/internal/match"
	"beacon/api/internal/review"
	"beacon/api/internal/search"
	"beacon/api/internal/store"
)

type dataStore interface {
	ListCatalogProducts(ctx context.Context) ([]store.CatalogProduct, error)
	GetCatalogProduct(ctx context.Context, id int64) (store.CatalogProduct, error)
	CreateCatalogProduct(ctx context.Context, item store.CatalogProduct) (store.CatalogProduct, error)
	UpdateCatalogProduct(ctx context.Context, item store.CatalogProduct) (store.CatalogProduct, error)
	DeleteCatalogProduct(ctx context.Context, id int64) error
	ListSubjects(ctx context.Context, productCatalogID int64) ([]store.Subject, error)
	GetSubject(ctx context.Context, id int64) (store.Subject, error)
	CreateSubject(ctx context.Context, item store.Subject) (store.Subject, error)
	UpdateSubject(ctx context.Context, item store.Subject) (store.Subject, error)
	DeleteSubject(ctx context.Context, id int64) error
	ListIntents(ctx context.Context, subjectID int64) ([]store.Intent, error)
	GetIntent(ctx context.Context, id int64) (store.Intent, error)
	CreateIntent(ctx context.Context, item store.Intent) (store.Intent, error)
	UpdateIntent(ctx context.Context, item store.Intent) (store.Intent, error)
	DeleteIntent(ctx context.Context, id int64) error
	ListArticles(ctx context.Context, filter store.ArticleFilter) ([]store.Article, error)
	GetArticle(ctx context.Context, id int64) (store.Article, error)
	CreateArticle(ctx context.Context, item store.Article) (store.Article, error)
	UpdateArticle(ctx context.Context, item store.Article) (store.Article, error)
	DeactivateArticle(ctx context.Context, id int64, updatedBy string) error
	ListSuggestions(ctx context.Context, filter store.SuggestionFilter) ([]store.Suggestion, error)
	GetSuggestion(ctx context.Context, id int64) (store.Suggestion, error)
	CountSuggestionsByStatus(ctx context.Context) ([]store.StatusCount, error)
	Ping(ctx context.Context) error
}

// reviewService is the suggestion lifecycle surface the facade drives.
type reviewService interface {
	Submit(ctx context.Context, candidate review.Candidate) (store.Suggestion, error)
	RecordSkip(ctx context.Context, candidate review.Candidate, skipReason string) (store.Suggestion, error)
	Approve(ctx context.Context, id int64, reviewedBy, note string) (store.Suggestion, store.Article, error)
	Reject(ctx context.Context, id int64, reviewedBy, reason string) (store.Suggestion, error)
	Merge(ctx context.Context, id, targetArticleID int64, merged review.MergedContent, reviewedBy, note string) (store.Suggestion, store.Article, error)
}

type searchService interface {
	Search(q search.Query) search.Response
	IndexArticle(a search.ArticleRecord)
	IndexSuggestion(sr search.SuggestionRecord)
	DeleteArticle(id int64)
}

type revisionService interface {
	RecordRevision(articleID int64, content history.Content, author, message string) (history.Revision, error)
	History(articleID int64, limit int) ([]history.Revision, error)
	ContentAt(articleID int64, hash string) (history.Content, error)
}

type exportService interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

type archiveService interface {
	Run(ctx context.Context, before time.Time, limit int) (archive.Report, error)
}

type Service struct {
	cfg       config.Config
	store     dataStore
	reviews   reviewService
	search    searchService
	cache     *cache.HierarchyCache
	revisions revisionService
	exporter  exportService
	archiver  archiveService
}

func NewService(cfg config.Config, st dataStore, reviews reviewService, searcher searchService, hierarchyCache *cache.HierarchyCache, revisions revisionService, exporter exportService, archiver archiveService) *Service {
	return &Service{
		cfg:       cfg,
		store:     st,
		reviews:   reviews,
		search:    searcher,
		cache:     hierarchyCache,
		revisions: revisions,
		exporter:  exporter,
		archiver:  archiver,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) IngestToken() string {
	return s.cfg.IngestToken
}

type CatalogProductInput struct {
	ProductName    string   `json:"productName"`
	SubproductName *string  `json:"subproductName"`
	Synonyms       []string `json:"synonyms"`
}

func (s *Service) ListCatalog(ctx context.Context) (map[string]any, error) {
	items, err := s.store.ListCatalogProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	payload := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payload = append(payload, catalogProductPayload(item))
	}
	return map[string]any{"products": payload}, nil
}

func (s *Service) GetCatalogProduct(ctx context.Context, id int64) (map[string]any, error) {
	item, err := s.store.GetCatalogProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return catalogProductPayload(item), nil
}

func (s *Service) CreateCatalogProduct(ctx context.Context, input CatalogProductInput) (map[string]any, error) {
	if input.ProductName == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "productName is required", nil)
	}
	item, err := s.store.CreateCatalogProduct(ctx, store.CatalogProduct{
		ProductName:    input.ProductName,
		SubproductName: input.SubproductName,
		Synonyms:       input.Synonyms,
	})
	if err != nil {
		return nil, fmt.Errorf("create catalog product: %w", err)
	}
	s.invalidateHierarchy(ctx)
	return catalogProductPayload(item), nil
}

func (s *Service) UpdateCatalogProduct(ctx context.Context, id int64, input CatalogProductInput) (map[string]any, error) {
	if input.ProductName == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "productName is required", nil)
	}
	item, err := s.store.UpdateCatalogProduct(ctx, store.CatalogProduct{
		ID:             id,
		ProductName:    input.ProductName,
		SubproductName: input.SubproductName,
		Synonyms:       input.Synonyms,
	})
	if err != nil {
		return nil, err
	}
	s.invalidateHierarchy(ctx)
	return catalogProductPayload(item), nil
}

func (s *Service) DeleteCatalogProduct(ctx context.Context, id int64) error {
	if err := s.store.DeleteCatalogProduct(ctx, id); err != nil {
		return err
	}
	s.invalidateHierarchy(ctx)
	return nil
}

type SubjectInput struct {
	Name             string   `json:"name"`
	ProductCatalogID int64    `json:"productCatalogId"`
	Description      string   `json:"description"`
	Synonyms         []string `json:"synonyms"`
}

func (s *Service) ListSubjects(ctx context.Context, productCatalogID int64) (map[string]any, error) {
	items, err := s.store.ListSubjects(ctx, productCatalogID)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	payload := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payload = append(payload, subjectPayload(item))
	}
	return map[string]any{"subjects": payload}, nil
}

func (s *Service) GetSubject(ctx context.Context, id int64) (map[string]any, error) {
	item, err := s.store.GetSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	return subjectPayload(item), nil
}

func (s *Service) CreateSubject(ctx context.Context, input SubjectInput) (map[string]any, error) {
	if input.Name == "" || input.ProductCatalogID == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name and productCatalogId are required", nil)
	}
	if _, err := s.store.GetCatalogProduct(ctx, input.ProductCatalogID); err != nil {
		return nil, err
	}
	item, err := s.store.CreateSubject(ctx, store.Subject{
		Name:             input.Name,
		ProductCatalogID: input.ProductCatalogID,
		Description:      input.Description,
		Synonyms:         input.Synonyms,
	})
	if err != nil {
		return nil, fmt.Errorf("create subject: %w", err)
	}
	s.invalidateHierarchy(ctx)
	return subjectPayload(item), nil
}

func (s *Service) UpdateSubject(ctx context.Context, id int64, input SubjectInput) (map[string]any, error) {
	if input.Name == "" || input.ProductCatalogID == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name and productCatalogId are required", nil)
	}
	item, err := s.store.UpdateSubject(ctx, store.Subject{
		ID:               id,
		Name:             input.Name,
		ProductCatalogID: input.ProductCatalogID,
		Description:      input.Description,
		Synonyms:         input.Synonyms,
	})
	if err != nil {
		return nil, err
	}
	s.invalidateHierarchy(ctx)
	return subjectPayload(item), nil
}

func (s *Service) DeleteSubject(ctx context.Context, id int64) error {
	if err := s.store.DeleteSubject(ctx, id); err != nil {
		return err
	}
	s.invalidateHierarchy(ctx)
	return nil
}

type IntentInput struct {
	Name        string   `json:"name"`
	SubjectID   int64    `json:"subjectId"`
	Description string   `json:"description"`
	Synonyms    []string `json:"synonyms"`
}

func (s *Service) ListIntents(ctx context.Context, subjectID int64) (map[string]any, error) {
	items, err := s.store.ListIntents(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list intents: %w", err)
	}
	payload := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payload = append(payload, intentPayload(item))
	}
	return map[string]any{"intents": payload}, nil
}

func (s *Service) GetIntent(ctx context.Context, id int64) (map[string]any, error) {
	item, err := s.store.GetIntent(ctx, id)
	if err != nil {
		return nil, err
	}
	return intentPayload(item), nil
}

func (s *Service) CreateIntent(ctx context.Context, input IntentInput) (map[string]any, error) {
	if input.Name == "" || input.SubjectID == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name and subjectId are required", nil)
	}
	if _, err := s.store.GetSubject(ctx, input.SubjectID); err != nil {
		return nil, err
	}
	item, err := s.store.CreateIntent(ctx, store.Intent{
		Name:        input.Name,
		SubjectID:   input.SubjectID,
		Description: input.Description,
		Synonyms:    input.Synonyms,
	})
	if err != nil {
		return nil, fmt.Errorf("create intent: %w", err)
	}
	s.invalidateHierarchy(ctx)
	return intentPayload(item), nil
}

func (s *Service) UpdateIntent(ctx context.Context, id int64, input IntentInput) (map[string]any, error) {
	if input.Name == "" || input.SubjectID == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name and subjectId are required", nil)
	}
	item, err := s.store.UpdateIntent(ctx, store.Intent{
		ID:          id,
		Name:        input.Name,
		SubjectID:   input.SubjectID,
		Description: input.Description,
		Synonyms:    input.Synonyms,
	})
	if err != nil {
		return nil, err
	}
	s.invalidateHierarchy(ctx)
	return intentPayload(item), nil
}

func (s *Service) DeleteIntent(ctx context.Context, id int64) error {
	if err := s.store.DeleteIntent(ctx, id); err != nil {
		return err
	}
	s.invalidateHierarchy(ctx)
	return nil
}

type ArticleInput struct {
	Question           string  `json:"question"`
	Answer             string  `json:"answer"`
	Keywords           *string `json:"keywords"`
	IntentID           *int64  `json:"intentId"`
	SubjectID          *int64  `json:"subjectId"`
	ProductID          *int64  `json:"productId"`
	ProductStandard    string  `json:"productStandard"`
	SubproductStandard string  `json:"subproductStandard"`
	UpdatedBy          string  `json:"updatedBy"`
}

func (s *Service) ListArticles(ctx context.Context, filter store.ArticleFilter) (map[string]any, error) {
	items, err := s.store.ListArticles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	payload := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payload = append(payload, articlePayload(item))
	}
	return map[string]any{"articles": payload}, nil
}

func (s *Service) GetArticle(ctx context.Context, id int64) (map[string]any, error) {
	item, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	return articlePayload(item), nil
}

func (s *Service) CreateArticle(ctx context.Context, input ArticleInput) (map[string]any, error) {
	if input.Question == "" || input.Answer == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "question and answer are required", nil)
	}
	item, err := s.store.CreateArticle(ctx, store.Article{
		Question:           input.Question,
		Answer:             input.Answer,
		Keywords:           input.Keywords,
		IntentID:           input.IntentID,
		SubjectID:          input.SubjectID,
		ProductID:          input.ProductID,
		ProductStandard:    input.ProductStandard,
		SubproductStandard: input.SubproductStandard,
		IsActive:           true,
		UpdatedBy:          input.UpdatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}
	s.afterArticleWrite(ctx, item, input.UpdatedBy, "create article")
	return articlePayload(item), nil
}

func (s *Service) UpdateArticle(ctx context.Context, id int64, input ArticleInput) (map[string]any, error) {
	if input.Question == "" || input.Answer == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "question and answer are required", nil)
	}
	existing, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.Question = input.Question
	existing.Answer = input.Answer
	existing.Keywords = input.Keywords
	existing.IntentID = input.IntentID
	existing.SubjectID = input.SubjectID
	existing.ProductID = input.ProductID
	existing.ProductStandard = input.ProductStandard
	existing.SubproductStandard = input.SubproductStandard
	existing.UpdatedBy = input.UpdatedBy

	item, err := s.store.UpdateArticle(ctx, existing)
	if err != nil {
		return nil, err
	}
	s.afterArticleWrite(ctx, item, input.UpdatedBy, "edit article")
	return articlePayload(item), nil
}

// DeactivateArticle soft-deletes: the row survives for suggestion linkage
// and history, but stops rendering in the hierarchy and search.
func (s *Service) DeactivateArticle(ctx context.Context, id int64, updatedBy string) error {
	if err := s.store.DeactivateArticle(ctx, id, updatedBy); err != nil {
		return err
	}
	s.search.DeleteArticle(id)
	s.invalidateHierarchy(ctx)
	return nil
}

func (s *Service) ArticleHistory(ctx context.Context, id int64, limit int) (map[string]any, error) {
	if _, err := s.store.GetArticle(ctx, id); err != nil {
		return nil, err
	}
	revisions, err := s.revisions.History(id, limit)
	if err != nil {
		return nil, fmt.Errorf("article history: %w", err)
	}
	return map[string]any{"revisions": revisions}, nil
}

func (s *Service) ArticleRevisionContent(ctx context.Context, id int64, hash string) (map[string]any, error) {
	if _, err := s.store.GetArticle(ctx, id); err != nil {
		return nil, err
	}
	content, err := s.revisions.ContentAt(id, hash)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Revision not found", nil)
	}
	return map[string]any{"hash": hash, "content": content}, nil
}

func (s *Service) ExportArticle(ctx context.Context, req export.Request) (*export.Result, error) {
	result, err := s.exporter.Export(ctx, req)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// afterArticleWrite runs the side effects of a knowledge-base mutation:
// search indexing, hierarchy invalidation, and a history commit. All are
// best-effort; the write itself already succeeded.
func (s *Service) afterArticleWrite(ctx context.Context, article store.Article, author, message string) {
	s.search.IndexArticle(articleRecord(article))
	s.invalidateHierarchy(ctx)
	if author == "" {
		author = "system"
	}
	if _, err := s.revisions.RecordRevision(article.ID, revisionContent(article), author, message); err != nil {
		log.Printf("record revision for article %d: %v", article.ID, err)
	}
}

func (s *Service) Hierarchy(ctx context.Context) (map[string]any, error) {
	if s.cache != nil {
		if snapshot, err := s.cache.Get(ctx); err == nil {
			return map[string]any{"tree": snapshot.Nodes, "report": snapshot.Report, "cached": true}, nil
		}
	}

	products, err := s.store.ListCatalogProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	subjects, err := s.store.ListSubjects(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}
	intents, err := s.store.ListIntents(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("load intents: %w", err)
	}
	articles, err := s.store.ListArticles(ctx, store.ArticleFilter{})
	if err != nil {
		return nil, fmt.Errorf("load articles: %w", err)
	}

	nodes, report := hierarchy.Build(
		hierarchyProducts(products),
		hierarchySubjects(subjects),
		hierarchyIntents(intents),
		hierarchyArticles(articles),
	)

	if s.cache != nil {
		if err := s.cache.Put(ctx, cache.Snapshot{Nodes: nodes, Report: report}); err != nil {
			log.Printf("cache hierarchy snapshot: %v", err)
		}
	}
	return map[string]any{"tree": nodes, "report": report, "cached": false}, nil
}

func (s *Service) invalidateHierarchy(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("invalidate hierarchy cache: %v", err)
	}
}

func (s *Service) Resolve(ctx context.Context, entityType, query string, single bool) (map[string]any, error) {
	if query == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "q is required", nil)
	}

	candidates, err := s.resolveCandidates(ctx, entityType)
	if err != nil {
		return nil, err
	}

	if single {
		best, err := match.ResolveOne(query, candidates, match.DefaultThreshold)
		if err != nil {
			return nil, err
		}
		return map[string]any{"match": best}, nil
	}

	ranked := match.Rank(query, candidates)
	matches := make([]match.Scored, 0, len(ranked))
	for _, item := range ranked {
		if item.Score > 0 {
			matches = append(matches, item)
		}
	}
	return map[string]any{"matches": matches}, nil
}

func (s *Service) resolveCandidates(ctx context.Context, entityType string) ([]match.Candidate, error) {
	switch entityType {
	case "product":
		products, err := s.store.ListCatalogProducts(ctx)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		candidates := make([]match.Candidate, 0, len(products))
		for _, product := range products {
			name := product.ProductName
			if product.SubproductName != nil && *product.SubproductName != "" {
				name = product.ProductName + " " + *product.SubproductName
			}
			candidates = append(candidates, match.Candidate{ID: product.ID, Name: name, Synonyms: product.Synonyms})
		}
		return candidates, nil
	case "subject":
		subjects, err := s.store.ListSubjects(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("load subjects: %w", err)
		}
		candidates := make([]match.Candidate, 0, len(subjects))
		for _, subject := range subjects {
			candidates = append(candidates, match.Candidate{ID: subject.ID, Name: subject.Name, Synonyms: subject.Synonyms})
		}
		return candidates, nil
	case "intent":
		intents, err := s.store.ListIntents(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("load intents: %w", err)
		}
		candidates := make([]match.Candidate, 0, len(intents))
		for _, intent := range intents {
			candidates = append(candidates, match.Candidate{ID: intent.ID, Name: intent.Name, Synonyms: intent.Synonyms})
		}
		return candidates, nil
	}
	return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type must be product, subject, or intent", nil)
}

type IngestInput struct {
	Question           string              `json:"question"`
	Answer             string              `json:"answer"`
	Keywords           *string             `json:"keywords"`
	ProductStandard    string              `json:"productStandard"`
	SubproductStandard string              `json:"subproductStandard"`
	SubjectID          *int64              `json:"subjectId"`
	IntentID           *int64              `json:"intentId"`
	ConfidenceScore    int                 `json:"confidenceScore"`
	QualityFlags       store.QualityFlags  `json:"qualityFlags"`
	SimilarArticleID   *int64              `json:"similarArticleId"`
	SimilarityScore    *int                `json:"similarityScore"`
	UpdateReason       string              `json:"updateReason"`
	RawExtraction      store.RawExtraction `json:"rawExtraction"`
	SourceTicketID     string              `json:"sourceTicketId"`
	Skip               bool                `json:"skip"`
	SkipReason         string              `json:"skipReason"`
}

func (s *Service) IngestSuggestion(ctx context.Context, input IngestInput) (map[string]any, error) {
	candidate := review.Candidate{
		Question:           input.Question,
		Answer:             input.Answer,
		Keywords:           input.Keywords,
		ProductStandard:    input.ProductStandard,
		SubproductStandard: input.SubproductStandard,
		SubjectID:          input.SubjectID,
		IntentID:           input.IntentID,
		ConfidenceScore:    input.ConfidenceScore,
		QualityFlags:       input.QualityFlags,
		SimilarArticleID:   input.SimilarArticleID,
		SimilarityScore:    input.SimilarityScore,
		UpdateReason:       input.UpdateReason,
		RawExtraction:      input.RawExtraction,
		SourceTicketID:     input.SourceTicketID,
	}

	var created store.Suggestion
	var err error
	if input.Skip || input.SkipReason != "" {
		created, err = s.reviews.RecordSkip(ctx, candidate, input.SkipReason)
	} else {
		created, err = s.reviews.Submit(ctx, candidate)
	}
	if err != nil {
		return nil, err
	}
	s.search.IndexSuggestion(suggestionRecord(created))
	return suggestionPayload(created), nil
}

func (s *Service) ListSuggestions(ctx context.Context, filter store.SuggestionFilter) (map[string]any, error) {
	items, err := s.store.ListSuggestions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	payload := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payload = append(payload, suggestionPayload(item))
	}
	return map[string]any{"suggestions": payload, "count": len(payload)}, nil
}

func (s *Service) SuggestionStats(ctx context.Context) (map[string]any, error) {
	counts, err := s.store.CountSuggestionsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count suggestions: %w", err)
	}
	byStatus := map[string]int{}
	total := 0
	for _, row := range counts {
		byStatus[row.Status] = row.Count
		total += row.Count
	}
	return map[string]any{"byStatus": byStatus, "total": total}, nil
}

func (s *Service) GetSuggestion(ctx context.Context, id int64) (map[string]any, error) {
	item, err := s.store.GetSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}
	payload := suggestionPayload(item)
	if item.SimilarArticleID != nil {
		if article, err := s.store.GetArticle(ctx, *item.SimilarArticleID); err == nil {
			payload["similarArticle"] = articlePayload(article)
		}
	}
	return payload, nil
}

// SuggestionDiff renders the word-level diff between an update-type
// suggestion and its similar article.
func (s *Service) SuggestionDiff(ctx context.Context, id int64) (map[string]any, error) {
	suggestion, err := s.store.GetSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if suggestion.SimilarArticleID == nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "suggestion has no similar article to compare", nil)
	}
	article, err := s.store.GetArticle(ctx, *suggestion.SimilarArticleID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"suggestionId": suggestion.ID,
		"articleId":    article.ID,
		"diffs":        review.Compare(suggestion, article),
	}, nil
}

func (s *Service) ApproveSuggestion(ctx context.Context, id int64, reviewedBy, note string) (map[string]any, error) {
	resolved, article, err := s.reviews.Approve(ctx, id, reviewedBy, note)
	if err != nil {
		return nil, err
	}
	s.afterArticleWrite(ctx, article, reviewedBy, fmt.Sprintf("approve suggestion %d", resolved.ID))
	s.search.IndexSuggestion(suggestionRecord(resolved))
	return map[string]any{"suggestion": suggestionPayload(resolved), "article": articlePayload(article)}, nil
}

func (s *Service) RejectSuggestion(ctx context.Context, id int64, reviewedBy, reason string) (map[string]any, error) {
	resolved, err := s.reviews.Reject(ctx, id, reviewedBy, reason)
	if err != nil {
		return nil, err
	}
	s.search.IndexSuggestion(suggestionRecord(resolved))
	return map[string]any{"suggestion": suggestionPayload(resolved)}, nil
}

type MergeInput struct {
	TargetArticleID int64   `json:"targetArticleId"`
	Question        string  `json:"question"`
	Answer          string  `json:"answer"`
	Keywords        *string `json:"keywords"`
	ReviewedBy      string  `json:"reviewedBy"`
	Note            string  `json:"note"`
}

func (s *Service) MergeSuggestion(ctx context.Context, id int64, input MergeInput) (map[string]any, error) {
	if input.TargetArticleID == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "targetArticleId is required", nil)
	}
	merged := review.MergedContent{
		Question: input.Question,
		Answer:   input.Answer,
		Keywords: input.Keywords,
	}
	resolved, article, err := s.reviews.Merge(ctx, id, input.TargetArticleID, merged, input.ReviewedBy, input.Note)
	if err != nil {
		return nil, err
	}
	s.afterArticleWrite(ctx, article, input.ReviewedBy, fmt.Sprintf("merge suggestion %d", resolved.ID))
	s.search.IndexSuggestion(suggestionRecord(resolved))
	return map[string]any{"suggestion": suggestionPayload(resolved), "article": articlePayload(article)}, nil
}

func (s *Service) Search(q search.Query) search.Response {
	return s.search.Search(q)
}

func (s *Service) ArchiveResolved(ctx context.Context, before time.Time, limit int) (archive.Report, error) {
	if s.archiver == nil {
		return archive.Report{}, domainError(http.StatusServiceUnavailable, "ARCHIVE_UNAVAILABLE", "Object storage not configured", nil)
	}
	report, err := s.archiver.Run(ctx, before, limit)
	if err != nil {
		return archive.Report{}, fmt.Errorf("archive run: %w", err)
	}
	return report, nil
}

func catalogProductPayload(item store.CatalogProduct) map[string]any {
	return map[string]any{
		"id":             item.ID,
		"productName":    item.ProductName,
		"subproductName": item.SubproductName,
		"synonyms":       nonNilStrings(item.Synonyms),
		"createdAt":      item.CreatedAt,
		"updatedAt":      item.UpdatedAt,
	}
}

func subjectPayload(item store.Subject) map[string]any {
	return map[string]any{
		"id":               item.ID,
		"name":             item.Name,
		"productCatalogId": item.ProductCatalogID,
		"description":      item.Description,
		"synonyms":         nonNilStrings(item.Synonyms),
		"createdAt":        item.CreatedAt,
		"updatedAt":        item.UpdatedAt,
	}
}

func intentPayload(item store.Intent) map[string]any {
	return map[string]any{
		"id":          item.ID,
		"name":        item.Name,
		"subjectId":   item.SubjectID,
		"description": item.Description,
		"synonyms":    nonNilStrings(item.Synonyms),
		"createdAt":   item.CreatedAt,
		"updatedAt":   item.UpdatedAt,
	}
}

func articlePayload(item store.Article) map[string]any {
	return map[string]any{
		"id":                 item.ID,
		"question":           item.Question,
		"answer":             item.Answer,
		"keywords":           item.Keywords,
		"intentId":           item.IntentID,
		"subjectId":          item.SubjectID,
		"productId":          item.ProductID,
		"productStandard":    item.ProductStandard,
		"subproductStandard": item.SubproductStandard,
		"isActive":           item.IsActive,
		"updatedBy":          item.UpdatedBy,
		"createdAt":          item.CreatedAt,
		"updatedAt":          item.UpdatedAt,
	}
}

func suggestionPayload(item store.Suggestion) map[string]any {
	return map[string]any{
		"id":                 item.ID,
		"type":               item.Type,
		"status":             item.Status,
		"question":           item.Question,
		"answer":             item.Answer,
		"keywords":           item.Keywords,
		"productStandard":    item.ProductStandard,
		"subproductStandard": item.SubproductStandard,
		"subjectId":          item.SubjectID,
		"intentId":           item.IntentID,
		"confidenceScore":    item.ConfidenceScore,
		"qualityFlags":       item.QualityFlags,
		"similarArticleId":   item.SimilarArticleID,
		"similarityScore":    item.SimilarityScore,
		"updateReason":       item.UpdateReason,
		"skipReason":         item.SkipReason,
		"rawExtraction":      item.RawExtraction,
		"sourceTicketId":     item.SourceTicketID,
		"reviewedBy":         item.ReviewedBy,
		"reviewNote":         item.ReviewNote,
		"rejectionReason":    item.RejectionReason,
		"reviewedAt":         item.ReviewedAt,
		"articleId":          item.ArticleID,
		"createdAt":          item.CreatedAt,
		"updatedAt":          item.UpdatedAt,
	}
}

func articleRecord(item store.Article) search.ArticleRecord {
	keywords := ""
	if item.Keywords != nil {
		keywords = *item.Keywords
	}
	return search.ArticleRecord{
		ID:              item.ID,
		Question:        item.Question,
		Answer:          item.Answer,
		Keywords:        keywords,
		ProductStandard: item.ProductStandard,
	}
}

func suggestionRecord(item store.Suggestion) search.SuggestionRecord {
	return search.SuggestionRecord{
		ID:              item.ID,
		Question:        item.Question,
		Answer:          item.Answer,
		ProductStandard: item.ProductStandard,
		Status:          item.Status,
	}
}

func revisionContent(item store.Article) history.Content {
	keywords := ""
	if item.Keywords != nil {
		keywords = *item.Keywords
	}
	return history.Content{
		Question:           item.Question,
		Answer:             item.Answer,
		Keywords:           keywords,
		ProductStandard:    item.ProductStandard,
		SubproductStandard: item.SubproductStandard,
	}
}

func hierarchyProducts(items []store.CatalogProduct) []hierarchy.Product {
	out := make([]hierarchy.Product, 0, len(items))
	for _, item := range items {
		subproduct := ""
		if item.SubproductName != nil {
			subproduct = *item.SubproductName
		}
		out = append(out, hierarchy.Product{ID: item.ID, ProductName: item.ProductName, SubproductName: subproduct})
	}
	return out
}

func hierarchySubjects(items []store.Subject) []hierarchy.Subject {
	out := make([]hierarchy.Subject, 0, len(items))
	for _, item := range items {
		out = append(out, hierarchy.Subject{
			ID:               item.ID,
			Name:             item.Name,
			ProductCatalogID: item.ProductCatalogID,
			Synonyms:         item.Synonyms,
		})
	}
	return out
}

func hierarchyIntents(items []store.Intent) []hierarchy.Intent {
	out := make([]hierarchy.Intent, 0, len(items))
	for _, item := range items {
		out = append(out, hierarchy.Intent{
			ID:        item.ID,
			Name:      item.Name,
			SubjectID: item.SubjectID,
			Synonyms:  item.Synonyms,
		})
	}
	return out
}

func hierarchyArticles(items []store.Article) []hierarchy.Article {
	out := make([]hierarchy.Article, 0, len(items))
	for _, item := range items {
		article := hierarchy.Article{
			ID:                 item.ID,
			Question:           item.Question,
			Answer:             item.Answer,
			ProductStandard:    item.ProductStandard,
			SubproductStandard: item.SubproductStandard,
		}
		if item.IntentID != nil {
			article.IntentID = *item.IntentID
		}
		if item.SubjectID != nil {
			article.SubjectID = *item.SubjectID
		}
		out = append(out, article)
	}
	return out
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
