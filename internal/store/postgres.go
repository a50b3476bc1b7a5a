package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors surfaced to callers. ErrInvalidTransition is returned when
// a suggestion exists but is no longer pending, including when a concurrent
// reviewer won the compare-and-swap on status.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const catalogColumns = `id, product_name, subproduct_name, synonyms, created_at, updated_at`

func scanCatalogProduct(row interface{ Scan(...any) error }) (CatalogProduct, error) {
	var item CatalogProduct
	var synonymsRaw []byte
	if err := row.Scan(&item.ID, &item.ProductName, &item.SubproductName, &synonymsRaw, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return CatalogProduct{}, err
	}
	_ = json.Unmarshal(synonymsRaw, &item.Synonyms)
	return item, nil
}

func (s *PostgresStore) ListCatalogProducts(ctx context.Context) ([]CatalogProduct, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+catalogColumns+`
		FROM products_catalog
		ORDER BY product_name, subproduct_name NULLS FIRST
	`)
	if err != nil {
		return nil, fmt.Errorf("list catalog products: %w", err)
	}
	defer rows.Close()

	items := make([]CatalogProduct, 0)
	for rows.Next() {
		item, err := scanCatalogProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog product: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog products: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetCatalogProduct(ctx context.Context, id int64) (CatalogProduct, error) {
	item, err := scanCatalogProduct(s.db.QueryRowContext(ctx, `
		SELECT `+catalogColumns+` FROM products_catalog WHERE id=$1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return CatalogProduct{}, ErrNotFound
	}
	if err != nil {
		return CatalogProduct{}, fmt.Errorf("get catalog product: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) CreateCatalogProduct(ctx context.Context, item CatalogProduct) (CatalogProduct, error) {
	synonyms, err := encodeStrings(item.Synonyms)
	if err != nil {
		return CatalogProduct{}, err
	}
	created, err := scanCatalogProduct(s.db.QueryRowContext(ctx, `
		INSERT INTO products_catalog (product_name, subproduct_name, synonyms)
		VALUES ($1, $2, $3::jsonb)
		RETURNING `+catalogColumns+`
	`, item.ProductName, item.SubproductName, synonyms))
	if err != nil {
		return CatalogProduct{}, fmt.Errorf("create catalog product: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) UpdateCatalogProduct(ctx context.Context, item CatalogProduct) (CatalogProduct, error) {
	synonyms, err := encodeStrings(item.Synonyms)
	if err != nil {
		return CatalogProduct{}, err
	}
	updated, err := scanCatalogProduct(s.db.QueryRowContext(ctx, `
		UPDATE products_catalog
		SET product_name=$2, subproduct_name=$3, synonyms=$4::jsonb, updated_at=NOW()
		WHERE id=$1
		RETURNING `+catalogColumns+`
	`, item.ID, item.ProductName, item.SubproductName, synonyms))
	if errors.Is(err, sql.ErrNoRows) {
		return CatalogProduct{}, ErrNotFound
	}
	if err != nil {
		return CatalogProduct{}, fmt.Errorf("update catalog product: %w", err)
	}
	return updated, nil
}

func (s *PostgresStore) DeleteCatalogProduct(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products_catalog WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete catalog product: %w", err)
	}
	return requireAffected(result, "catalog product")
}

const subjectColumns = `id, name, product_catalog_id, description, synonyms, created_at, updated_at`

func scanSubject(row interface{ Scan(...any) error }) (Subject, error) {
	var item Subject
	var synonymsRaw []byte
	if err := row.Scan(&item.ID, &item.Name, &item.ProductCatalogID, &item.Description, &synonymsRaw, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return Subject{}, err
	}
	_ = json.Unmarshal(synonymsRaw, &item.Synonyms)
	return item, nil
}

// ListSubjects returns all subjects, or only those under one catalog row
// when productCatalogID is non-zero.
func (s *PostgresStore) ListSubjects(ctx context.Context, productCatalogID int64) ([]Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM knowledge_subjects`
	args := []any{}
	if productCatalogID != 0 {
		query += ` WHERE product_catalog_id=$1`
		args = append(args, productCatalogID)
	}
	query += ` ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	items := make([]Subject, 0)
	for rows.Next() {
		item, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetSubject(ctx context.Context, id int64) (Subject, error) {
	item, err := scanSubject(s.db.QueryRowContext(ctx, `
		SELECT `+subjectColumns+` FROM knowledge_subjects WHERE id=$1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Subject{}, ErrNotFound
	}
	if err != nil {
		return Subject{}, fmt.Errorf("get subject: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) CreateSubject(ctx context.Context, item Subject) (Subject, error) {
	synonyms, err := encodeStrings(item.Synonyms)
	if err != nil {
		return Subject{}, err
	}
	created, err := scanSubject(s.db.QueryRowContext(ctx, `
		INSERT INTO knowledge_subjects (name, product_catalog_id, description, synonyms)
		VALUES ($1, $2, $3, $4::jsonb)
		RETURNING `+subjectColumns+`
	`, item.Name, item.ProductCatalogID, item.Description, synonyms))
	if err != nil {
		return Subject{}, fmt.Errorf("create subject: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) UpdateSubject(ctx context.Context, item Subject) (Subject, error) {
	synonyms, err := encodeStrings(item.Synonyms)
	if err != nil {
		return Subject{}, err
	}
	updated, err := scanSubject(s.db.QueryRowContext(ctx, `
		UPDATE knowledge_subjects
		SET name=$2, product_catalog_id=$3, description=$4, synonyms=$5::jsonb, updated_at=NOW()
		WHERE id=$1
		RETURNING `+subjectColumns+`
	`, item.ID, item.Name, item.ProductCatalogID, item.Description, synonyms))
	if errors.Is(err, sql.ErrNoRows) {
		return Subject{}, ErrNotFound
	}
	if err != nil {
		return Subject{}, fmt.Errorf("update subject: %w", err)
	}
	return updated, nil
}

func (s *PostgresStore) DeleteSubject(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_subjects WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return requireAffected(result, "subject")
}

const intentColumns = `id, name, subject_id, description, synonyms, created_at, updated_at`

func scanIntent(row interface{ Scan(...any) error }) (Intent, error) {
	var item Intent
	var synonymsRaw []byte
	if err := row.Scan(&item.ID, &item.Name, &item.SubjectID, &item.Description, &synonymsRaw, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return Intent{}, err
	}
	_ = json.Unmarshal(synonymsRaw, &item.Synonyms)
	return item, nil
}

func (s *PostgresStore) ListIntents(ctx context.Context, subjectID int64) ([]Intent, error) {
	query := `SELECT ` + intentColumns + ` FROM knowledge_intents`
	args := []any{}
	if subjectID != 0 {
		query += ` WHERE subject_id=$1`
		args = append(args, subjectID)
	}
	query += ` ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list intents: %w", err)
	}
	defer rows.Close()

	items := make([]Intent, 0)
	for rows.Next() {
		item, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan intent: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate intents: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetIntent(ctx context.Context, id int64) (Intent, error) {
	item, err := scanIntent(s.db.QueryRowContext(ctx, `
		SELECT `+intentColumns+` FROM knowledge_intents WHERE id=$1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Intent{}, ErrNotFound
	}
	if err != nil {
		return Intent{}, fmt.Errorf("get intent: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) CreateIntent(ctx context.Context, item Intent) (Intent, error) {
	synonyms, err := encodeStrings(item.Synonyms)
	if err != nil {
		return Intent{}, err
	}
	created, err := scanIntent(s.db.QueryRowContext(ctx, `
		INSERT INTO knowledge_intents (name, subject_id, description, synonyms)
		VALUES ($1, $2, $3, $4::jsonb)
		RETURNING `+intentColumns+`
	`, item.Name, item.SubjectID, item.Description, synonyms))
	if err != nil {
		return Intent{}, fmt.Errorf("create intent: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) UpdateIntent(ctx context.Context, item Intent) (Intent, error) {
	synonyms, err := encodeStrings(item.Synonyms)
	if err != nil {
		return Intent{}, err
	}
	updated, err := scanIntent(s.db.QueryRowContext(ctx, `
		UPDATE knowledge_intents
		SET name=$2, subject_id=$3, description=$4, synonyms=$5::jsonb, updated_at=NOW()
		WHERE id=$1
		RETURNING `+intentColumns+`
	`, item.ID, item.Name, item.SubjectID, item.Description, synonyms))
	if errors.Is(err, sql.ErrNoRows) {
		return Intent{}, ErrNotFound
	}
	if err != nil {
		return Intent{}, fmt.Errorf("update intent: %w", err)
	}
	return updated, nil
}

func (s *PostgresStore) DeleteIntent(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_intents WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete intent: %w", err)
	}
	return requireAffected(result, "intent")
}

const articleColumns = `id, question, answer, keywords, intent_id, subject_id, product_id, product_standard, subproduct_standard, is_active, updated_by_name, created_at, updated_at`

func scanArticle(row interface{ Scan(...any) error }) (Article, error) {
	var item Article
	err := row.Scan(
		&item.ID,
		&item.Question,
		&item.Answer,
		&item.Keywords,
		&item.IntentID,
		&item.SubjectID,
		&item.ProductID,
		&item.ProductStandard,
		&item.SubproductStandard,
		&item.IsActive,
		&item.UpdatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) ListArticles(ctx context.Context, filter ArticleFilter) ([]Article, error) {
	conditions := []string{}
	args := []any{}
	if !filter.IncludeInactive {
		conditions = append(conditions, "is_active")
	}
	if filter.ProductStandard != "" {
		args = append(args, filter.ProductStandard)
		conditions = append(conditions, fmt.Sprintf("product_standard=$%d", len(args)))
	}
	if filter.SubjectID != 0 {
		args = append(args, filter.SubjectID)
		conditions = append(conditions, fmt.Sprintf("subject_id=$%d", len(args)))
	}
	if filter.IntentID != 0 {
		args = append(args, filter.IntentID)
		conditions = append(conditions, fmt.Sprintf("intent_id=$%d", len(args)))
	}

	query := `SELECT ` + articleColumns + ` FROM knowledge_base`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY question, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	items := make([]Article, 0)
	for rows.Next() {
		item, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetArticle(ctx context.Context, id int64) (Article, error) {
	item, err := scanArticle(s.db.QueryRowContext(ctx, `
		SELECT `+articleColumns+` FROM knowledge_base WHERE id=$1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, ErrNotFound
	}
	if err != nil {
		return Article{}, fmt.Errorf("get article: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) CreateArticle(ctx context.Context, item Article) (Article, error) {
	created, err := scanArticle(s.db.QueryRowContext(ctx, `
		INSERT INTO knowledge_base (question, answer, keywords, intent_id, subject_id, product_id, product_standard, subproduct_standard, updated_by_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+articleColumns+`
	`, item.Question, item.Answer, item.Keywords, item.IntentID, item.SubjectID, item.ProductID, item.ProductStandard, item.SubproductStandard, item.UpdatedBy))
	if err != nil {
		return Article{}, fmt.Errorf("create article: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) UpdateArticle(ctx context.Context, item Article) (Article, error) {
	updated, err := scanArticle(s.db.QueryRowContext(ctx, `
		UPDATE knowledge_base
		SET question=$2, answer=$3, keywords=$4, intent_id=$5, subject_id=$6, product_id=$7, product_standard=$8, subproduct_standard=$9, updated_by_name=$10, updated_at=NOW()
		WHERE id=$1
		RETURNING `+articleColumns+`
	`, item.ID, item.Question, item.Answer, item.Keywords, item.IntentID, item.SubjectID, item.ProductID, item.ProductStandard, item.SubproductStandard, item.UpdatedBy))
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, ErrNotFound
	}
	if err != nil {
		return Article{}, fmt.Errorf("update article: %w", err)
	}
	return updated, nil
}

// DeactivateArticle soft-deletes: the row stays for suggestion linkage and
// history, but drops out of listings and the hierarchy.
func (s *PostgresStore) DeactivateArticle(ctx context.Context, id int64, updatedBy string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE knowledge_base SET is_active=FALSE, updated_by_name=$2, updated_at=NOW() WHERE id=$1
	`, id, updatedBy)
	if err != nil {
		return fmt.Errorf("deactivate article: %w", err)
	}
	return requireAffected(result, "article")
}

const suggestionColumns = `id, type, status, question, answer, keywords, product_standard, subproduct_standard, subject_id, intent_id, confidence_score, quality_flags, similar_article_id, similarity_score, update_reason, skip_reason, raw_extraction, source_ticket_id, reviewed_by_name, review_note, rejection_reason, reviewed_at, article_id, created_at, updated_at`

func scanSuggestion(row interface{ Scan(...any) error }) (Suggestion, error) {
	var item Suggestion
	var flagsRaw, extractionRaw []byte
	err := row.Scan(
		&item.ID,
		&item.Type,
		&item.Status,
		&item.Question,
		&item.Answer,
		&item.Keywords,
		&item.ProductStandard,
		&item.SubproductStandard,
		&item.SubjectID,
		&item.IntentID,
		&item.ConfidenceScore,
		&flagsRaw,
		&item.SimilarArticleID,
		&item.SimilarityScore,
		&item.UpdateReason,
		&item.SkipReason,
		&extractionRaw,
		&item.SourceTicketID,
		&item.ReviewedBy,
		&item.ReviewNote,
		&item.RejectionReason,
		&item.ReviewedAt,
		&item.ArticleID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return Suggestion{}, err
	}
	_ = json.Unmarshal(flagsRaw, &item.QualityFlags)
	_ = json.Unmarshal(extractionRaw, &item.RawExtraction)
	return item, nil
}

func (s *PostgresStore) CreateSuggestion(ctx context.Context, item Suggestion) (Suggestion, error) {
	flags, err := json.Marshal(item.QualityFlags)
	if err != nil {
		return Suggestion{}, fmt.Errorf("marshal quality flags: %w", err)
	}
	extraction, err := json.Marshal(item.RawExtraction)
	if err != nil {
		return Suggestion{}, fmt.Errorf("marshal raw extraction: %w", err)
	}
	created, err := scanSuggestion(s.db.QueryRowContext(ctx, `
		INSERT INTO knowledge_suggestions (
			type, status, question, answer, keywords,
			product_standard, subproduct_standard, subject_id, intent_id,
			confidence_score, quality_flags, similar_article_id, similarity_score,
			update_reason, skip_reason, raw_extraction, source_ticket_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12, $13, $14, $15, $16::jsonb, $17)
		RETURNING `+suggestionColumns+`
	`,
		item.Type, item.Status, item.Question, item.Answer, item.Keywords,
		item.ProductStandard, item.SubproductStandard, item.SubjectID, item.IntentID,
		item.ConfidenceScore, string(flags), item.SimilarArticleID, item.SimilarityScore,
		item.UpdateReason, item.SkipReason, string(extraction), item.SourceTicketID,
	))
	if err != nil {
		return Suggestion{}, fmt.Errorf("create suggestion: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetSuggestion(ctx context.Context, id int64) (Suggestion, error) {
	item, err := scanSuggestion(s.db.QueryRowContext(ctx, `
		SELECT `+suggestionColumns+` FROM knowledge_suggestions WHERE id=$1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Suggestion{}, ErrNotFound
	}
	if err != nil {
		return Suggestion{}, fmt.Errorf("get suggestion: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListSuggestions(ctx context.Context, filter SuggestionFilter) ([]Suggestion, error) {
	conditions := []string{}
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type=$%d", len(args)))
	}
	if filter.ProductStandard != "" {
		args = append(args, filter.ProductStandard)
		conditions = append(conditions, fmt.Sprintf("product_standard=$%d", len(args)))
	}

	query := `SELECT ` + suggestionColumns + ` FROM knowledge_suggestions`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	items := make([]Suggestion, 0)
	for rows.Next() {
		item, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suggestions: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CountSuggestionsByStatus(ctx context.Context) ([]StatusCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM knowledge_suggestions GROUP BY status ORDER BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("count suggestions: %w", err)
	}
	defer rows.Close()

	items := make([]StatusCount, 0)
	for rows.Next() {
		var item StatusCount
		if err := rows.Scan(&item.Status, &item.Count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return items, nil
}

// ApproveSuggestion writes the article and flips the suggestion to approved
// in one transaction. An article with ID zero is inserted; otherwise the
// existing row is updated. The status flip is a compare-and-swap on
// status='pending': when a concurrent reviewer already resolved the
// suggestion, nothing is written and ErrInvalidTransition comes back.
func (s *PostgresStore) ApproveSuggestion(ctx context.Context, suggestionID int64, reviewedBy, note string, article Article) (Suggestion, Article, error) {
	return s.resolveWithArticle(ctx, suggestionID, StatusApproved, reviewedBy, note, article)
}

// MergeSuggestion folds reviewer-merged content into the target article and
// flips the suggestion to merged, with the same transactional
// compare-and-swap as ApproveSuggestion. The article must carry the target
// row's ID.
func (s *PostgresStore) MergeSuggestion(ctx context.Context, suggestionID int64, reviewedBy, note string, article Article) (Suggestion, Article, error) {
	return s.resolveWithArticle(ctx, suggestionID, StatusMerged, reviewedBy, note, article)
}

func (s *PostgresStore) resolveWithArticle(ctx context.Context, suggestionID int64, status, reviewedBy, note string, article Article) (Suggestion, Article, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Suggestion{}, Article{}, fmt.Errorf("begin resolve tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var written Article
	if article.ID == 0 {
		written, err = scanArticle(tx.QueryRowContext(ctx, `
			INSERT INTO knowledge_base (question, answer, keywords, intent_id, subject_id, product_id, product_standard, subproduct_standard, updated_by_name)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+articleColumns+`
		`, article.Question, article.Answer, article.Keywords, article.IntentID, article.SubjectID, article.ProductID, article.ProductStandard, article.SubproductStandard, reviewedBy))
		if err != nil {
			return Suggestion{}, Article{}, fmt.Errorf("insert article for %s: %w", status, err)
		}
	} else {
		written, err = scanArticle(tx.QueryRowContext(ctx, `
			UPDATE knowledge_base
			SET question=$2, answer=$3, keywords=$4, intent_id=$5, subject_id=$6, product_id=$7, product_standard=$8, subproduct_standard=$9, updated_by_name=$10, updated_at=NOW()
			WHERE id=$1
			RETURNING `+articleColumns+`
		`, article.ID, article.Question, article.Answer, article.Keywords, article.IntentID, article.SubjectID, article.ProductID, article.ProductStandard, article.SubproductStandard, reviewedBy))
		if errors.Is(err, sql.ErrNoRows) {
			return Suggestion{}, Article{}, fmt.Errorf("target article %d: %w", article.ID, ErrNotFound)
		}
		if err != nil {
			return Suggestion{}, Article{}, fmt.Errorf("update article for %s: %w", status, err)
		}
	}

	suggestion, err := scanSuggestion(tx.QueryRowContext(ctx, `
		UPDATE knowledge_suggestions
		SET status=$2, reviewed_by_name=$3, review_note=$4, reviewed_at=NOW(), article_id=$5, updated_at=NOW()
		WHERE id=$1 AND status='pending'
		RETURNING `+suggestionColumns+`
	`, suggestionID, status, reviewedBy, note, written.ID))
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the swap or never existed; the rollback undoes the article
		// write either way.
		return Suggestion{}, Article{}, s.classifyMissedSwap(ctx, suggestionID)
	}
	if err != nil {
		return Suggestion{}, Article{}, fmt.Errorf("transition suggestion to %s: %w", status, err)
	}

	if err := tx.Commit(); err != nil {
		return Suggestion{}, Article{}, fmt.Errorf("commit resolve tx: %w", err)
	}
	return suggestion, written, nil
}

// RejectSuggestion flips a pending suggestion to rejected and records the
// reviewer's reason. No article is touched; the same compare-and-swap guards
// concurrent reviewers.
func (s *PostgresStore) RejectSuggestion(ctx context.Context, suggestionID int64, reviewedBy, reason string) (Suggestion, error) {
	suggestion, err := scanSuggestion(s.db.QueryRowContext(ctx, `
		UPDATE knowledge_suggestions
		SET status=$2, reviewed_by_name=$3, rejection_reason=$4, reviewed_at=NOW(), updated_at=NOW()
		WHERE id=$1 AND status='pending'
		RETURNING `+suggestionColumns+`
	`, suggestionID, StatusRejected, reviewedBy, reason))
	if errors.Is(err, sql.ErrNoRows) {
		return Suggestion{}, s.classifyMissedSwap(ctx, suggestionID)
	}
	if err != nil {
		return Suggestion{}, fmt.Errorf("reject suggestion: %w", err)
	}
	return suggestion, nil
}

// classifyMissedSwap distinguishes "no such suggestion" from "exists but not
// pending" after a compare-and-swap matched zero rows.
func (s *PostgresStore) classifyMissedSwap(ctx context.Context, suggestionID int64) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM knowledge_suggestions WHERE id=$1)`, suggestionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("classify suggestion %d: %w", suggestionID, err)
	}
	if !exists {
		return fmt.Errorf("suggestion %d: %w", suggestionID, ErrNotFound)
	}
	return fmt.Errorf("suggestion %d: %w", suggestionID, ErrInvalidTransition)
}

// ListArchivableSuggestions returns terminally-reviewed suggestions last
// touched before the cutoff, oldest first.
func (s *PostgresStore) ListArchivableSuggestions(ctx context.Context, before string, limit int) ([]Suggestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+suggestionColumns+`
		FROM knowledge_suggestions
		WHERE status IN ('approved', 'rejected', 'merged', 'skipped') AND updated_at < $1::timestamptz
		ORDER BY updated_at, id
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list archivable suggestions: %w", err)
	}
	defer rows.Close()

	items := make([]Suggestion, 0)
	for rows.Next() {
		item, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archivable suggestion: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archivable suggestions: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DeleteSuggestion(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_suggestions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete suggestion: %w", err)
	}
	return requireAffected(result, "suggestion")
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("marshal string list: %w", err)
	}
	return string(encoded), nil
}

func requireAffected(result sql.Result, entity string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", entity, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}
	return nil
}
