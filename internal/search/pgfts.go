package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across knowledge_base and
// knowledge_suggestions using plainto_tsquery and ts_rank, with ts_headline
// for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('portuguese', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultArticle {
		articleWhere := "kb.search @@ " + tsQuery + " AND kb.is_active"
		if q.FilterProduct != "" {
			articleWhere += fmt.Sprintf(" AND kb.product_standard = $%d", argN)
			args = append(args, q.FilterProduct)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'article'::text AS type, kb.id::text, kb.question AS title,
				ts_headline('portuguese', coalesce(kb.answer, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				kb.product_standard,
				''::text AS status,
				ts_rank(kb.search, %s) AS rank
			FROM knowledge_base kb
			WHERE %s`, tsQuery, tsQuery, articleWhere))
	}

	if q.FilterType == "" || q.FilterType == ResultSuggestion {
		suggestionWhere := "ks.search @@ " + tsQuery
		if q.FilterProduct != "" {
			suggestionWhere += fmt.Sprintf(" AND ks.product_standard = $%d", argN)
			args = append(args, q.FilterProduct)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'suggestion'::text AS type, ks.id::text, ks.question AS title,
				ts_headline('portuguese', coalesce(ks.answer, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				ks.product_standard,
				ks.status,
				ts_rank(ks.search, %s) AS rank
			FROM knowledge_suggestions ks
			WHERE %s`, tsQuery, tsQuery, suggestionWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, product_standard, status
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.ProductStandard, &r.Status); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ArticleRecord, []SuggestionRecord, error) {
	articleRows, err := p.db.QueryContext(ctx, `
		SELECT id, question, answer, coalesce(keywords, ''), product_standard
		FROM knowledge_base
		WHERE is_active
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load articles: %w", err)
	}
	defer articleRows.Close()

	articles := make([]ArticleRecord, 0)
	for articleRows.Next() {
		var a ArticleRecord
		if err := articleRows.Scan(&a.ID, &a.Question, &a.Answer, &a.Keywords, &a.ProductStandard); err != nil {
			return nil, nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := articleRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate articles: %w", err)
	}

	suggestionRows, err := p.db.QueryContext(ctx, `
		SELECT id, question, answer, product_standard, status
		FROM knowledge_suggestions
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load suggestions: %w", err)
	}
	defer suggestionRows.Close()

	suggestions := make([]SuggestionRecord, 0)
	for suggestionRows.Next() {
		var s SuggestionRecord
		if err := suggestionRows.Scan(&s.ID, &s.Question, &s.Answer, &s.ProductStandard, &s.Status); err != nil {
			return nil, nil, fmt.Errorf("scan suggestion: %w", err)
		}
		suggestions = append(suggestions, s)
	}
	if err := suggestionRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate suggestions: %w", err)
	}

	return articles, suggestions, nil
}
