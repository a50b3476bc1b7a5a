package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultArticle    ResultType = "article"
	ResultSuggestion ResultType = "suggestion"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type            ResultType `json:"type"`
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Snippet         string     `json:"snippet"`
	ProductStandard string     `json:"productStandard"`
	Status          string     `json:"status,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text          string
	FilterType    ResultType // empty = all types
	FilterProduct string
	Limit         int
	Offset        int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexArticle(a ArticleRecord) error
	IndexSuggestion(s SuggestionRecord) error
	DeleteArticle(id int64) error
}

// ArticleRecord is the data we index for a knowledge article.
type ArticleRecord struct {
	ID              int64  `json:"id"`
	Question        string `json:"question"`
	Answer          string `json:"answer"`
	Keywords        string `json:"keywords"`
	ProductStandard string `json:"productStandard"`
}

// SuggestionRecord is the data we index for a suggestion.
type SuggestionRecord struct {
	ID              int64  `json:"id"`
	Question        string `json:"question"`
	Answer          string `json:"answer"`
	ProductStandard string `json:"productStandard"`
	Status          string `json:"status"`
}
