package store

import "time"

// Suggestion statuses. Pending is the only non-terminal status; skipped is
// set at creation time by the generation pipeline and is never reachable
// from pending.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusMerged   = "merged"
	StatusSkipped  = "skipped"
)

// Suggestion types.
const (
	SuggestionCreate = "create"
	SuggestionUpdate = "update"
)

// CatalogProduct is one row of the supported-products catalog: a
// product/subproduct combination. A row with no subproduct is the generic
// variant for its product name.
type CatalogProduct struct {
	ID             int64
	ProductName    string
	SubproductName *string
	Synonyms       []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Subject is a theme grouping under exactly one catalog row.
type Subject struct {
	ID               int64
	Name             string
	ProductCatalogID int64
	Description      string
	Synonyms         []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Intent is a concrete user goal under exactly one subject.
type Intent struct {
	ID          int64
	Name        string
	SubjectID   int64
	Description string
	Synonyms    []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Article is one knowledge-base entry. Its taxonomy linkage is authoritative
// at exactly one granularity: IntentID when set, else SubjectID, else the
// legacy free-text ProductStandard/SubproductStandard pair.
type Article struct {
	ID                 int64
	Question           string
	Answer             string
	Keywords           *string
	IntentID           *int64
	SubjectID          *int64
	ProductID          *int64
	ProductStandard    string
	SubproductStandard string
	IsActive           bool
	UpdatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// QualityFlags are the generation pipeline's self-assessment of a candidate.
// Pointers distinguish "not assessed" from an explicit false.
type QualityFlags struct {
	IsComplete    *bool `json:"isComplete,omitempty"`
	IsUncertain   *bool `json:"isUncertain,omitempty"`
	PossibleError *bool `json:"possibleError,omitempty"`
	NeedsReview   *bool `json:"needsReview,omitempty"`
}

// RawExtraction preserves the pipeline output the suggestion was built from.
type RawExtraction struct {
	SourceArticles []int64 `json:"sourceArticles,omitempty"`
}

// Suggestion is one machine-generated knowledge candidate moving through the
// review lifecycle.
type Suggestion struct {
	ID                 int64
	Type               string
	Status             string
	Question           string
	Answer             string
	Keywords           *string
	ProductStandard    string
	SubproductStandard string
	SubjectID          *int64
	IntentID           *int64
	ConfidenceScore    int
	QualityFlags       QualityFlags
	SimilarArticleID   *int64
	SimilarityScore    *int
	UpdateReason       string
	SkipReason         string
	RawExtraction      RawExtraction
	SourceTicketID     string
	ReviewedBy         string
	ReviewNote         string
	RejectionReason    string
	ReviewedAt         *time.Time
	ArticleID          *int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SuggestionFilter narrows ListSuggestions. Zero values mean "any".
type SuggestionFilter struct {
	Status          string
	Type            string
	ProductStandard string
	Limit           int
	Offset          int
}

// ArticleFilter narrows ListArticles. Zero values mean "any".
type ArticleFilter struct {
	ProductStandard string
	SubjectID       int64
	IntentID        int64
	IncludeInactive bool
}

// StatusCount is one row of the suggestion stats breakdown.
type StatusCount struct {
	Status string
	Count  int
}
