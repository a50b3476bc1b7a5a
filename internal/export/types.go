// Package export renders knowledge articles to HTML and PDF, optionally with
// the word-level diff of a suggestion against the article.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// Request contains parameters for an export operation
type Request struct {
	ArticleID    int64
	Format       Format
	SuggestionID int64 // non-zero: include that suggestion's diff
}

// ArticleInfo holds the article fields the renderer needs.
type ArticleInfo struct {
	ID                 int64
	Question           string
	Answer             string
	Keywords           string
	ProductStandard    string
	SubproductStandard string
	UpdatedBy          string
	UpdatedAt          time.Time
}

// SuggestionInfo holds the suggestion fields the renderer needs.
type SuggestionInfo struct {
	ID       int64
	Question string
	Answer   string
	Status   string
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrContentUnavailable indicates article content could not be loaded for export.
	ErrContentUnavailable = errors.New("export content unavailable")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
