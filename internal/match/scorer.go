// Package match scores free-text mentions of products, subjects, and intents
// against catalog entities by name and synonym.
package match

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	scoreExactName       = 100
	scoreExactSynonym    = 95
	scoreNameContains    = 80
	scoreSynonymContains = 70
	scoreQueryContains   = 60
	scoreWordBase        = 50

	// DefaultThreshold is the score at or above which a single candidate is
	// treated as a confident resolution.
	DefaultThreshold = 70
)

var (
	ErrNoMatch        = errors.New("no candidate matched")
	ErrAmbiguousMatch = errors.New("multiple candidates tied for best match")
)

// Result is the outcome of scoring one candidate against a query.
type Result struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// Candidate is one entity eligible for resolution.
type Candidate struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Synonyms []string `json:"synonyms"`
}

// Scored pairs a candidate with its score for ranking.
type Scored struct {
	Candidate
	Result
}

// Score evaluates the rules in order; the first rule that applies wins.
func Score(query, candidateName string, synonyms []string) Result {
	q := normalize(query)
	name := normalize(candidateName)

	if q == "" || name == "" {
		return Result{Score: 0, Reason: "no match"}
	}

	if q == name {
		return Result{Score: scoreExactName, Reason: "exact name match"}
	}
	for _, synonym := range synonyms {
		if normalize(synonym) == q {
			return Result{Score: scoreExactSynonym, Reason: fmt.Sprintf("exact synonym match: %q", synonym)}
		}
	}
	if strings.Contains(name, q) {
		return Result{Score: scoreNameContains, Reason: "name contains query"}
	}
	for _, synonym := range synonyms {
		if strings.Contains(normalize(synonym), q) {
			return Result{Score: scoreSynonymContains, Reason: fmt.Sprintf("synonym contains query: %q", synonym)}
		}
	}
	if strings.Contains(q, name) {
		return Result{Score: scoreQueryContains, Reason: "query contains name"}
	}

	words := strings.Fields(q)
	if len(words) == 0 {
		return Result{Score: 0, Reason: "no match"}
	}
	matched := make([]string, 0, len(words))
	for _, word := range words {
		if strings.Contains(name, word) {
			matched = append(matched, word)
			continue
		}
		for _, synonym := range synonyms {
			if strings.Contains(normalize(synonym), word) {
				matched = append(matched, word)
				break
			}
		}
	}
	if len(matched) > 0 {
		score := int(math.Round(float64(scoreWordBase) * float64(len(matched)) / float64(len(words))))
		return Result{Score: score, Reason: "matched words: " + strings.Join(matched, ", ")}
	}

	return Result{Score: 0, Reason: "no match"}
}

// Rank scores every candidate and orders them descending by score. The sort
// is stable: candidates that tie keep their input order, so catalog-declared
// ordering is the implicit tie-break.
func Rank(query string, candidates []Candidate) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for _, candidate := range candidates {
		scored = append(scored, Scored{
			Candidate: candidate,
			Result:    Score(query, candidate.Name, candidate.Synonyms),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// ResolveOne returns the single candidate scoring at or above threshold.
// When the best score is below threshold it returns ErrNoMatch; when two or
// more candidates tie at the best score it returns ErrAmbiguousMatch, since
// picking one silently would hide a disambiguation the caller must make.
func ResolveOne(query string, candidates []Candidate, threshold int) (Scored, error) {
	ranked := Rank(query, candidates)
	if len(ranked) == 0 || ranked[0].Score < threshold || ranked[0].Score == 0 {
		return Scored{}, ErrNoMatch
	}
	if len(ranked) > 1 && ranked[1].Score == ranked[0].Score {
		return Scored{}, ErrAmbiguousMatch
	}
	return ranked[0], nil
}

// normalize lowercases, strips diacritics (NFD, drop combining marks), and
// trims surrounding whitespace so "Cartão" and "cartao" compare equal.
func normalize(text string) string {
	decomposed := norm.NFD.String(strings.ToLower(strings.TrimSpace(text)))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
