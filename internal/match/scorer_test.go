package match

import (
	"errors"
	"strings"
	"testing"
)

func TestScoreRulePrecedence(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		candidate string
		synonyms  []string
		wantScore int
	}{
		{name: "exact name", query: "fatura", candidate: "Fatura", synonyms: []string{"boleto"}, wantScore: 100},
		{name: "exact name beats synonym", query: "fatura", candidate: "Fatura", synonyms: []string{"fatura"}, wantScore: 100},
		{name: "exact synonym", query: "boleto", candidate: "Fatura", synonyms: []string{"Boleto"}, wantScore: 95},
		{name: "name contains query", query: "fatur", candidate: "Fatura", synonyms: nil, wantScore: 80},
		{name: "synonym contains query", query: "bolet", candidate: "Fatura", synonyms: []string{"boleto"}, wantScore: 70},
		{name: "query contains name", query: "minha fatura atrasada", candidate: "Fatura", synonyms: nil, wantScore: 60},
		{name: "half the words", query: "fatura foobar", candidate: "Conta com Fatura", synonyms: nil, wantScore: 25},
		{name: "no match", query: "pix", candidate: "Fatura", synonyms: []string{"boleto"}, wantScore: 0},
		{name: "accent insensitive", query: "cartao", candidate: "Cartão", synonyms: nil, wantScore: 100},
		{name: "empty query", query: "  ", candidate: "Fatura", synonyms: nil, wantScore: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.query, tt.candidate, tt.synonyms)
			if got.Score != tt.wantScore {
				t.Fatalf("Score(%q, %q) = %d, want %d (reason %q)", tt.query, tt.candidate, got.Score, tt.wantScore, got.Reason)
			}
		})
	}
}

func TestScoreReasons(t *testing.T) {
	got := Score("fatura", "Fatura", nil)
	if got.Reason != "exact name match" {
		t.Fatalf("unexpected reason %q", got.Reason)
	}

	got = Score("bolet", "Fatura", []string{"boleto"})
	if !strings.Contains(got.Reason, "boleto") {
		t.Fatalf("synonym reason should name the matched synonym, got %q", got.Reason)
	}

	got = Score("fatura vencida ontem", "Fatura Digital", nil)
	if !strings.Contains(got.Reason, "fatura") {
		t.Fatalf("word-match reason should list matched words, got %q", got.Reason)
	}
}

func TestScoreWordFractionRounds(t *testing.T) {
	// 1 of 3 words: round(50/3) = 17.
	got := Score("fatura abc xyz", "Conta com Fatura", nil)
	if got.Score != 17 {
		t.Fatalf("expected rounded word score 17, got %d", got.Score)
	}
}

func TestScoreMonotonicity(t *testing.T) {
	queries := []string{"fatura", "limite", "cartão de crédito"}
	for _, q := range queries {
		if got := Score(q, q, nil); got.Score != 100 {
			t.Fatalf("Score(%q, %q) = %d, want 100", q, q, got.Score)
		}
		if got := Score(q, "algo totalmente diferente 999", []string{q}); got.Score != 95 {
			t.Fatalf("synonym self-match for %q = %d, want 95", q, got.Score)
		}
	}

	// Unrelated synonyms never raise the score against an unrelated name.
	base := Score("pix", "Fatura", nil)
	padded := Score("pix", "Fatura", []string{"boleto", "cobrança", "mensalidade"})
	if padded.Score > base.Score {
		t.Fatalf("unrelated synonyms raised score from %d to %d", base.Score, padded.Score)
	}
}

func TestRankIsStableOnTies(t *testing.T) {
	candidates := []Candidate{
		{ID: 1, Name: "Cartão Gold"},
		{ID: 2, Name: "Cartão Platinum"},
		{ID: 3, Name: "Conta"},
	}
	ranked := Rank("cartão", candidates)
	if ranked[0].ID != 1 || ranked[1].ID != 2 {
		t.Fatalf("tie-break must preserve input order, got %d then %d", ranked[0].ID, ranked[1].ID)
	}
	if ranked[2].ID != 3 {
		t.Fatalf("lowest score must sort last, got %d", ranked[2].ID)
	}
}

func TestResolveOne(t *testing.T) {
	candidates := []Candidate{
		{ID: 1, Name: "Fatura", Synonyms: []string{"boleto"}},
		{ID: 2, Name: "Empréstimo"},
	}

	got, err := ResolveOne("fatura", candidates, DefaultThreshold)
	if err != nil {
		t.Fatalf("ResolveOne() error = %v", err)
	}
	if got.ID != 1 || got.Score != 100 {
		t.Fatalf("unexpected resolution: id=%d score=%d", got.ID, got.Score)
	}

	if _, err := ResolveOne("consórcio", candidates, DefaultThreshold); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}

	tied := []Candidate{
		{ID: 1, Name: "Cartão Gold"},
		{ID: 2, Name: "Cartão Black"},
	}
	if _, err := ResolveOne("cartão", tied, DefaultThreshold); !errors.Is(err, ErrAmbiguousMatch) {
		t.Fatalf("expected ErrAmbiguousMatch, got %v", err)
	}
}
