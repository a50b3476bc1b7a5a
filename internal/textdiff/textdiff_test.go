package textdiff

import (
	"testing"
)

var strategies = map[string]func(string, string) []Run{
	"Words":    Words,
	"WordsLCS": WordsLCS,
}

func TestDiffRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		before string
		after  string
	}{
		{name: "simple replacement", before: "o boleto vence hoje", after: "o boleto vence amanhã"},
		{name: "insertion", before: "pagamento via pix", after: "pagamento instantâneo via pix"},
		{name: "deletion", before: "acesse o app e toque em pagar", after: "acesse o app"},
		{name: "full rewrite", before: "uma coisa", after: "outra completamente diferente"},
		{name: "before empty", before: "", after: "texto novo"},
		{name: "after empty", before: "texto antigo", after: ""},
		{name: "whitespace change", before: "a  b", after: "a b"},
		{name: "multiline", before: "linha um\nlinha dois", after: "linha um\nlinha três"},
	}
	for strategyName, diff := range strategies {
		for _, tt := range cases {
			t.Run(strategyName+"/"+tt.name, func(t *testing.T) {
				runs := diff(tt.before, tt.after)
				if got := Reconstruct(runs, Added); got != tt.after {
					t.Fatalf("after reconstruction = %q, want %q (runs %v)", got, tt.after, runs)
				}
				if got := Reconstruct(runs, Removed); got != tt.before {
					t.Fatalf("before reconstruction = %q, want %q (runs %v)", got, tt.before, runs)
				}
			})
		}
	}
}

func TestDiffIdentity(t *testing.T) {
	for strategyName, diff := range strategies {
		t.Run(strategyName, func(t *testing.T) {
			runs := diff("mesmo texto", "mesmo texto")
			if len(runs) != 1 || runs[0].Type != Equal || runs[0].Value != "mesmo texto" {
				t.Fatalf("expected single equal run, got %v", runs)
			}
			if runs := diff("", ""); len(runs) != 0 {
				t.Fatalf("expected zero runs for empty inputs, got %v", runs)
			}
		})
	}
}

func TestDiffOneSideEmpty(t *testing.T) {
	for strategyName, diff := range strategies {
		t.Run(strategyName, func(t *testing.T) {
			runs := diff("", "tudo novo")
			if len(runs) != 1 || runs[0].Type != Added {
				t.Fatalf("expected single added run, got %v", runs)
			}
			runs = diff("tudo removido", "")
			if len(runs) != 1 || runs[0].Type != Removed {
				t.Fatalf("expected single removed run, got %v", runs)
			}
		})
	}
}

func TestDiffRunsAreCoalesced(t *testing.T) {
	for strategyName, diff := range strategies {
		t.Run(strategyName, func(t *testing.T) {
			runs := diff("a b c", "a x y")
			for i := 1; i < len(runs); i++ {
				if runs[i].Type == runs[i-1].Type {
					t.Fatalf("adjacent runs share type %s: %v", runs[i].Type, runs)
				}
			}
		})
	}
}

func TestWordsShowsRemovalsBeforeAdditions(t *testing.T) {
	runs := Words("o valor é 10 reais", "o valor é 25 reais")
	sawRemoved := false
	for _, run := range runs {
		switch run.Type {
		case Removed:
			sawRemoved = true
		case Added:
			if !sawRemoved {
				t.Fatalf("added span before removed span in changed region: %v", runs)
			}
		case Equal:
			sawRemoved = false
		}
	}
}

func TestTokenizeKeepsWhitespace(t *testing.T) {
	tokens := tokenize("um  dois\ntrês")
	var rebuilt string
	for _, token := range tokens {
		rebuilt += token
	}
	if rebuilt != "um  dois\ntrês" {
		t.Fatalf("tokenize lost content: %q", rebuilt)
	}
}
