package textdiff

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Words is the library-backed strategy. Tokens are mapped to runes so the
// diff primitive operates on whole words instead of characters (the same
// trick the library itself uses for line mode), then the spans are decoded,
// coalesced, and ordered removed-before-added inside each changed region.
func Words(before, after string) []Run {
	if before == after {
		if before == "" {
			return []Run{}
		}
		return []Run{{Type: Equal, Value: before}}
	}

	encodedBefore, encodedAfter, tokens := tokensToRunes(tokenize(before), tokenize(after))

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMainRunes(encodedBefore, encodedAfter, false)

	runs := make([]Run, 0, len(diffs))
	for _, diff := range diffs {
		var b []byte
		for _, r := range diff.Text {
			b = append(b, tokens[decodeIndex(r)]...)
		}
		runs = append(runs, Run{Type: runType(diff.Type), Value: string(b)})
	}
	return coalesce(orderChangedRegions(runs))
}

func runType(op diffmatchpatch.Operation) RunType {
	switch op {
	case diffmatchpatch.DiffInsert:
		return Added
	case diffmatchpatch.DiffDelete:
		return Removed
	default:
		return Equal
	}
}

// orderChangedRegions rewrites each stretch between equal runs so that all
// removed spans come before all added spans.
func orderChangedRegions(runs []Run) []Run {
	out := make([]Run, 0, len(runs))
	var removed, added []Run
	flush := func() {
		out = append(out, removed...)
		out = append(out, added...)
		removed, added = removed[:0], added[:0]
	}
	for _, run := range runs {
		switch run.Type {
		case Removed:
			removed = append(removed, run)
		case Added:
			added = append(added, run)
		default:
			flush()
			out = append(out, run)
		}
	}
	flush()
	return out
}

// tokensToRunes assigns each distinct token a rune and encodes both token
// sequences. Index 0 is reserved; indexes that would land in the surrogate
// block are shifted past it.
func tokensToRunes(a, b []string) ([]rune, []rune, []string) {
	tokens := []string{""}
	seen := map[string]rune{}
	encode := func(seq []string) []rune {
		encoded := make([]rune, 0, len(seq))
		for _, token := range seq {
			r, ok := seen[token]
			if !ok {
				r = encodeIndex(len(tokens))
				seen[token] = r
				tokens = append(tokens, token)
			}
			encoded = append(encoded, r)
		}
		return encoded
	}
	encodedA := encode(a)
	encodedB := encode(b)
	return encodedA, encodedB, tokens
}

const surrogateStart, surrogateSize = 0xD800, 0x800

func encodeIndex(i int) rune {
	if i >= surrogateStart {
		return rune(i + surrogateSize)
	}
	return rune(i)
}

func decodeIndex(r rune) int {
	if r >= surrogateStart+surrogateSize {
		return int(r) - surrogateSize
	}
	return int(r)
}
