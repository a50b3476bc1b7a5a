// Package textdiff computes word-level change descriptions between two text
// blobs, used to show a reviewer how a suggested article edit differs from
// the current article. It only renders; it never merges.
package textdiff

import "strings"

// RunType tags a span of text in a diff.
type RunType string

const (
	Equal   RunType = "equal"
	Added   RunType = "added"
	Removed RunType = "removed"
)

// Run is one contiguous span of the diff. Concatenating the values of all
// runs whose type is not Removed reconstructs the after text; skipping Added
// reconstructs the before text.
type Run struct {
	Type  RunType `json:"type"`
	Value string  `json:"value"`
}

// tokenize splits on whitespace while keeping each whitespace stretch as its
// own token, so diffs can be concatenated back losslessly.
func tokenize(text string) []string {
	if text == "" {
		return nil
	}
	tokens := make([]string, 0, len(text)/4)
	start := 0
	inSpace := isSpace(rune(text[0]))
	for i, r := range text {
		if isSpace(r) != inSpace {
			tokens = append(tokens, text[start:i])
			start = i
			inSpace = !inSpace
		}
	}
	tokens = append(tokens, text[start:])
	return tokens
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// coalesce merges adjacent runs of the same type and drops empty runs.
func coalesce(runs []Run) []Run {
	out := make([]Run, 0, len(runs))
	for _, run := range runs {
		if run.Value == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Type == run.Type {
			out[n-1].Value += run.Value
			continue
		}
		out = append(out, run)
	}
	return out
}

// WordsLCS is the self-contained strategy: a longest-common-subsequence table
// over the token sequences, O(n*m) in token counts. The backtrack prefers
// emitting an added token over a removed one when the two predecessor cells
// tie, which makes the output deterministic.
func WordsLCS(before, after string) []Run {
	if before == after {
		if before == "" {
			return []Run{}
		}
		return []Run{{Type: Equal, Value: before}}
	}

	a := tokenize(before)
	b := tokenize(after)

	table := make([][]int, len(a)+1)
	for i := range table {
		table[i] = make([]int, len(b)+1)
	}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else if table[i-1][j] > table[i][j-1] {
				table[i][j] = table[i-1][j]
			} else {
				table[i][j] = table[i][j-1]
			}
		}
	}

	runs := make([]Run, 0, len(a)+len(b))
	i, j := len(a), len(b)
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && a[i-1] == b[j-1]:
			runs = append(runs, Run{Type: Equal, Value: a[i-1]})
			i--
			j--
		case j > 0 && (i == 0 || table[i][j-1] >= table[i-1][j]):
			runs = append(runs, Run{Type: Added, Value: b[j-1]})
			j--
		default:
			runs = append(runs, Run{Type: Removed, Value: a[i-1]})
			i--
		}
	}

	for left, right := 0, len(runs)-1; left < right; left, right = left+1, right-1 {
		runs[left], runs[right] = runs[right], runs[left]
	}
	return coalesce(runs)
}

// Reconstruct rebuilds one side of the diff: the after text when side is
// Added, the before text when side is Removed.
func Reconstruct(runs []Run, side RunType) string {
	var b strings.Builder
	for _, run := range runs {
		if run.Type == Equal || run.Type == side {
			b.WriteString(run.Value)
		}
	}
	return b.String()
}
