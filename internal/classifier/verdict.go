package classifier

import (
	"slices"
	"strings"
	"unicode"

	"TruthFilter/internal/domain"
)

var verdictMarkers = []struct {
	marker  string
	verdict domain.Verdict
}{
	{"[VERDICT: TRUE]", domain.VerdictTrue},
	{"[VERDICT: FALSE]", domain.VerdictFalse},
	{"[VERDICT: MIXED]", domain.VerdictMixed},
}

// ParseVerdict extracts the verdict from a model response. Exact markers win
// in TRUE, FALSE, MIXED order; otherwise a keyword heuristic applies and the
// result defaults to MIXED.
func ParseVerdict(text string) domain.Verdict {
	for _, m := range verdictMarkers {
		if strings.Contains(text, m.marker) {
			return m.verdict
		}
	}

	upper := strings.ToUpper(text)
	switch {
	case strings.Contains(upper, "FALSE"):
		return domain.VerdictFalse
	case strings.Contains(upper, "TRUE") && !strings.Contains(upper, "NOT TRUE"):
		return domain.VerdictTrue
	default:
		return domain.VerdictMixed
	}
}

// worthChecking reads a stage-one answer. Only a reply that opens with a bare
// NO token and never says YES filters the post; anything else stays relevant.
func worthChecking(answer string) bool {
	words := strings.FieldsFunc(strings.ToUpper(answer), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 || words[0] != "NO" {
		return true
	}
	return slices.Contains(words, "YES")
}
