package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const suggestionCutoff = 0.6

func chars(s string) []string {
	return strings.Split(s, "")
}

// closeMatch returns the candidate most similar to word with a ratio of at least suggestionCutoff.
// Ties go to the alphabetically first candidate.
func closeMatch(word string, candidates map[string]bool) (string, bool) {
	names := make([]string, 0, len(candidates))
	for c := range candidates {
		if c != word {
			names = append(names, c)
		}
	}
	sort.Strings(names)

	var (
		best      string
		bestRatio float64
		m         = difflib.NewMatcher(nil, chars(word))
	)
	for _, name := range names {
		m.SetSeq1(chars(name))
		if m.RealQuickRatio() < suggestionCutoff || m.QuickRatio() < suggestionCutoff {
			continue
		}
		if r := m.Ratio(); r >= suggestionCutoff && r > bestRatio {
			best, bestRatio = name, r
		}
	}
	return best, best != ""
}

func suggestionFor(name string, known map[string]bool) string {
	candidates := make(map[string]bool, len(known)+len(builtins))
	for k := range known {
		candidates[k] = true
	}
	for b := range builtins {
		candidates[b] = true
	}
	if match, ok := closeMatch(name, candidates); ok {
		return fmt.Sprintf("did you mean '%s'?", match)
	}
	return "check that the name is defined before it is used"
}
