package schema

import (
	"math"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/sells-group/recon-cli/internal/model"
)

// Match methods.
const (
	MethodExact = "exact"
	MethodFuzzy = "fuzzy"
	MethodNone  = "none"
)

// containmentScore is credited when a synonym appears whole inside a
// column name ("Amount spent (INR)" contains "amount spent").
const containmentScore = 0.80

// minContainLen keeps short synonyms ("dt", "age") from matching inside
// unrelated names.
const minContainLen = 4

var normalizer = strings.NewReplacer("_", " ", "-", " ", "\t", " ")

// normalize lowercases, unifies separators and collapses whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(normalizer.Replace(strings.ToLower(s))), " ")
}

// candidate is the best column found for a field on one side.
type candidate struct {
	column string
	index  int
	score  float64
	method string
}

// score rates how well column name col fits field f.
func score(f model.Field, col string) (float64, string) {
	name := normalize(col)
	if name == "" {
		return 0, MethodNone
	}
	names := Synonyms(f)
	for _, s := range names {
		if name == s {
			return 1, MethodExact
		}
	}

	best := 0.0
	for _, s := range names {
		if sim := levenshtein.Similarity(name, s, nil); sim > best {
			best = sim
		}
		if len(s) >= minContainLen && containsWord(name, s) && best < containmentScore {
			best = containmentScore
		}
	}
	return best, MethodFuzzy
}

// containsWord reports whether needle occurs in hay on word boundaries.
func containsWord(hay, needle string) bool {
	for start := 0; ; {
		i := strings.Index(hay[start:], needle)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(needle)
		if (i == 0 || !isWordByte(hay[i-1])) && (end == len(hay) || !isWordByte(hay[end])) {
			return true
		}
		start = i + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// bestColumn picks the highest scoring unclaimed column for f. Equal scores
// go to the earlier column.
func bestColumn(f model.Field, columns []string, claimed map[string]bool, accept float64) (candidate, bool) {
	best := candidate{index: -1}
	for i, col := range columns {
		if claimed[col] {
			continue
		}
		s, method := score(f, col)
		if s < accept {
			continue
		}
		if best.index < 0 || s > best.score {
			best = candidate{column: col, index: i, score: s, method: method}
		}
	}
	if best.index < 0 {
		return candidate{}, false
	}
	best.score = math.Round(best.score*10000) / 10000
	return best, true
}
