package matching

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/medifusion/platform/pkg/common/models"
)

// Bonuses applied on top of name similarity when high-confidence identifiers
// agree exactly. The resulting score range is 0-105: the bonuses are left
// uncapped so that exact identifier agreement can push a strong name match
// over the threshold, while never substituting for name similarity itself.
const (
	dobBonus = 2
	ssnBonus = 3
)

// Comparator scores one candidate against one incoming record using
// order-independent name similarity plus exact-match identifier boosts.
type Comparator struct {
	matchThreshold int
}

func NewComparator(matchThreshold int) *Comparator {
	if matchThreshold <= 0 {
		matchThreshold = DefaultRules().MatchThreshold
	}
	return &Comparator{matchThreshold: matchThreshold}
}

// Score returns the deterministic similarity score and whether it clears the
// match threshold.
func (c *Comparator) Score(candidate Candidate, incoming models.IncomingRecord) (bool, int) {
	score := TokenSortRatio(candidate.Name, incoming.Name)

	if incoming.DOB != "" && candidate.DOB != "" && incoming.DOB == candidate.DOB {
		score += dobBonus
	}
	if incoming.SSN != "" && candidate.SSN != "" && incoming.SSN == candidate.SSN {
		score += ssnBonus
	}

	return score >= c.matchThreshold, score
}

// TokenSortRatio compares two strings after lowercasing, splitting into
// tokens and sorting them, so "Smith John" and "John Smith" score 100.
// The result is a similarity percentage in 0-100 derived from edit distance.
func TokenSortRatio(a, b string) int {
	at := sortTokens(a)
	bt := sortTokens(b)

	if at == bt {
		return 100
	}
	if at == "" || bt == "" {
		return 0
	}

	distance := levenshtein.ComputeDistance(at, bt)
	longest := utf8.RuneCountInString(at)
	if l := utf8.RuneCountInString(bt); l > longest {
		longest = l
	}

	return int(math.Round(100 * (1 - float64(distance)/float64(longest))))
}

func sortTokens(s string) string {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
