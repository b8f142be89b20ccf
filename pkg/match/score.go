package match

import (
	"strings"

	"github.com/codeGROOVE-dev/profstalker/pkg/directory"
	"github.com/codeGROOVE-dev/profstalker/pkg/normalize"
)

// Score bonuses. Surname agreement dominates, given-name agreement
// grades down through nickname and substring evidence, and department
// agreement adds a small tiebreaker.
const (
	bonusLastStrong  = 50
	bonusLastClose   = 30
	bonusFirstStrong = 40
	bonusFirstNick   = 35
	bonusFirstClose  = 25
	bonusFirstSub    = 20
	bonusDepartment  = 15
)

// ScoreProfessor scores how well a record matches a raw query name and
// an optional normalized department. Scores are plain sums, never
// normalized, and comparable only among candidates of one search call.
// A surname mismatch scores 0 outright: no amount of first-name or
// department agreement makes it the same person.
func ScoreProfessor(p directory.Professor, queryName, department string) int {
	first, last := normalize.SplitName(normalize.Name(queryName))
	if last == "" {
		return 0
	}

	score := 0
	switch s := JaroWinkler(p.LastName, last); {
	case s > 0.9:
		score += bonusLastStrong
	case s > 0.8:
		score += bonusLastClose
	default:
		return 0
	}

	recordFirst := strings.ToLower(p.FirstName)
	queryFirst := strings.ToLower(first)
	switch s := JaroWinkler(p.FirstName, first); {
	case s > 0.9:
		score += bonusFirstStrong
	case IsNickname(recordFirst, queryFirst):
		score += bonusFirstNick
	case s > 0.8:
		score += bonusFirstClose
	case recordFirst != "" && queryFirst != "" &&
		(strings.Contains(recordFirst, queryFirst) || strings.Contains(queryFirst, recordFirst)):
		score += bonusFirstSub
	default:
		score += int(s * 10)
	}

	if department != "" && DepartmentsOverlap(p.Department, department) {
		score += bonusDepartment
	}
	return score
}

// DepartmentsOverlap compares departments on their alphanumeric-only
// case-folded forms, so "Computer Science" overlaps "Computer Science
// & Engineering". Either side empty is a non-match.
func DepartmentsOverlap(a, b string) bool {
	ca := alnum(a)
	cb := alnum(b)
	if ca == "" || cb == "" {
		return false
	}
	return strings.Contains(ca, cb) || strings.Contains(cb, ca)
}

func alnum(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
