// Package normalize provides the pure string transforms applied to query
// names and department hints before any directory search or scoring.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// honorifics are stripped case-insensitively from the start of a query,
// with or without a trailing period.
var honorifics = map[string]bool{
	"prof":      true,
	"professor": true,
	"dr":        true,
	"mr":        true,
	"ms":        true,
	"mrs":       true,
}

// departments maps alphabetic-only lowercased abbreviations to the
// canonical department names the directory uses.
var departments = map[string]string{
	"cs":      "Computer Science",
	"cse":     "Computer Science",
	"csci":    "Computer Science",
	"comp":    "Computer Science",
	"ee":      "Electrical Engineering",
	"ece":     "Electrical Engineering",
	"me":      "Mechanical Engineering",
	"mech":    "Mechanical Engineering",
	"che":     "Chemical Engineering",
	"cee":     "Civil Engineering",
	"aero":    "Aerospace Engineering",
	"ie":      "Industrial Engineering",
	"mse":     "Materials Science",
	"math":    "Mathematics",
	"maths":   "Mathematics",
	"stat":    "Statistics",
	"stats":   "Statistics",
	"bio":     "Biology",
	"biol":    "Biology",
	"biochem": "Biochemistry",
	"chem":    "Chemistry",
	"phys":    "Physics",
	"astro":   "Astronomy",
	"geol":    "Geology",
	"geog":    "Geography",
	"envsci":  "Environmental Science",
	"psych":   "Psychology",
	"psy":     "Psychology",
	"econ":    "Economics",
	"polisci": "Political Science",
	"soc":     "Sociology",
	"anthro":  "Anthropology",
	"anth":    "Anthropology",
	"hist":    "History",
	"engl":    "English",
	"phil":    "Philosophy",
	"ling":    "Linguistics",
	"comm":    "Communications",
	"span":    "Spanish",
	"fren":    "French",
	"ger":     "German",
	"mus":     "Music",
	"bus":     "Business",
	"mgmt":    "Management",
	"mktg":    "Marketing",
	"acct":    "Accounting",
	"fin":     "Finance",
	"nurs":    "Nursing",
	"kin":     "Kinesiology",
	"nutr":    "Nutrition",
}

// Name cleans a raw scraped name: leading honorifics go, diacritics are
// folded to their base letters, and runs of whitespace collapse to one
// space. Casing is preserved for display; comparisons fold later.
func Name(raw string) string {
	fields := strings.Fields(foldDiacritics(raw))
	for len(fields) > 0 && honorifics[strings.ToLower(strings.TrimSuffix(fields[0], "."))] {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}

// SplitName returns the given and family name tokens of a cleaned name.
// The first token is the given name and the last token the family name;
// middle tokens never shift the surname boundary. A single token serves
// as both.
func SplitName(name string) (first, last string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], fields[0]
	default:
		return fields[0], fields[len(fields)-1]
	}
}

// Department canonicalizes a department hint. Known abbreviations map to
// the directory's canonical name; anything unmapped passes through
// trimmed but otherwise unchanged.
func Department(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if canonical, ok := departments[alphaOnly(strings.ToLower(trimmed))]; ok {
		return canonical
	}
	return trimmed
}

// foldDiacritics decomposes accented letters and drops the combining
// marks, so "José" compares equal to "Jose".
func foldDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
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

func alphaOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
