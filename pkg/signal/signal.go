// Package signal aggregates weighted institution-name candidates
// observed on a page into a single best guess. Cleaning, rejection, and
// keyword policy live in ordered rule tables so each can be tuned and
// tested on its own.
package signal

import (
	"regexp"
	"strings"
)

// Source identifies the observation point a signal came from, highest
// to lowest inherent trust.
type Source string

// Observation points. Manual overrides and site metadata are trusted
// enough to bypass the institution-keyword gate.
const (
	SourceManual   Source = "manual"
	SourceSiteMeta Source = "site-meta"
	SourceTitle    Source = "title"
	SourceHeading  Source = "heading"
	SourceFooter   Source = "footer"
)

// defaultWeights ranks the observation points by trust.
var defaultWeights = map[Source]int{
	SourceManual:   100,
	SourceSiteMeta: 10,
	SourceTitle:    6,
	SourceHeading:  4,
	SourceFooter:   2,
}

// DefaultWeight returns the inherent weight of a source. Unknown
// sources count for 1 so a malformed collaborator still contributes.
func DefaultWeight(s Source) int {
	if w, ok := defaultWeights[s]; ok {
		return w
	}
	return 1
}

func (s Source) trusted() bool {
	return s == SourceManual || s == SourceSiteMeta
}

// PageSignal is one observed candidate string with provenance.
// Ephemeral: built during a scan and discarded after selection.
type PageSignal struct {
	Text   string
	Weight int
	Source Source
}

// Candidate is a deduplicated aggregate of signals sharing the same
// cleaned text.
type Candidate struct {
	Name    string
	Weight  int
	Sources []Source
}

// stripPrefixes and stripSuffixes remove page boilerplate around an
// institution name, applied case-insensitively and repeatedly.
var stripPrefixes = []string{
	"welcome to ",
	"login to ",
	"log in to ",
	"sign in to ",
	"home - ",
	"home | ",
	"the ",
}

var stripSuffixes = []string{
	" - home",
	" | home",
	" homepage",
	" home page",
	" login",
	" portal",
	" website",
	" online",
}

// domainArtifact trims a trailing domain extension left over when a
// hostname leaks into a title ("myuw.edu").
var domainArtifact = regexp.MustCompile(`(?i)\.(edu|com|org|net)$`)

// genericTokens never name an institution on their own.
var genericTokens = map[string]bool{
	"login":         true,
	"log in":        true,
	"sign in":       true,
	"dashboard":     true,
	"home":          true,
	"homepage":      true,
	"welcome":       true,
	"portal":        true,
	"menu":          true,
	"search":        true,
	"calendar":      true,
	"courses":       true,
	"syllabus":      true,
	"announcements": true,
	"grades":        true,
	"modules":       true,
	"canvas":        true,
	"blackboard":    true,
	"moodle":        true,
}

// threeDigitRun marks course-code noise ("CSE 142 - Autumn").
var threeDigitRun = regexp.MustCompile(`\d{3}`)

// courseTitlePatterns reject strings that read like course titles
// rather than institution names.
var courseTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^introduction\b`),
	regexp.MustCompile(`(?i)^intro to\b`),
	regexp.MustCompile(`(?i)^history of\b`),
	regexp.MustCompile(`(?i)^principles of\b`),
	regexp.MustCompile(`(?i)^fundamentals of\b`),
	regexp.MustCompile(`(?i)^foundations of\b`),
}

// institutionKeywords gate untrusted sources: without one of these the
// string is assumed to be page furniture, not a school.
var institutionKeywords = []string{
	"university",
	"college",
	"institute",
	"polytechnic",
	"academy",
	"school",
	"seminary",
}

// Best selects the institution-name candidate with the highest
// accumulated weight from one scan's signals, or nil if nothing
// survives cleaning and rejection. Repeated observations of the same
// cleaned text sum their weights and append provenance. Ties keep the
// first-inserted candidate, so the result is deterministic for a fixed
// signal list.
func Best(signals []PageSignal, domain string) *Candidate {
	edu := IsEducationalDomain(domain)

	byName := make(map[string]*Candidate)
	var order []*Candidate
	for _, sig := range signals {
		name := Clean(sig.Text)
		if name == "" || rejected(name) {
			continue
		}
		if !hasInstitutionKeyword(name) && !sig.Source.trusted() && !edu {
			continue
		}
		key := strings.ToLower(name)
		cand, ok := byName[key]
		if !ok {
			cand = &Candidate{Name: name}
			byName[key] = cand
			order = append(order, cand)
		}
		cand.Weight += sig.Weight
		cand.Sources = append(cand.Sources, sig.Source)
	}

	var best *Candidate
	for _, cand := range order {
		if best == nil || cand.Weight > best.Weight {
			best = cand
		}
	}
	return best
}

// Clean strips boilerplate and domain artifacts from one observed text.
func Clean(text string) string {
	s := strings.TrimSpace(text)
	for changed := true; changed; {
		changed = false
		lower := strings.ToLower(s)
		for _, p := range stripPrefixes {
			if strings.HasPrefix(lower, p) {
				s = strings.TrimSpace(s[len(p):])
				changed = true
				break
			}
		}
		lower = strings.ToLower(s)
		for _, suf := range stripSuffixes {
			if strings.HasSuffix(lower, suf) {
				s = strings.TrimSpace(s[:len(s)-len(suf)])
				changed = true
				break
			}
		}
	}
	s = domainArtifact.ReplaceAllString(s, "")
	return strings.Trim(s, " -|–—:·")
}

func rejected(name string) bool {
	if genericTokens[strings.ToLower(name)] {
		return true
	}
	if threeDigitRun.MatchString(name) {
		return true
	}
	for _, p := range courseTitlePatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

func hasInstitutionKeyword(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range institutionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsEducationalDomain reports whether a hostname sits under an
// educational top-level domain (.edu, .edu.xx, .ac.xx).
func IsEducationalDomain(domain string) bool {
	d := strings.ToLower(strings.TrimSpace(domain))
	return strings.HasSuffix(d, ".edu") ||
		strings.Contains(d, ".edu.") ||
		strings.Contains(d, ".ac.")
}
