// Package hint extracts department and course-code hints from the text
// blocks surrounding a selected name. Extraction policy is a set of
// ordered rule tables over plain strings, so it can be unit-tested
// without any page in hand.
package hint

import (
	"regexp"
	"strings"

	"github.com/codeGROOVE-dev/profstalker/pkg/normalize"
)

// maxDepth bounds the block traversal: levels beyond this never
// contribute, however deep the page nests.
const maxDepth = 8

// maxDepartmentWords keeps a department capture from swallowing prose.
const maxDepartmentWords = 6

// Block is one traversal level: the block's own text plus the text of
// its immediately preceding sibling, which is checked at the same level
// before ascending.
type Block struct {
	Text        string
	PrevSibling string
}

// Hint is the parser output. Empty strings mean the signal was absent.
type Hint struct {
	Department string `json:",omitempty"`
	Course     string `json:",omitempty"`
}

// coursePattern matches course codes like "CSE 142", "PHYS121A", or
// "ee-235": a short letter group, three or four digits, optional
// section letter.
var coursePattern = regexp.MustCompile(`\b([A-Za-z]{2,8})[ \-]?(\d{3,4})([A-Za-z])?\b`)

// courseNoise lists letter groups that look like course subjects but
// are structural page noise: locations, terms, day patterns.
var courseNoise = map[string]bool{
	"room": true, "rm": true, "bldg": true, "hall": true, "suite": true,
	"apt": true, "box": true, "ext": true, "sec": true, "section": true,
	"unit": true, "page": true,
	"fall": true, "spring": true, "winter": true, "summer": true, "autumn": true,
	"mon": true, "tue": true, "tues": true, "wed": true, "thu": true,
	"thur": true, "thurs": true, "fri": true, "sat": true, "sun": true,
	"mwf": true, "tth": true, "mw": true, "tr": true,
}

// departmentPatterns are tried in order; the first surviving capture
// wins. The "<Words> Department" form is deliberately case-sensitive:
// the capitalized run is what separates "Chemistry Department" from
// prose like "welcome to the department".
var departmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b((?:[A-Z][A-Za-z&']*\s+)*[A-Z][A-Za-z&']*)\s+[Dd]epartment\b`),
	regexp.MustCompile(`(?i)\bdepartment\s+(?:of\s+)?([A-Za-z&' -]+)`),
	regexp.MustCompile(`(?i)\bdept\.?\s+(?:of\s+)?([A-Za-z&' -]+)`),
}

// genericDepartments are navigation labels the patterns sometimes
// capture; they are never real departments.
var genericDepartments = map[string]bool{
	"home":    true,
	"portal":  true,
	"login":   true,
	"welcome": true,
	"site":    true,
}

// leadingFiller is trimmed off the front of a department capture.
var leadingFiller = map[string]bool{
	"the": true,
	"a":   true,
	"an":  true,
	"our": true,
}

// captureStop truncates a department capture where prose resumes
// ("Department of Chemistry at the University" keeps "Chemistry").
var captureStop = map[string]bool{
	"at":      true,
	"in":      true,
	"on":      true,
	"for":     true,
	"with":    true,
	"offers":  true,
	"office":  true,
	"website": true,
	"page":    true,
}

// FromBlocks walks the blocks innermost to outermost, checking each
// block's text and then its preceding sibling, and stops each signal at
// its first match so inner context always wins. Traversal is capped at
// maxDepth levels.
func FromBlocks(blocks []Block) Hint {
	var h Hint
	depth := min(len(blocks), maxDepth)
	for i := range depth {
		for _, text := range []string{blocks[i].Text, blocks[i].PrevSibling} {
			if text == "" {
				continue
			}
			if h.Course == "" {
				h.Course = ExtractCourse(text)
			}
			if h.Department == "" {
				h.Department = ExtractDepartment(text)
			}
			if h.Course != "" && h.Department != "" {
				return h
			}
		}
	}
	return h
}

// FromHeadings is the document-wide fallback used when block traversal
// finds no department: the same department rules over heading texts.
func FromHeadings(headings []string) Hint {
	for _, text := range headings {
		if d := ExtractDepartment(text); d != "" {
			return Hint{Department: d}
		}
	}
	return Hint{}
}

// ExtractCourse returns the first course code in the text normalized to
// "SUBJ NNN" form, or "" if none survives the noise blacklist.
func ExtractCourse(text string) string {
	for _, m := range coursePattern.FindAllStringSubmatch(text, -1) {
		letters, digits, suffix := m[1], m[2], m[3]
		if courseNoise[strings.ToLower(letters)] {
			continue
		}
		return strings.ToUpper(letters) + " " + digits + strings.ToUpper(suffix)
	}
	return ""
}

// ExtractDepartment returns the canonicalized department named in the
// text, or "" if nothing non-generic matches.
func ExtractDepartment(text string) string {
	for _, p := range departmentPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		captured := trimCapture(m[1])
		if captured == "" || genericDepartments[strings.ToLower(captured)] {
			continue
		}
		return normalize.Department(captured)
	}
	return ""
}

func trimCapture(captured string) string {
	fields := strings.Fields(strings.Trim(captured, " -"))
	for len(fields) > 0 && leadingFiller[strings.ToLower(fields[0])] {
		fields = fields[1:]
	}
	for i, f := range fields {
		if captureStop[strings.ToLower(f)] {
			fields = fields[:i]
			break
		}
	}
	if len(fields) > maxDepartmentWords {
		fields = fields[:maxDepartmentWords]
	}
	return strings.Join(fields, " ")
}
