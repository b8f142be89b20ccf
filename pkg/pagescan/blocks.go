package pagescan

import (
	"regexp"
	"sort"
	"strings"

	"github.com/codeGROOVE-dev/profstalker/pkg/hint"
)

// containerTags are the elements treated as context levels around a
// selection. Inline wrappers are included because a scraped name is
// often the text of a link or span.
var containerTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "em": true, "i": true,
	"label": true, "small": true, "span": true, "strong": true,
	"p": true, "li": true, "ul": true, "ol": true, "dd": true, "dt": true,
	"td": true, "th": true, "tr": true, "table": true, "caption": true,
	"div": true, "section": true, "article": true, "header": true,
	"footer": true, "aside": true, "main": true, "nav": true,
	"figcaption": true, "body": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// voidTags never enclose content and are skipped while tracking nesting.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

var tagTokenPattern = regexp.MustCompile(`<(/?)([a-zA-Z][a-zA-Z0-9]*)[^>]*?(/?)>`)

// span is one completed element: the byte range of its inner content.
type span struct {
	tag        string
	start, end int
}

// maxBlocks caps how many enclosing levels BlocksAround reports. It
// matches the traversal bound of the hint parser.
const maxBlocks = 8

// BlocksAround locates the first case-insensitive occurrence of the
// selection text that sits inside a container element and returns the
// enclosing elements innermost to outermost, each with its own stripped
// text and the text of the nearest completed element before it.
// Occurrences outside any container (a name echoed in the page title)
// are skipped. Returns nil when no enclosed occurrence exists.
func BlocksAround(htmlText, selection string) []hint.Block {
	selection = strings.TrimSpace(selection)
	if selection == "" {
		return nil
	}

	spans := elementSpans(htmlText)
	lower := strings.ToLower(htmlText)
	needle := strings.ToLower(selection)

	var enclosing []span
	for from := 0; ; {
		i := strings.Index(lower[from:], needle)
		if i < 0 {
			return nil
		}
		at := from + i
		enclosing = enclosing[:0]
		for _, s := range spans {
			if s.start <= at && at < s.end {
				enclosing = append(enclosing, s)
			}
		}
		if len(enclosing) > 0 {
			break
		}
		from = at + 1
	}

	// Smallest content range first. Proper nesting makes range size a
	// depth ordering.
	sort.SliceStable(enclosing, func(i, j int) bool {
		return enclosing[i].end-enclosing[i].start < enclosing[j].end-enclosing[j].start
	})
	if len(enclosing) > maxBlocks {
		enclosing = enclosing[:maxBlocks]
	}

	blocks := make([]hint.Block, 0, len(enclosing))
	for _, enc := range enclosing {
		blocks = append(blocks, hint.Block{
			Text:        StripTags(htmlText[enc.start:enc.end]),
			PrevSibling: precedingText(spans, enc, htmlText),
		})
	}
	return blocks
}

// precedingText returns the stripped text of the latest element that
// closed before the given one opened: the regex-world stand-in for a
// preceding sibling.
func precedingText(spans []span, enc span, htmlText string) string {
	best := span{start: -1}
	for _, s := range spans {
		if s.end <= enc.start && s.end > best.end {
			best = s
		}
	}
	if best.start < 0 {
		return ""
	}
	return StripTags(htmlText[best.start:best.end])
}

// elementSpans tokenizes the markup once, pairing open and close tags
// of container elements with a stack. Unclosed elements are dropped;
// stray close tags are ignored.
func elementSpans(htmlText string) []span {
	type open struct {
		tag   string
		start int
	}
	var stack []open
	var spans []span

	for _, loc := range tagTokenPattern.FindAllStringSubmatchIndex(htmlText, -1) {
		closing := loc[3] > loc[2]
		name := strings.ToLower(htmlText[loc[4]:loc[5]])
		selfClosed := loc[7] > loc[6]
		if !containerTags[name] || voidTags[name] || selfClosed {
			continue
		}
		if !closing {
			stack = append(stack, open{tag: name, start: loc[1]})
			continue
		}
		// Pop to the matching open, discarding tags left unclosed.
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].tag != name {
				continue
			}
			spans = append(spans, span{tag: name, start: stack[i].start, end: loc[0]})
			stack = stack[:i]
			break
		}
	}
	return spans
}
