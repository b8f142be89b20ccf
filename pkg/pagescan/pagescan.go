// Package pagescan turns raw HTML into the inputs the resolution
// pipeline consumes: weighted institution signals, heading texts, and
// the nearby text blocks around a selected name. Extraction is
// regex-based and never fails; malformed or absent markup just yields
// fewer signals.
package pagescan

import (
	"html"
	"regexp"
	"strings"

	"github.com/codeGROOVE-dev/profstalker/pkg/signal"
)

var (
	titlePattern   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	headingPattern = regexp.MustCompile(`(?is)<(h[1-3])[^>]*>(.*?)</h[1-3]>`)
	scriptPattern  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	stylePattern   = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
	spacePattern   = regexp.MustCompile(`\s+`)

	// titleSeparators split a page title into its segments. Bare
	// hyphens need surrounding spaces so hyphenated names survive.
	titleSeparators = regexp.MustCompile(`\s*[|•·]\s*|\s+[-–—]\s+`)

	// copyrightPattern captures the holder after a copyright mark,
	// with an optional year span in between.
	copyrightPattern = regexp.MustCompile(`(?i)(?:©|&copy;|&#169;|\(c\))\s*(?:\d{4}(?:\s*[-–]\s*\d{4})?\s*)?(?:by\s+)?([^<\n.|©]{2,80})`)
)

// maxHeadingSignals bounds how many headings feed the signal scorer;
// busy portals can carry dozens.
const maxHeadingSignals = 8

// Signals collects institution-name candidates from the page's
// metadata, title, headings, and footer copyright, weighted by the
// trust of each observation point.
func Signals(htmlText string) []signal.PageSignal {
	var signals []signal.PageSignal

	add := func(text string, source signal.Source) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		signals = append(signals, signal.PageSignal{
			Text:   text,
			Weight: signal.DefaultWeight(source),
			Source: source,
		})
	}

	for _, key := range []string{"og:site_name", "application-name", "apple-mobile-web-app-title"} {
		if v := MetaContent(htmlText, key); v != "" {
			add(v, signal.SourceSiteMeta)
		}
	}

	for _, segment := range titleSeparators.Split(Title(htmlText), -1) {
		add(segment, signal.SourceTitle)
	}

	headings := Headings(htmlText)
	if len(headings) > maxHeadingSignals {
		headings = headings[:maxHeadingSignals]
	}
	for _, h := range headings {
		add(h, signal.SourceHeading)
	}

	if holder := CopyrightHolder(htmlText); holder != "" {
		add(holder, signal.SourceFooter)
	}

	return signals
}

// Title returns the text of the first <title> element.
func Title(htmlText string) string {
	if m := titlePattern.FindStringSubmatch(htmlText); m != nil {
		return StripTags(m[1])
	}
	return ""
}

// Headings returns the stripped texts of h1-h3 elements in document
// order.
func Headings(htmlText string) []string {
	var out []string
	for _, m := range headingPattern.FindAllStringSubmatch(htmlText, -1) {
		if text := StripTags(m[2]); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// MetaContent returns the content of a meta tag identified by property
// or name, tolerating either attribute order.
func MetaContent(htmlText, key string) string {
	quoted := regexp.QuoteMeta(key)
	patterns := []string{
		`(?i)<meta[^>]+(?:property|name)=["']` + quoted + `["'][^>]+content=["']([^"']+)["']`,
		`(?i)<meta[^>]+content=["']([^"']+)["'][^>]+(?:property|name)=["']` + quoted + `["']`,
	}
	for _, p := range patterns {
		if m := regexp.MustCompile(p).FindStringSubmatch(htmlText); m != nil {
			return strings.TrimSpace(html.UnescapeString(m[1]))
		}
	}
	return ""
}

// CopyrightHolder returns the name following a footer copyright mark.
func CopyrightHolder(htmlText string) string {
	if m := copyrightPattern.FindStringSubmatch(htmlText); m != nil {
		return strings.TrimSpace(StripTags(m[1]))
	}
	return ""
}

// StripTags removes script and style blocks, drops the remaining tags,
// unescapes entities, and collapses whitespace.
func StripTags(htmlText string) string {
	s := scriptPattern.ReplaceAllString(htmlText, " ")
	s = stylePattern.ReplaceAllString(s, " ")
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
