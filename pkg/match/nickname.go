package match

import (
	"slices"
	"strings"
)

// nicknames maps a formal given name to its common short forms. Lookup
// is tried in both directions, so either spelling may appear on the
// record or in the query.
var nicknames = map[string][]string{
	"elizabeth":   {"liz", "beth", "betty", "eliza", "lizzie"},
	"william":     {"bill", "billy", "will", "willy", "liam"},
	"robert":      {"bob", "bobby", "rob", "robbie"},
	"richard":     {"rick", "ricky", "rich", "dick"},
	"james":       {"jim", "jimmy", "jamie"},
	"michael":     {"mike", "mikey"},
	"david":       {"dave", "davey"},
	"christopher": {"chris", "topher"},
	"daniel":      {"dan", "danny"},
	"matthew":     {"matt", "matty"},
	"anthony":     {"tony"},
	"joseph":      {"joe", "joey"},
	"thomas":      {"tom", "tommy"},
	"charles":     {"charlie", "chuck"},
	"john":        {"jack", "johnny", "jon"},
	"jonathan":    {"jon", "jonny"},
	"nicholas":    {"nick", "nicky"},
	"alexander":   {"alex", "xander", "sasha"},
	"alexandra":   {"alex", "lexi"},
	"andrew":      {"andy", "drew"},
	"benjamin":    {"ben", "benny"},
	"samuel":      {"sam", "sammy"},
	"timothy":     {"tim", "timmy"},
	"gregory":     {"greg"},
	"jeffrey":     {"jeff"},
	"kenneth":     {"ken", "kenny"},
	"lawrence":    {"larry"},
	"ronald":      {"ron", "ronnie"},
	"donald":      {"don", "donnie"},
	"edward":      {"ed", "eddie", "ted", "ned"},
	"theodore":    {"ted", "theo"},
	"steven":      {"steve"},
	"stephen":     {"steve"},
	"peter":       {"pete"},
	"patricia":    {"pat", "patty", "trish"},
	"margaret":    {"maggie", "meg", "peggy"},
	"katherine":   {"kate", "katie", "kathy"},
	"catherine":   {"cathy", "cate", "kate"},
	"jennifer":    {"jen", "jenny"},
	"jessica":     {"jess", "jessie"},
	"stephanie":   {"steph"},
	"rebecca":     {"becky", "becca"},
	"deborah":     {"deb", "debbie"},
	"susan":       {"sue", "suzy"},
	"kimberly":    {"kim"},
	"victoria":    {"vicky", "tori"},
	"abigail":     {"abby"},
	"gabriel":     {"gabe"},
	"nathaniel":   {"nate", "nathan"},
	"zachary":     {"zach", "zack"},
	"joshua":      {"josh"},
	"frederick":   {"fred", "freddie"},
	"leonard":     {"leo", "lenny"},
	"raymond":     {"ray"},
	"vincent":     {"vince", "vinny"},
}

// IsNickname reports whether two given-name tokens are nickname
// equivalents of one another. Symmetric and case-insensitive.
func IsNickname(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return slices.Contains(nicknames[a], b) || slices.Contains(nicknames[b], a)
}
