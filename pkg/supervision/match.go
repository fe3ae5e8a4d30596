package supervision

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LabelPrefix precedes the 1-based session number in portal link labels
const LabelPrefix = "SV#"

// SessionLink is one session link inside a booking row
type SessionLink struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// BookingRow is one row of the portal's booking table
type BookingRow struct {
	Subject string        `json:"subject"`
	Links   []SessionLink `json:"links"`
}

// MatchResult is the outcome of scanning booking rows for a session.
// Matches counts every row satisfying both predicates; Row and Href refer to the first.
type MatchResult struct {
	Found   bool   `json:"found"`
	Href    string `json:"href,omitempty"`
	Row     int    `json:"row"`
	Matches int    `json:"matches"`
}

// Ambiguous reports whether more than one row satisfied the match
func (r MatchResult) Ambiguous() bool {
	return r.Matches > 1
}

// NotFound is the empty match result
var NotFound = MatchResult{Row: -1}

// SessionLabel returns the portal label for a 0-based ordinal.
// The portal numbers sessions from 1.
func SessionLabel(ordinal int) string {
	return LabelPrefix + strconv.Itoa(ordinal+1)
}

// CamelCase joins whitespace-separated tokens, lower-casing the first and
// capitalizing the rest.
func CamelCase(s string) string {
	lower := cases.Lower(language.Und)
	upper := cases.Upper(language.Und)

	var b strings.Builder
	for i, word := range strings.Fields(s) {
		if i == 0 {
			b.WriteString(lower.String(word))
			continue
		}
		_, size := utf8.DecodeRuneInString(word)
		b.WriteString(upper.String(word[:size]))
		b.WriteString(lower.String(word[size:]))
	}
	return b.String()
}

// Normalize returns the comparison key for subject text: the camel-token form
// folded to lower case. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	return cases.Lower(language.Und).String(CamelCase(s))
}

// SubjectMatches reports whether the displayed subject contains the target subject
// once both are normalized.
func SubjectMatches(displayed, target string) bool {
	return strings.Contains(Normalize(displayed), Normalize(target))
}

// LinkFor returns the first link whose label is exactly the session label
// for ordinal.
func (r BookingRow) LinkFor(ordinal int) (SessionLink, bool) {
	label := SessionLabel(ordinal)
	for _, link := range r.Links {
		if link.Label == label {
			return link, true
		}
	}
	return SessionLink{}, false
}

// SessionMatches reports whether the row carries a link for ordinal
func SessionMatches(row BookingRow, ordinal int) bool {
	_, ok := row.LinkFor(ordinal)
	return ok
}

// Match scans rows in table order and returns the first row matching both the
// target subject and session ordinal.
func Match(rows []BookingRow, target Identity) MatchResult {
	result := NotFound
	want := Normalize(target.Subject)

	for i, row := range rows {
		if !strings.Contains(Normalize(row.Subject), want) {
			continue
		}
		link, ok := row.LinkFor(target.Ordinal)
		if !ok {
			continue
		}

		result.Matches++
		if !result.Found {
			result.Found = true
			result.Href = link.Href
			result.Row = i
		}
	}

	return result
}
