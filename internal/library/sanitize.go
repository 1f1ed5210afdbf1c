package library

import (
	"regexp"
	"strings"
)

var (
	numberedEditionPattern = regexp.MustCompile(`(?i)\b\d+(?:st|nd|rd|th)?\s+ed(?:ition)?\b\.?`)
	editionPattern         = regexp.MustCompile(`(?i)\b(?:edition\b|ed\.)`)
	publisherPattern       = regexp.MustCompile(`(?i)(?:[,;(]\s*by\b|\bpublished\s+by\b|\bpublisher\b).*$`)
	standardNumberPattern  = regexp.MustCompile(`(?i)\b(?:ISBN|ISSN)(?:-1[03])?[\s:-]*\d[\dX-]*`)

	// "... by Myers", "... by J. Smith and A. Lee": a trailing run of
	// capitalized name tokens.
	bylinePattern = regexp.MustCompile(`\s+by\s+(?:[A-Z][\w.'-]*|and|&)(?:\s+(?:[A-Z][\w.'-]*|and|&)){0,4}$`)
)

// A bare byline is only cut after at least this many title words, so
// "Learning by Doing" and "Stand by Me" stay whole.
const minTitleWordsBeforeByline = 2

// CleanTerm strips edition markers, trailing publisher clauses and
// ISBN/ISSN tokens from a search term and collapses whitespace. Encoding is
// left to the transport.
func CleanTerm(term string) string {
	term = strings.TrimSpace(term)
	term = numberedEditionPattern.ReplaceAllString(term, " ")
	term = editionPattern.ReplaceAllString(term, " ")
	term = publisherPattern.ReplaceAllString(term, "")
	term = standardNumberPattern.ReplaceAllString(term, " ")
	term = strings.Join(strings.Fields(term), " ")
	if loc := bylinePattern.FindStringIndex(term); loc != nil &&
		len(strings.Fields(term[:loc[0]])) >= minTitleWordsBeforeByline {
		term = term[:loc[0]]
	}
	return strings.TrimRight(term, " ,;:")
}

// BuildQuery renders the discovery service's filter syntax:
// title,contains,X;AND;creator,contains,Y.
func BuildQuery(q Query) string {
	parts := []string{"title,contains," + q.Title}
	if q.Creator != "" {
		parts = append(parts, "creator,contains,"+q.Creator)
	}
	return strings.Join(parts, ";AND;")
}
