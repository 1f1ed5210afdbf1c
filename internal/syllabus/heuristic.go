package syllabus

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	semesterPattern    = regexp.MustCompile(`(?i)\b(spring|summer|fall|winter)\b`)
	yearPattern        = regexp.MustCompile(`(?:^|\D)(20\d{2})(?:\D|$)`)
	classNumberPattern = regexp.MustCompile(`\b[A-Z]{2,4}[ -]?\d{3,4}\b`)
	instructorPattern  = regexp.MustCompile(`(?i)\b(?:Instructor|Professor|Dr\.|Teacher)\s*:\s*([^\n]+)`)
	eduEmailPattern    = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@([a-z0-9.\-]+\.edu)\b`)
)

const (
	classNameScanLines = 10
	classNameMinLen    = 10
	classNameMaxLen    = 100
)

// HeuristicExtractor derives metadata from text with fixed patterns. It is
// deterministic and total: every field gets a value or Unknown.
type HeuristicExtractor struct{}

// Extract never fails; it exists so the heuristic can sit in a strategy list.
func (HeuristicExtractor) Extract(_ context.Context, text string) (Metadata, error) {
	return Parse(text), nil
}

func (HeuristicExtractor) Name() string { return "heuristic" }

// Parse applies each field rule independently; the first match wins.
func Parse(text string) Metadata {
	return Metadata{
		Year:             findYear(text),
		Semester:         findSemester(text),
		ClassName:        findClassName(text),
		ClassNumber:      findClassNumber(text),
		Instructor:       findInstructor(text),
		University:       findUniversity(text),
		MainTopic:        Unknown,
		ReadingMaterials: []ReadingMaterial{},
	}
}

func findSemester(text string) string {
	m := semesterPattern.FindStringSubmatch(text)
	if m == nil {
		return Unknown
	}
	return CanonicalSemester(m[1])
}

func findYear(text string) string {
	m := yearPattern.FindStringSubmatch(text)
	if m == nil {
		return Unknown
	}
	return m[1]
}

func findClassNumber(text string) string {
	if m := classNumberPattern.FindString(text); m != "" {
		return m
	}
	return Unknown
}

func findInstructor(text string) string {
	m := instructorPattern.FindStringSubmatch(text)
	if m == nil {
		return Unknown
	}
	return orUnknown(strings.TrimSpace(m[1]))
}

func findClassName(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > classNameScanLines {
		lines = lines[:classNameScanLines]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		n := utf8.RuneCountInString(line)
		if n > classNameMinLen && n < classNameMaxLen && strings.IndexFunc(line, unicode.IsUpper) >= 0 {
			return line
		}
	}
	return Unknown
}

// findUniversity takes the domain label right before the TLD of the first
// .edu address: jdoe@cs.ufl.edu -> UFL.
func findUniversity(text string) string {
	m := eduEmailPattern.FindStringSubmatch(text)
	if m == nil {
		return Unknown
	}
	labels := strings.Split(strings.Trim(m[1], "."), ".")
	if len(labels) < 2 || labels[len(labels)-2] == "" {
		return Unknown
	}
	return strings.ToUpper(labels[len(labels)-2])
}
