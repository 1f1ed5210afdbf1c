package syllabus

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	filenameSemesterPattern = regexp.MustCompile(`(?i)(spring|summer|fall|winter)`)
	filenameYearPattern     = regexp.MustCompile(`(?:^|\D)(20\d{2})(?:\D|$)`)
)

// FromFilename reads the semester and year embedded in names such as
// BIO101_Fall2023_Smith.pdf. Missing tokens come back as Unknown.
func FromFilename(name string) (semester, year string) {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	semester, year = Unknown, Unknown
	if m := filenameSemesterPattern.FindStringSubmatch(base); m != nil {
		semester = CanonicalSemester(m[1])
	}
	if m := filenameYearPattern.FindStringSubmatch(base); m != nil {
		year = m[1]
	}
	return semester, year
}

// fillFromFilename substitutes filename tokens for fields the text did not
// reveal.
func fillFromFilename(md Metadata, filename string) Metadata {
	if filename == "" {
		return md
	}
	semester, year := FromFilename(filename)
	if md.Semester == Unknown {
		md.Semester = semester
	}
	if md.Year == Unknown {
		md.Year = year
	}
	return md
}
