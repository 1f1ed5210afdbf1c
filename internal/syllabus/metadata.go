// Package syllabus turns normalized syllabus text into a canonical metadata
// record. AI extraction is tried first; a regex heuristic that cannot fail
// backs it up.
package syllabus

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/flex"
)

// Unknown is the sentinel for any field that could not be determined.
const Unknown = "Unknown"

const (
	SemesterSpring = "Spring"
	SemesterSummer = "Summer"
	SemesterFall   = "Fall"
	SemesterWinter = "Winter"
)

var semesters = []string{SemesterSpring, SemesterSummer, SemesterFall, SemesterWinter}

// Media types and requirement levels of reading materials.
const (
	MediaBooks           = "books"
	MediaJournalArticles = "journal_articles"
	MediaBookChapters    = "book_chapters"
	MediaWebsites        = "websites"
	MediaVideos          = "videos"
	MediaEquipment       = "equipment"

	RequirementRequired  = "required"
	RequirementSuggested = "suggested"
)

// Metadata is the canonical extraction result for one syllabus. Every string
// field holds a value or Unknown, and ReadingMaterials is never nil.
type Metadata struct {
	Filename         string            `json:"filename"`
	Year             string            `json:"year"`
	Semester         string            `json:"semester"`
	ClassName        string            `json:"class_name"`
	ClassNumber      string            `json:"class_number"`
	Instructor       string            `json:"instructor"`
	University       string            `json:"university"`
	MainTopic        string            `json:"main_topic"`
	ReadingMaterials []ReadingMaterial `json:"reading_materials"`
}

// ReadingMaterial is one reading list entry. Entries given as a bare title
// string decode with Bare set and only Title filled.
type ReadingMaterial struct {
	Title        string      `json:"title"`
	Creator      string      `json:"creator,omitempty"`
	MediaType    string      `json:"media_type,omitempty"`
	Requirement  string      `json:"requirement,omitempty"`
	ISBN         string      `json:"isbn,omitempty"`
	URL          string      `json:"url,omitempty"`
	JournalNames []string    `json:"journal_names,omitempty"`
	Certainty    flex.Number `json:"certainty"`
	Bare         bool        `json:"-"`
}

type metadataWire struct {
	Filename         flex.String     `json:"filename"`
	Year             flex.String     `json:"year"`
	Semester         flex.String     `json:"semester"`
	ClassName        flex.String     `json:"class_name"`
	ClassNumber      flex.String     `json:"class_number"`
	Instructor       flex.String     `json:"instructor"`
	University       flex.String     `json:"university"`
	MainTopic        flex.String     `json:"main_topic"`
	ReadingMaterials json.RawMessage `json:"reading_materials"`
}

// UnmarshalJSON tolerates numbers where strings are expected (a bare 2024
// year) and drops reading list members that are neither objects nor strings.
// A scalar reading list ("Unknown", "None") decodes as an empty list.
func (md *Metadata) UnmarshalJSON(data []byte) error {
	var w metadataWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var members flex.Objects
	if raw := bytes.TrimSpace(w.ReadingMaterials); len(raw) > 0 && (raw[0] == '[' || raw[0] == '{') {
		if err := json.Unmarshal(raw, &members); err != nil {
			return err
		}
	}

	materials := make([]ReadingMaterial, 0, len(members))
	for _, raw := range members {
		var m ReadingMaterial
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		materials = append(materials, m)
	}

	*md = Metadata{
		Filename:         string(w.Filename),
		Year:             string(w.Year),
		Semester:         string(w.Semester),
		ClassName:        string(w.ClassName),
		ClassNumber:      string(w.ClassNumber),
		Instructor:       string(w.Instructor),
		University:       string(w.University),
		MainTopic:        string(w.MainTopic),
		ReadingMaterials: materials,
	}
	return nil
}

// readingMaterialWire accepts the key spellings seen in model output and in
// hand written metadata files.
type readingMaterialWire struct {
	Title        flex.String  `json:"title"`
	Creator      flex.String  `json:"creator"`
	Author       flex.String  `json:"author"`
	MediaType    flex.String  `json:"media_type"`
	Type         flex.String  `json:"type"`
	Requirement  flex.String  `json:"requirement"`
	ISBN         flex.String  `json:"isbn"`
	ISBNUpper    flex.String  `json:"ISBN"`
	URL          flex.String  `json:"url"`
	JournalNames flex.Strings `json:"journal_names"`
	Certainty    flex.Number  `json:"certainty"`
}

func (m *ReadingMaterial) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var title string
		if err := json.Unmarshal(data, &title); err != nil {
			return err
		}
		*m = ReadingMaterial{Title: title, Bare: true}
		return nil
	}

	var w readingMaterialWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = ReadingMaterial{
		Title:       string(w.Title),
		Creator:     firstNonEmpty(string(w.Creator), string(w.Author)),
		MediaType:   firstNonEmpty(string(w.MediaType), string(w.Type)),
		Requirement: string(w.Requirement),
		ISBN:        firstNonEmpty(string(w.ISBN), string(w.ISBNUpper)),
		URL:         string(w.URL),
		Certainty:   w.Certainty,
	}
	if names := w.JournalNames.Values(); len(names) > 0 {
		m.JournalNames = names
	}
	return nil
}

func (m ReadingMaterial) MarshalJSON() ([]byte, error) {
	if m.Bare {
		return json.Marshal(m.Title)
	}
	type plain ReadingMaterial
	return json.Marshal(plain(m))
}

// IsEquipment reports whether the entry names equipment rather than a
// library resource, by media type or by requirement.
func (m ReadingMaterial) IsEquipment() bool {
	return strings.EqualFold(strings.TrimSpace(m.Requirement), MediaEquipment) ||
		strings.EqualFold(strings.TrimSpace(m.MediaType), MediaEquipment)
}

// ResolvedURL returns the entry's URL unless it is blank or a placeholder.
func (m ReadingMaterial) ResolvedURL() (string, bool) {
	u := strings.TrimSpace(m.URL)
	if IsPlaceholder(u) {
		return "", false
	}
	return u, true
}

// IsBlank reports an entry that names nothing: a placeholder title and no
// usable URL.
func (m ReadingMaterial) IsBlank() bool {
	_, resolved := m.ResolvedURL()
	return IsPlaceholder(m.Title) && !resolved
}

// IsPlaceholder reports values models and humans use for "nothing here".
func IsPlaceholder(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown", "none", "null", "n/a":
		return true
	}
	return false
}

// Normalize fills every blank field with Unknown, maps the semester onto
// its enum and canonicalizes the reading list, dropping blank entries.
func (md Metadata) Normalize() Metadata {
	md.Year = orUnknown(md.Year)
	md.Semester = CanonicalSemester(md.Semester)
	md.ClassName = orUnknown(md.ClassName)
	md.ClassNumber = orUnknown(md.ClassNumber)
	md.Instructor = orUnknown(md.Instructor)
	md.University = orUnknown(md.University)
	md.MainTopic = orUnknown(md.MainTopic)

	materials := make([]ReadingMaterial, 0, len(md.ReadingMaterials))
	for _, m := range md.ReadingMaterials {
		if m.IsBlank() {
			continue
		}
		materials = append(materials, m.normalize())
	}
	md.ReadingMaterials = materials
	return md
}

func (m ReadingMaterial) normalize() ReadingMaterial {
	m.Title = strings.TrimSpace(m.Title)
	if m.Bare {
		return m
	}
	m.Creator = strings.TrimSpace(m.Creator)
	m.MediaType = canonicalMediaType(m.MediaType)
	m.Requirement = strings.ToLower(strings.TrimSpace(m.Requirement))
	m.ISBN = strings.TrimSpace(m.ISBN)
	m.URL = strings.TrimSpace(m.URL)
	if m.Certainty.Valid {
		m.Certainty.Value = min(max(m.Certainty.Value, 0), 100)
	}
	return m
}

// CanonicalSemester maps any value mentioning a semester name onto the enum.
func CanonicalSemester(s string) string {
	lower := strings.ToLower(s)
	for _, sem := range semesters {
		if strings.Contains(lower, strings.ToLower(sem)) {
			return sem
		}
	}
	return Unknown
}

// canonicalMediaType turns "Journal Articles" into "journal_articles".
func canonicalMediaType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}

func orUnknown(s string) string {
	if IsPlaceholder(s) {
		return Unknown
	}
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// FieldNames lists the selectable metadata fields in display order.
var FieldNames = []string{
	"year", "semester", "class_name", "class_number",
	"instructor", "university", "main_topic", "reading_materials",
}

// Field describes one selectable metadata field.
type Field struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Fields is the catalogue shown to clients choosing what to extract.
var Fields = []Field{
	{ID: "year", Label: "Year", Description: "Academic year"},
	{ID: "semester", Label: "Semester", Description: "Academic semester"},
	{ID: "class_name", Label: "Class Name", Description: "Course title"},
	{ID: "class_number", Label: "Class Number", Description: "Course code"},
	{ID: "instructor", Label: "Instructor", Description: "Course instructor"},
	{ID: "university", Label: "University", Description: "Institution name"},
	{ID: "main_topic", Label: "Main Topic", Description: "Course subject/topic"},
	{ID: "reading_materials", Label: "Reading Materials", Description: "Required and suggested readings"},
}

// Select projects the record onto the requested fields. Unknown field names
// map to Unknown; filename is always kept. An empty selection keeps all.
func (md Metadata) Select(fields []string) map[string]any {
	all := map[string]any{
		"year":              md.Year,
		"semester":          md.Semester,
		"class_name":        md.ClassName,
		"class_number":      md.ClassNumber,
		"instructor":        md.Instructor,
		"university":        md.University,
		"main_topic":        md.MainTopic,
		"reading_materials": md.ReadingMaterials,
	}
	if len(fields) == 0 {
		fields = FieldNames
	}

	out := map[string]any{"filename": md.Filename}
	for _, f := range fields {
		if v, ok := all[f]; ok {
			out[f] = v
		} else {
			out[f] = Unknown
		}
	}
	return out
}
