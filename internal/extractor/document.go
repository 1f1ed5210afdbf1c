package extractor

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeTXT  = "text/plain"
)

// Document is an ordered sequence of pages. It only lives for the duration
// of one extraction call.
type Document struct {
	Pages []Page
}

// Page yields the raw text of one page and its text laid out in rows, which
// is what table detection works on.
type Page interface {
	PlainText() (string, error)
	TextRows() ([]TextRow, error)
}

// TextRun is a positioned fragment of text on a page. X and W are in page
// units; FontSize is used to scale gap thresholds.
type TextRun struct {
	X        float64
	W        float64
	FontSize float64
	S        string
}

// TextRow is the runs sharing one baseline, in any order.
type TextRow []TextRun

// textPage is a page without layout information.
type textPage struct {
	text string
}

func (p textPage) PlainText() (string, error)   { return p.text, nil }
func (p textPage) TextRows() ([]TextRow, error) { return nil, nil }

// NewTextDocument wraps already extracted text as a single page document.
func NewTextDocument(text string) *Document {
	return &Document{Pages: []Page{textPage{text: text}}}
}

// Read parses data according to its content type.
func Read(contentType string, data []byte) (*Document, error) {
	switch {
	case contentType == ContentTypePDF:
		return ReadPDF(data)
	case IsDOCXContentType(contentType):
		return ReadDOCX(data)
	case IsTextContentType(contentType):
		return ReadTXT(data)
	default:
		return nil, eris.Errorf("unsupported content type %q", contentType)
	}
}

// IsDOCXContentType checks if the content type is a DOCX file.
// Handles various DOCX MIME type variations.
func IsDOCXContentType(contentType string) bool {
	switch contentType {
	case ContentTypeDOCX,
		"application/vnd.openxmlformats-officedocument.wordprocessingml",
		"application/docx",
		"application/x-docx":
		return true
	}
	return false
}

func IsTextContentType(contentType string) bool {
	switch strings.ToLower(contentType) {
	case ContentTypeTXT, "text/txt", "application/txt", "application/x-txt":
		return true
	}
	return false
}

// NormalizeContentType maps content type variants onto the canonical MIME type.
func NormalizeContentType(contentType string) string {
	switch {
	case IsDOCXContentType(contentType):
		return ContentTypeDOCX
	case IsTextContentType(contentType):
		return ContentTypeTXT
	}
	return contentType
}

// ContentTypeFor prefers the file extension over the reported header, which
// browsers and crawlers often get wrong.
func ContentTypeFor(filename, reported string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return ContentTypePDF
	case ".docx":
		return ContentTypeDOCX
	case ".txt":
		return ContentTypeTXT
	case ".doc":
		// legacy Word is rejected later with a clearer message
		return "application/msword"
	}
	return NormalizeContentType(reported)
}

// IsSupported reports whether Read can parse the content type.
func IsSupported(contentType string) bool {
	return contentType == ContentTypePDF || IsDOCXContentType(contentType) || IsTextContentType(contentType)
}
