package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

type WordDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    Body     `xml:"body"`
}

type Body struct {
	Paragraphs []Paragraph `xml:"p"`
	Tables     []Table     `xml:"tbl"`
}

type Paragraph struct {
	Runs []Run `xml:"r"`
}

type Run struct {
	Text string `xml:"t"`
}

type Table struct {
	Rows []TableRow `xml:"tr"`
}

type TableRow struct {
	Cells []TableCell `xml:"tc"`
}

type TableCell struct {
	Paragraphs []Paragraph `xml:"p"`
}

func (p Paragraph) text() string {
	var b strings.Builder
	for _, run := range p.Runs {
		b.WriteString(run.Text)
	}
	return b.String()
}

// docxPage carries the body text and the tables Word already delimits, so
// no layout based detection is needed.
type docxPage struct {
	text   string
	tables [][][]string
}

func (p docxPage) PlainText() (string, error)   { return p.text, nil }
func (p docxPage) TextRows() ([]TextRow, error) { return nil, nil }
func (p docxPage) Grids() ([][][]string, error) { return p.tables, nil }

// ReadDOCX returns a single page document holding the paragraphs of
// word/document.xml and its tables.
func ReadDOCX(data []byte) (*Document, error) {
	reader := bytes.NewReader(data)

	zipReader, err := zip.NewReader(reader, int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "failed to read DOCX as ZIP")
	}

	var documentFile *zip.File
	for _, file := range zipReader.File {
		if file.Name == "word/document.xml" {
			documentFile = file
			break
		}
	}

	if documentFile == nil {
		return nil, eris.New("document.xml not found in DOCX")
	}

	xmlFile, err := documentFile.Open()
	if err != nil {
		return nil, eris.Wrap(err, "failed to open document.xml")
	}
	defer xmlFile.Close()

	xmlData, err := io.ReadAll(xmlFile)
	if err != nil {
		return nil, eris.Wrap(err, "failed to read document.xml")
	}

	var doc WordDocument
	if err := xml.Unmarshal(xmlData, &doc); err != nil {
		return nil, eris.Wrap(err, "failed to parse document.xml")
	}

	var textBuilder strings.Builder
	for _, para := range doc.Body.Paragraphs {
		textBuilder.WriteString(para.text())
		textBuilder.WriteString("\n")
	}

	page := docxPage{text: strings.TrimSpace(textBuilder.String())}
	for _, tbl := range doc.Body.Tables {
		grid := make([][]string, 0, len(tbl.Rows))
		for _, row := range tbl.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				parts := make([]string, 0, len(cell.Paragraphs))
				for _, para := range cell.Paragraphs {
					if t := strings.TrimSpace(para.text()); t != "" {
						parts = append(parts, t)
					}
				}
				cells = append(cells, strings.Join(parts, " "))
			}
			grid = append(grid, cells)
		}
		page.tables = append(page.tables, grid)
	}

	return &Document{Pages: []Page{page}}, nil
}
