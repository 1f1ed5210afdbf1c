package extractor

import (
	"bytes"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// ReadPDF opens a PDF held in memory. Pages without a content dictionary
// are skipped; text is pulled lazily by the normalizer.
func ReadPDF(data []byte) (doc *Document, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, eris.Errorf("malformed PDF: %v", r)
		}
	}()

	if len(data) == 0 {
		return nil, eris.New("empty PDF content")
	}

	reader := bytes.NewReader(data)

	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "failed to create PDF reader")
	}

	numPages := pdfReader.NumPage()
	doc = &Document{Pages: make([]Page, 0, numPages)}

	for i := 1; i <= numPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		doc.Pages = append(doc.Pages, pdfPage{page: page})
	}

	return doc, nil
}

type pdfPage struct {
	page pdf.Page
}

func (p pdfPage) PlainText() (string, error) {
	return p.page.GetPlainText(nil)
}

func (p pdfPage) TextRows() ([]TextRow, error) {
	rows, err := p.page.GetTextByRow()
	if err != nil {
		return nil, err
	}

	out := make([]TextRow, 0, len(rows))
	for _, row := range rows {
		runs := make(TextRow, 0, len(row.Content))
		for _, text := range row.Content {
			runs = append(runs, TextRun{
				X:        text.X,
				W:        text.W,
				FontSize: text.FontSize,
				S:        text.S,
			})
		}
		out = append(out, runs)
	}
	return out, nil
}
