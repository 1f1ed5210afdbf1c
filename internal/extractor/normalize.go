package extractor

import (
	"strings"
)

// TablesHeading separates body text from the markdown tables in normalized text.
const TablesHeading = "# TABLES (markdown format)"

// Normalize flattens a document into the single text blob handed to metadata
// extraction: all page text first, then every detected table as markdown.
func Normalize(doc *Document) string {
	text := ExtractText(doc)

	tables := ExtractTables(doc)
	if len(tables) == 0 {
		return text
	}

	return text + "\n\n" + TablesHeading + "\n" + strings.Join(tables, "\n\n")
}

// ExtractText joins page texts in page order with newlines. A page whose text
// cannot be read contributes an empty string.
func ExtractText(doc *Document) string {
	if doc == nil || len(doc.Pages) == 0 {
		return ""
	}

	chunks := make([]string, 0, len(doc.Pages))
	for _, page := range doc.Pages {
		chunks = append(chunks, pageText(page))
	}
	return strings.Join(chunks, "\n")
}

// ExtractTables returns one markdown block per non-empty table in document
// order. Detection failures on a page count as "no tables on this page".
func ExtractTables(doc *Document) []string {
	if doc == nil {
		return nil
	}

	var out []string
	for _, page := range doc.Pages {
		for _, grid := range pageTables(page) {
			if table, ok := cleanTable(grid); ok {
				out = append(out, renderMarkdown(table))
			}
		}
	}
	return out
}

func pageText(page Page) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	text, err := page.PlainText()
	if err != nil {
		return ""
	}
	return text
}

func pageTables(page Page) (tables [][][]string) {
	defer func() {
		if recover() != nil {
			tables = nil
		}
	}()

	if gp, ok := page.(gridPage); ok {
		grids, err := gp.Grids()
		if err != nil {
			return nil
		}
		return grids
	}

	rows, err := page.TextRows()
	if err != nil {
		return nil
	}
	return detectTables(rows)
}
