package extractor

import (
	"math"
	"sort"
	"strings"
)

const (
	// Gap between two runs, in ems, above which they belong to different cells.
	cellGapEm = 1.5
	// Gap between two runs, in ems, above which a space is inserted.
	wordGapEm = 0.2
	// Cells whose left edges are closer than this, in ems, share a column.
	columnSnapEm = 2.0
	// Font size assumed when a run does not report one.
	defaultFontSize = 10.0
	// A table needs at least this many consecutive multi-cell rows.
	minTableRows = 2
)

type cell struct {
	x    float64
	text string
}

// gridPage is implemented by pages whose format already delimits tables.
type gridPage interface {
	Grids() ([][][]string, error)
}

// detectTables groups consecutive rows that split into two or more cells
// into tables and aligns their cells on shared column positions.
func detectTables(rows []TextRow) [][][]string {
	var tables [][][]string
	var run [][]cell

	flush := func() {
		if len(run) >= minTableRows {
			tables = append(tables, alignColumns(run))
		}
		run = nil
	}

	for _, row := range rows {
		cells := splitCells(row)
		if len(cells) < 2 {
			flush()
			continue
		}
		run = append(run, cells)
	}
	flush()

	return tables
}

// splitCells orders a row's runs left to right and merges them into cells.
func splitCells(row TextRow) []cell {
	runs := make(TextRow, 0, len(row))
	for _, r := range row {
		if r.S != "" {
			runs = append(runs, r)
		}
	}
	if len(runs) == 0 {
		return nil
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

	var cells []cell
	var b strings.Builder
	start := runs[0].X
	end := runs[0].X

	for i, r := range runs {
		if i > 0 {
			gap := r.X - end
			em := fontSize(r)
			switch {
			case gap > cellGapEm*em:
				cells = append(cells, cell{x: start, text: strings.TrimSpace(b.String())})
				b.Reset()
				start = r.X
			case gap > wordGapEm*em && !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(r.S, " "):
				b.WriteByte(' ')
			}
		}
		b.WriteString(r.S)
		end = math.Max(end, r.X+r.W)
	}
	cells = append(cells, cell{x: start, text: strings.TrimSpace(b.String())})

	// whitespace-only runs can leave empty cells behind
	out := cells[:0]
	for _, c := range cells {
		if c.text != "" {
			out = append(out, c)
		}
	}
	return out
}

// alignColumns snaps cell left edges onto column anchors so that rows with
// missing cells still line up.
func alignColumns(rows [][]cell) [][]string {
	var xs []float64
	for _, row := range rows {
		for _, c := range row {
			xs = append(xs, c.x)
		}
	}
	sort.Float64s(xs)

	snap := columnSnapEm * defaultFontSize
	var anchors []float64
	for _, x := range xs {
		if len(anchors) == 0 || x-anchors[len(anchors)-1] > snap {
			anchors = append(anchors, x)
		}
	}

	grid := make([][]string, 0, len(rows))
	for _, row := range rows {
		line := make([]string, len(anchors))
		for _, c := range row {
			col := nearestAnchor(anchors, c.x)
			if line[col] != "" {
				line[col] += " "
			}
			line[col] += c.text
		}
		grid = append(grid, line)
	}
	return grid
}

func nearestAnchor(anchors []float64, x float64) int {
	best := 0
	for i, a := range anchors {
		if math.Abs(a-x) < math.Abs(anchors[best]-x) {
			best = i
		}
	}
	return best
}

func fontSize(r TextRun) float64 {
	if r.FontSize > 0 {
		return r.FontSize
	}
	return defaultFontSize
}

// cleanTable treats the first row as the header, drops data rows and columns
// that hold no data, and reports false when nothing is left.
func cleanTable(grid [][]string) ([][]string, bool) {
	if len(grid) < 2 {
		return nil, false
	}

	width := 0
	for _, row := range grid {
		width = max(width, len(row))
	}

	header := pad(grid[0], width)
	var data [][]string
	for _, row := range grid[1:] {
		row = pad(row, width)
		if !allBlank(row) {
			data = append(data, row)
		}
	}
	if len(data) == 0 {
		return nil, false
	}

	var keep []int
	for col := 0; col < width; col++ {
		for _, row := range data {
			if strings.TrimSpace(row[col]) != "" {
				keep = append(keep, col)
				break
			}
		}
	}
	if len(keep) == 0 {
		return nil, false
	}

	out := make([][]string, 0, len(data)+1)
	for _, row := range append([][]string{header}, data...) {
		line := make([]string, len(keep))
		for i, col := range keep {
			line[i] = strings.TrimSpace(row[col])
		}
		out = append(out, line)
	}
	return out, true
}

// renderMarkdown writes a cleaned table as a GitHub style pipe table.
func renderMarkdown(table [][]string) string {
	var b strings.Builder
	writeRow := func(row []string) {
		b.WriteString("|")
		for _, c := range row {
			b.WriteString(" ")
			b.WriteString(escapeCell(c))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(table[0])
	b.WriteString("|")
	for range table[0] {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range table[1:] {
		writeRow(row)
	}
	return strings.TrimRight(b.String(), "\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func pad(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

func allBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
