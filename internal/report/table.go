package report

import "math"

const (
	cellPadding   = 3.0
	cellLineH     = 4.0
	minRowH       = 8.0
	tableHeaderH  = 8.0
	tableFontSize = 8.0
)

// tableSpec describes one section table. widths are fractions of the
// content width; emphasize returns the cells to draw in bold.
type tableSpec struct {
	headers   []string
	widths    []float64
	rows      RowChain
	emphasize func(cells []string) []bool
}

var (
	medicationTable = tableSpec{
		headers: []string{"Medication", "Dosage", "Frequency/Instructions"},
		widths:  []float64{0.35, 0.25, 0.40},
		rows:    MedicationRows,
	}
	labTable = tableSpec{
		headers:   []string{"Test", "Result", "Unit", "Reference Range"},
		widths:    []float64{0.40, 0.20, 0.15, 0.25},
		rows:      MeasurementRows,
		emphasize: flagOutOfRange,
	}
	vitalsTable = tableSpec{
		headers:   []string{"Vital Sign", "Result", "Unit", "Reference Interval"},
		widths:    []float64{0.30, 0.20, 0.15, 0.35},
		rows:      MeasurementRows,
		emphasize: flagOutOfRange,
	}
)

func flagOutOfRange(cells []string) []bool {
	bold := make([]bool, len(cells))
	bold[1] = IsOutOfRange(cells[1], cells[3])
	return bold
}

// rowLayout is a table row after wrapping: the encoded lines of every cell.
type rowLayout struct {
	cells [][]string
	bold  []bool
}

func (r rowLayout) height() float64 {
	n := 1
	for _, c := range r.cells {
		n = max(n, len(c))
	}
	return max(minRowH, float64(n)*cellLineH+4)
}

// maxRowLines is the number of cell lines that fit on an empty page below
// the repeated table header.
func (l *Layout) maxRowLines() int {
	return int(math.Floor((l.bottom - l.top - tableHeaderH - 4) / cellLineH))
}

func (t tableSpec) columnWidths() []float64 {
	out := make([]float64, len(t.widths))
	for i, f := range t.widths {
		out[i] = contentWidth * f
	}
	return out
}

// layout parses and wraps every line into table rows.
func (t tableSpec) layout(l *Layout, lines []string) []rowLayout {
	cols := t.columnWidths()
	var rows []rowLayout
	for _, line := range lines {
		cells := t.rows.Parse(line)
		var bold []bool
		if t.emphasize != nil {
			bold = t.emphasize(cells)
		}
		rows = append(rows, t.layoutRow(l, cols, cells, bold)...)
	}
	return rows
}

func (t tableSpec) drawRows(l *Layout, rows []rowLayout) {
	if len(rows) == 0 {
		return
	}
	cols := t.columnWidths()

	l.EnsureSpace(tableHeaderH + rows[0].height())
	t.drawHeader(l, cols)
	for i, row := range rows {
		if l.EnsureSpace(row.height()) {
			t.drawHeader(l, cols)
		}
		t.drawRow(l, cols, row, i%2 == 1)
	}
	l.Advance(5)
}

// layoutRow wraps the cells of one logical row. A row taller than a page is
// split into several rows that each fit.
func (t tableSpec) layoutRow(l *Layout, cols []float64, cells []string, bold []bool) []rowLayout {
	wrapped := make([][]string, len(cells))
	tallest := 0
	for i, cell := range cells {
		if bold != nil && bold[i] {
			l.font("B", tableFontSize)
		} else {
			l.font("", tableFontSize)
		}
		wrapped[i] = l.wrap(cell, cols[i]-2*cellPadding)
		tallest = max(tallest, len(wrapped[i]))
	}

	limit := max(1, l.maxRowLines())
	var out []rowLayout
	for start := 0; start < tallest; start += limit {
		part := rowLayout{cells: make([][]string, len(cells)), bold: bold}
		for i, c := range wrapped {
			if start < len(c) {
				part.cells[i] = c[start:min(start+limit, len(c))]
			}
		}
		out = append(out, part)
	}
	return out
}

func (t tableSpec) drawHeader(l *Layout, cols []float64) {
	y := l.Y()
	l.pdf.SetFillColor(240, 240, 240)
	l.rect(margin, y, contentWidth, tableHeaderH, "FD")
	l.font("B", tableFontSize+1)
	x := margin
	for i, h := range t.headers {
		if i > 0 {
			l.line(x, y, x, y+tableHeaderH)
		}
		l.text(x+cellPadding, y+5.5, l.fit(h, cols[i]-2*cellPadding))
		x += cols[i]
	}
	l.Advance(tableHeaderH)
}

func (t tableSpec) drawRow(l *Layout, cols []float64, row rowLayout, shaded bool) {
	y := l.Y()
	h := row.height()
	if shaded {
		l.pdf.SetFillColor(248, 248, 248)
		l.rect(margin, y, contentWidth, h, "FD")
	} else {
		l.rect(margin, y, contentWidth, h, "D")
	}

	x := margin
	for i, lines := range row.cells {
		if i > 0 {
			l.line(x, y, x, y+h)
		}
		if row.bold != nil && row.bold[i] {
			l.font("B", tableFontSize)
		} else {
			l.font("", tableFontSize)
		}
		for j, line := range lines {
			l.text(x+cellPadding, y+5.5+float64(j)*cellLineH, line)
		}
		x += cols[i]
	}
	l.Advance(h)
}
