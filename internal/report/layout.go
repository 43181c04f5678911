package report

import (
	"strings"

	"github.com/go-pdf/fpdf"
)

// page geometry in millimetres, A4 portrait
const (
	pageWidth     = 210.0
	margin        = 10.0
	contentWidth  = pageWidth - 2*margin
	contentTop    = 20.0
	contentBottom = 270.0

	footerRuleY = 280.0
	footerLine1 = 285.0
	footerLine2 = 290.0

	fontFamily = "Helvetica"
)

// Layout is the drawing context shared by every section of a report. It owns
// the vertical cursor and decides when content moves to a new page, so no
// drawn element ever extends below contentBottom.
type Layout struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	y      float64
	top    float64
	bottom float64
	lowest float64
}

func newLayout(pdf *fpdf.Fpdf) *Layout {
	return &Layout{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		top:    contentTop,
		bottom: contentBottom,
	}
}

// Y is the top of the free space on the current page.
func (l *Layout) Y() float64 { return l.y }

func (l *Layout) SetY(y float64) { l.y = y }

// Remaining is the vertical space left above the page-bottom threshold.
func (l *Layout) Remaining() float64 { return l.bottom - l.y }

// Page is the number of the page being drawn on.
func (l *Layout) Page() int { return l.pdf.PageNo() }

// Advance moves the cursor down without drawing.
func (l *Layout) Advance(h float64) { l.y += h }

// EnsureSpace starts a new page when an element of height h would cross the
// threshold. It reports whether a page break happened.
func (l *Layout) EnsureSpace(h float64) bool {
	if l.y+h <= l.bottom {
		return false
	}
	l.NewPage()
	return true
}

func (l *Layout) NewPage() {
	l.pdf.AddPage()
	l.y = l.top
}

// Lowest is the deepest point reached by tracked content on any page.
func (l *Layout) Lowest() float64 { return l.lowest }

func (l *Layout) font(style string, size float64) {
	l.pdf.SetFont(fontFamily, style, size)
}

func (l *Layout) track(y float64) {
	if y > l.lowest {
		l.lowest = y
	}
}

// text draws an already encoded string with its baseline at y.
func (l *Layout) text(x, y float64, encoded string) {
	l.pdf.Text(x, y, encoded)
	l.track(y)
}

func (l *Layout) line(x1, y1, x2, y2 float64) {
	l.pdf.Line(x1, y1, x2, y2)
	l.track(max(y1, y2))
}

func (l *Layout) rect(x, y, w, h float64, style string) {
	l.pdf.Rect(x, y, w, h, style)
	l.track(y + h)
}

// encode converts UTF-8 text to the cp1252 bytes the core fonts expect.
func (l *Layout) encode(s string) string { return l.tr(s) }

func (l *Layout) width(encoded string) float64 { return l.pdf.GetStringWidth(encoded) }

// wrap encodes s and breaks it into lines no wider than w. SplitText indexes
// its width table by rune, so the cp1252 bytes are widened to runes for
// measuring and narrowed back afterwards.
func (l *Layout) wrap(s string, w float64) []string {
	var out []string
	for _, para := range strings.Split(s, "\n") {
		encoded := l.encode(strings.TrimRight(para, " \t\r"))
		if encoded == "" {
			out = append(out, "")
			continue
		}
		for _, line := range l.pdf.SplitText(widen(encoded), w) {
			out = append(out, narrow(line))
		}
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

// fit truncates s with an ellipsis so that it is no wider than w.
func (l *Layout) fit(s string, w float64) string {
	encoded := l.encode(s)
	if l.width(encoded) <= w {
		return encoded
	}
	const ellipsis = "..."
	for n := len(encoded) - 1; n > 0; n-- {
		candidate := strings.TrimRight(encoded[:n], " ") + ellipsis
		if l.width(candidate) <= w {
			return candidate
		}
	}
	return ellipsis
}

func widen(encoded string) string {
	runes := make([]rune, len(encoded))
	for i := 0; i < len(encoded); i++ {
		runes[i] = rune(encoded[i])
	}
	return string(runes)
}

func narrow(s string) string {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		b = append(b, byte(r))
	}
	return string(b)
}
