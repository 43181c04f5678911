// Package report renders a ClinicalRecord as a paginated A4 PDF.
package report

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog/log"

	"medical-summary/internal/models"
)

const (
	reportTitle = "MEDICAL SUMMARY REPORT"
	noInfo      = "No information available"
	disclaimer1 = "This document contains AI-generated medical information."
	disclaimer2 = "It must be reviewed by a qualified healthcare professional before clinical use."
)

type sectionKind int

const (
	kindNumbered sectionKind = iota
	kindTable
	kindParagraph
)

type section struct {
	title   string
	kind    sectionKind
	table   tableSpec
	content func(models.ClinicalRecord) string
}

// sections in report order
var sections = []section{
	{title: "Diagnoses", kind: kindNumbered, content: func(r models.ClinicalRecord) string { return r.Diagnoses }},
	{title: "Medications", kind: kindTable, table: medicationTable, content: func(r models.ClinicalRecord) string { return r.Medications }},
	{title: "Allergies", kind: kindParagraph, content: func(r models.ClinicalRecord) string { return r.Allergies }},
	{title: "Vital Signs", kind: kindTable, table: vitalsTable, content: func(r models.ClinicalRecord) string { return r.VitalSigns }},
	{title: "Laboratory Results", kind: kindTable, table: labTable, content: func(r models.ClinicalRecord) string { return r.LabResults }},
	{title: "Treatment Plan", kind: kindParagraph, content: func(r models.ClinicalRecord) string { return r.TreatmentPlan }},
	{title: "Follow-Up Plan", kind: kindParagraph, content: func(r models.ClinicalRecord) string { return r.FollowUp }},
	{title: "Medical History", kind: kindParagraph, content: func(r models.ClinicalRecord) string { return r.MedicalHistory }},
}

// Renderer draws reports. Now and NewID are replaceable for deterministic
// output; a Renderer is safe for concurrent use.
type Renderer struct {
	Now   func() time.Time
	NewID func() string
}

func NewRenderer() *Renderer {
	return &Renderer{Now: time.Now, NewID: RandomReportID}
}

// RandomReportID returns an id of the form MR-0042.
func RandomReportID() string {
	return fmt.Sprintf("%s%04d", models.ReportIDPrefix, rand.IntN(10000))
}

// Render draws record with a fresh report id and the current time.
func (r *Renderer) Render(record models.ClinicalRecord) (*models.Rendered, error) {
	return r.RenderWith(record, r.NewID(), r.Now())
}

// RenderWith draws record with the given report id and timestamp. The same
// inputs always produce the same layout.
func (r *Renderer) RenderWith(record models.ClinicalRecord, reportID string, at time.Time) (*models.Rendered, error) {
	doc := draw(record, reportID, at)
	if err := doc.pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	log.Info().Str("report_id", reportID).Int("pages", doc.pages).Int("bytes", buf.Len()).Msg("Rendered report")
	return &models.Rendered{
		Content:     buf.Bytes(),
		ReportID:    reportID,
		GeneratedAt: at,
		Pages:       doc.pages,
	}, nil
}

// document is a drawn report before serialization.
type document struct {
	pdf     *fpdf.Fpdf
	layout  *Layout
	pages   int
	footers []string
}

func draw(record models.ClinicalRecord, reportID string, at time.Time) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(margin, contentTop, margin)
	pdf.SetCreationDate(at)
	pdf.SetModificationDate(at)
	pdf.SetTitle(reportTitle+" "+reportID, true)
	pdf.SetCreator("medical-summary", true)

	l := newLayout(pdf)
	l.NewPage()

	drawHeader(l, ExtractPatientInfo(record.PatientProfile), reportID, at)
	for _, s := range sections {
		drawSection(l, s, s.content(record))
	}

	doc := &document{pdf: pdf, layout: l, pages: pdf.PageCount()}
	doc.footers = drawFooters(l, reportID, doc.pages)
	return doc
}

func drawHeader(l *Layout, patient PatientInfo, reportID string, at time.Time) {
	l.pdf.SetLineWidth(0.5)

	l.font("", 9)
	id := l.encode(reportID)
	l.text(pageWidth-margin-l.width(id), 10, id)

	l.line(margin, 15, pageWidth-margin, 15)
	l.font("B", 14)
	title := l.encode(reportTitle)
	l.text((pageWidth-l.width(title))/2, 25, title)
	l.line(margin, 30, pageWidth-margin, 30)

	l.pdf.SetLineWidth(0.2)
	l.SetY(32)
	drawInfoGrid(l, []infoColumn{
		{title: "Patient Information", rows: [][2]string{
			{"Name", patient.Name},
			{"Sex/Age", patient.SexAge()},
			{"DOB", patient.DOB},
			{"Ref. ID", patientRef(reportID)},
		}},
		{title: "Report Information", rows: [][2]string{
			{"Report ID", reportID},
			{"Generated on", at.Format("02 Jan 2006")},
			{"Processed at", at.Format("15:04:05")},
			{"Report Type", "Medical Summary"},
		}},
		{title: "Provider Information", rows: [][2]string{
			{"Generated By", "AI Medical Assistant"},
			{"Facility", "Electronic Health System"},
			{"Status", "For Review"},
			{"Confidential", "CONFIDENTIAL REPORT"},
		}},
	})
	l.Advance(10)
}

// patientRef derives the patient reference from the digits of the report id.
func patientRef(reportID string) string {
	digits := reportID
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return models.PatientRefPrefix + digits
}

type infoColumn struct {
	title string
	rows  [][2]string
}

const (
	infoRowH   = 8.0
	infoLabelW = 26.0
)

func drawInfoGrid(l *Layout, columns []infoColumn) {
	widths := []float64{contentWidth * 0.33, contentWidth * 0.33, contentWidth * 0.34}
	y := l.Y()

	l.pdf.SetFillColor(240, 240, 240)
	x := margin
	for i, c := range columns {
		l.rect(x, y, widths[i], infoRowH, "FD")
		l.font("B", 9)
		l.text(x+cellPadding, y+5.5, l.fit(c.title, widths[i]-2*cellPadding))
		x += widths[i]
	}
	y += infoRowH

	rows := len(columns[0].rows)
	for r := 0; r < rows; r++ {
		x = margin
		for i, c := range columns {
			l.rect(x, y, widths[i], infoRowH, "D")
			label, value := c.rows[r][0], c.rows[r][1]
			l.font("B", 8)
			l.text(x+cellPadding, y+5.5, l.fit(label+":", infoLabelW-cellPadding))
			l.font("", 8)
			l.text(x+cellPadding+infoLabelW, y+5.5, l.fit(value, widths[i]-infoLabelW-2*cellPadding))
			x += widths[i]
		}
		y += infoRowH
	}
	l.SetY(y)
}

const sectionHeaderH = 10.0

func drawSection(l *Layout, s section, content string) {
	var lines []string
	if !isEmptySection(content) {
		lines = PlainLines(content)
	}

	var rows []rowLayout
	if s.kind == kindTable {
		rows = s.table.layout(l, lines)
	}

	// keep a header together with its first line or table row
	first := textLineH
	if len(rows) > 0 {
		first = tableHeaderH + rows[0].height()
	}
	l.EnsureSpace(sectionHeaderH + 3 + first)

	y := l.Y()
	l.pdf.SetFillColor(240, 240, 240)
	l.rect(margin, y+0.5, contentWidth, sectionHeaderH-1, "F")
	l.line(margin, y, pageWidth-margin, y)
	l.line(margin, y+sectionHeaderH, pageWidth-margin, y+sectionHeaderH)
	l.font("B", 11)
	l.text(margin+cellPadding, y+6.8, l.encode(s.title))
	l.Advance(sectionHeaderH + 3)

	if len(lines) == 0 {
		drawPlaceholder(l)
		return
	}

	switch s.kind {
	case kindNumbered:
		drawNumbered(l, lines)
	case kindTable:
		s.table.drawRows(l, rows)
	default:
		drawParagraph(l, lines)
	}
}

const textLineH = 5.0

func drawPlaceholder(l *Layout) {
	l.EnsureSpace(textLineH)
	l.font("I", 9)
	l.text(margin+5, l.Y()+4, l.encode(noInfo))
	l.Advance(textLineH + 5)
}

func drawNumbered(l *Layout, items []string) {
	for i, item := range items {
		l.font("", 9)
		wrapped := l.wrap(item, contentWidth-20)
		for j, line := range wrapped {
			l.EnsureSpace(textLineH)
			if j == 0 {
				l.font("B", 9)
				l.text(margin+5, l.Y()+4, strconv.Itoa(i+1)+".")
				l.font("", 9)
			}
			l.text(margin+15, l.Y()+4, line)
			l.Advance(textLineH)
		}
		l.Advance(2)
	}
	l.Advance(3)
}

func drawParagraph(l *Layout, lines []string) {
	l.font("", 9)
	for _, line := range lines {
		for _, part := range l.wrap(line, contentWidth-10) {
			l.EnsureSpace(textLineH)
			l.text(margin+5, l.Y()+4, part)
			l.Advance(textLineH)
		}
	}
	l.Advance(5)
}

// drawFooters revisits every page once the page count is known. It returns
// the page-number text of each page.
func drawFooters(l *Layout, reportID string, pages int) []string {
	pdf := l.pdf
	footers := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		pdf.SetPage(i)
		pdf.SetLineWidth(0.5)
		pdf.Line(margin, footerRuleY, pageWidth-margin, footerRuleY)

		pdf.SetFont(fontFamily, "I", 7)
		for _, d := range []struct {
			y    float64
			text string
		}{{footerLine1, disclaimer1}, {footerLine2, disclaimer2}} {
			enc := l.encode(d.text)
			pdf.Text((pageWidth-pdf.GetStringWidth(enc))/2, d.y, enc)
		}

		pdf.SetFont(fontFamily, "", 7)
		pdf.Text(margin, footerLine1, l.encode("Report ID: "+reportID))
		pageText := fmt.Sprintf("Page %d of %d", i, pages)
		pdf.Text(pageWidth-margin-pdf.GetStringWidth(pageText), footerLine1, pageText)
		footers = append(footers, pageText)
	}
	pdf.SetPage(pages)
	return footers
}
