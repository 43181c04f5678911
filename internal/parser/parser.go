package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"medical-summary/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

const (
	ExtPDF  = ".pdf"
	ExtDOCX = ".docx"
	ExtPPTX = ".pptx"
	ExtXLSX = ".xlsx"
	ExtXLSM = ".xlsm"
	ExtXLTX = ".xltx"
	ExtXLTM = ".xltm"
	ExtTXT  = ".txt"
	ExtMD   = ".md"
)

var (
	docxTextRe  = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	pptxTextRe  = regexp.MustCompile(`<a:t(?:\s[^>]*)?>([^<]*)</a:t>`)
	pptxSlideRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
)

// ExtractText returns the plain text of a document held in memory. The
// extension selects the format; anything unrecognised is read as PDF.
func ExtractText(content []byte, ext string) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("empty document")
	}

	switch strings.ToLower(ext) {
	case ExtDOCX:
		return parseDOCX(content)
	case ExtPPTX:
		return parsePPTX(content)
	case ExtXLSX:
		return parseXLSX(content)
	case ExtXLSM, ExtXLTX, ExtXLTM:
		return parseWorkbook(content)
	case ExtTXT, ExtMD:
		return string(content), nil
	default:
		return parsePDF(content)
	}
}

// parsePDF extracts each page and joins pages with a blank line.
func parsePDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(pageText))
	}
	return strings.Join(pages, models.PageTextSeparator), nil
}

func parseDOCX(content []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer r.Close()

	return extractTextFromXML(r.Editable().GetContent(), docxTextRe, "</w:p>"), nil
}

func parsePPTX(content []byte) (string, error) {
	f, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open pptx: %w", err)
	}

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, file := range f.File {
		m := pptxSlideRe.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: num, file: file})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var texts []string
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		if text := extractTextFromXML(string(data), pptxTextRe, "</a:p>"); text != "" {
			texts = append(texts, text)
		}
	}
	return strings.Join(texts, models.PageTextSeparator), nil
}

func parseXLSX(content []byte) (string, error) {
	f, err := xlsx.OpenBinary(content)
	if err != nil {
		return "", fmt.Errorf("failed to open xlsx: %w", err)
	}

	var sheets []string
	for _, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			text.WriteString(strings.Join(cells, "\t"))
			text.WriteString("\n")
		}
		sheets = append(sheets, strings.TrimSpace(text.String()))
	}
	return strings.Join(sheets, models.PageTextSeparator), nil
}

// parseWorkbook reads macro-enabled and template workbooks through excelize.
func parseWorkbook(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var sheets []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t"))
			text.WriteString("\n")
		}
		sheets = append(sheets, strings.TrimSpace(text.String()))
	}
	return strings.Join(sheets, models.PageTextSeparator), nil
}

// extractTextFromXML collects the text runs matched by re, one output line
// per paragraph (blocks separated by paragraphEnd).
func extractTextFromXML(xmlContent string, re *regexp.Regexp, paragraphEnd string) string {
	var paragraphs []string
	for _, block := range strings.Split(xmlContent, paragraphEnd) {
		var text strings.Builder
		for _, m := range re.FindAllStringSubmatch(block, -1) {
			text.WriteString(m[1])
		}
		if s := strings.TrimSpace(html.UnescapeString(text.String())); s != "" {
			paragraphs = append(paragraphs, s)
		}
	}
	return strings.Join(paragraphs, "\n")
}
