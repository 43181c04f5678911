package report

import (
	"regexp"
	"strconv"
	"strings"

	"medical-summary/internal/models"
)

var (
	dosageRe       = regexp.MustCompile(models.DosageRegex)
	measurementRe  = regexp.MustCompile(models.MeasurementRegex)
	refRangeRe     = regexp.MustCompile(models.ReferenceRangeRegex)
	leadingNumRe   = regexp.MustCompile(models.LeadingNumberRegex)
	numericRangeRe = regexp.MustCompile(models.NumericRangeRegex)
)

// RowParser maps one line of section text to table cells. ok is false when the
// line does not have the shape the parser understands.
type RowParser interface {
	ParseRow(line string) (cells []string, ok bool)
}

type RowParserFunc func(line string) ([]string, bool)

func (f RowParserFunc) ParseRow(line string) ([]string, bool) { return f(line) }

// RowChain tries its parsers in order. A line no parser accepts fills the
// first cell and leaves the rest empty.
type RowChain struct {
	Columns int
	Parsers []RowParser
}

func (c RowChain) Parse(line string) []string {
	line = strings.TrimSpace(line)
	for _, p := range c.Parsers {
		if cells, ok := p.ParseRow(line); ok {
			return pad(cells, c.Columns)
		}
	}
	return pad([]string{line}, c.Columns)
}

func pad(cells []string, n int) []string {
	for len(cells) < n {
		cells = append(cells, "")
	}
	return cells[:n]
}

// MedicationRows parses "Name: dosage, instructions" lines into
// [name, dosage, frequency].
var MedicationRows = RowChain{
	Columns: 3,
	Parsers: []RowParser{
		RowParserFunc(parseNamedMedication),
		RowParserFunc(parseBareMedication),
	},
}

// MeasurementRows parses "Name: value unit (range)" lines into
// [name, result, unit, reference range]. Labs and vitals share it.
var MeasurementRows = RowChain{
	Columns: 4,
	Parsers: []RowParser{RowParserFunc(parseMeasurement)},
}

func parseNamedMedication(line string) ([]string, bool) {
	name, details, ok := strings.Cut(line, ":")
	if !ok {
		return nil, false
	}
	name, details = strings.TrimSpace(name), strings.TrimSpace(details)

	if dosage, freq, ok := strings.Cut(details, ","); ok {
		return []string{name, strings.TrimSpace(dosage), strings.TrimSpace(freq)}, true
	}
	if loc := dosageRe.FindStringIndex(details); loc != nil {
		return []string{name, details[loc[0]:loc[1]], squash(details[:loc[0]] + " " + details[loc[1]:])}, true
	}
	return []string{name, "", details}, true
}

// parseBareMedication handles lines without a colon, e.g. "Aspirin 81mg daily".
func parseBareMedication(line string) ([]string, bool) {
	loc := dosageRe.FindStringIndex(line)
	if loc == nil {
		return nil, false
	}
	return []string{
		strings.TrimSpace(line[:loc[0]]),
		line[loc[0]:loc[1]],
		strings.TrimSpace(line[loc[1]:]),
	}, true
}

func parseMeasurement(line string) ([]string, bool) {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return nil, false
	}
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)

	var refRange string
	if loc := refRangeRe.FindStringSubmatchIndex(value); loc != nil {
		refRange = strings.TrimSpace(value[loc[2]:loc[3]])
		value = squash(value[:loc[0]] + " " + value[loc[1]:])
	}

	result, unit := value, ""
	// split value and unit only when the number and unit are the whole value
	if m := measurementRe.FindStringSubmatchIndex(value); m != nil {
		rest := strings.TrimSpace(value[:m[0]] + value[m[1]:])
		if rest == "" {
			result = value[m[2]:m[3]]
			if m[4] >= 0 {
				unit = value[m[4]:m[5]]
			}
		}
	}
	return []string{name, result, unit, refRange}, true
}

// IsOutOfRange reports whether the leading number of result falls outside a
// "low-high" reference range. Anything it cannot read numerically is in range.
func IsOutOfRange(result, refRange string) bool {
	m := leadingNumRe.FindStringSubmatch(result)
	if m == nil {
		return false
	}
	r := numericRangeRe.FindStringSubmatch(refRange)
	if r == nil {
		return false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return false
	}
	low, errLow := strconv.ParseFloat(r[1], 64)
	high, errHigh := strconv.ParseFloat(r[2], 64)
	if errLow != nil || errHigh != nil {
		return false
	}
	return value < low || value > high
}

func squash(s string) string { return strings.Join(strings.Fields(s), " ") }
