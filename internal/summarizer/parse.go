package summarizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"medical-summary/internal/models"
)

var (
	fencedJSONRe = regexp.MustCompile("(?is)```json[ \\t]*\\r?\\n(.*?)```")
	fencedRe     = regexp.MustCompile("(?s)```[a-zA-Z]*[ \\t]*\\r?\\n(.*?)```")

	errNoCandidate = errors.New("no JSON candidate found")
	errNoKeys      = errors.New("JSON object has none of the record keys")
)

// candidateFinder pulls a possible JSON document out of a model reply.
type candidateFinder struct {
	name string
	find func(reply string) (string, bool)
}

// parseAttempts are tried in order; the first candidate that decodes into a
// record wins.
var parseAttempts = []candidateFinder{
	{name: "fenced json block", find: submatch(fencedJSONRe)},
	{name: "fenced block", find: submatch(fencedRe)},
	{name: "balanced braces", find: firstBalancedObject},
	{name: "whole reply", find: func(reply string) (string, bool) { return reply, strings.TrimSpace(reply) != "" }},
}

// ParseRecord decodes the synthesis reply into a record and merges
// diagnosticStudies into labResults.
func ParseRecord(reply string) (models.ClinicalRecord, error) {
	lastErr := errNoCandidate
	for _, attempt := range parseAttempts {
		candidate, ok := attempt.find(reply)
		if !ok {
			continue
		}
		record, err := decodeRecord(candidate)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", attempt.name, err)
			continue
		}
		MergeDiagnosticStudies(&record)
		return record, nil
	}
	return models.ClinicalRecord{}, lastErr
}

// DegradedRecord is used when the synthesis reply cannot be parsed. It keeps
// the beginning of the reply as medical history.
func DegradedRecord(reply string) models.ClinicalRecord {
	history := []rune(reply)
	if len(history) > models.DegradedHistoryLimit {
		history = history[:models.DegradedHistoryLimit]
	}
	return models.ClinicalRecord{
		PatientProfile: models.ParseErrorMarker,
		MedicalHistory: string(history),
	}
}

// MergeDiagnosticStudies appends diagnosticStudies to labResults unless the
// lab text already contains it. Existing lab text is never replaced.
func MergeDiagnosticStudies(r *models.ClinicalRecord) {
	studies := strings.TrimSpace(r.DiagnosticStudies)
	if studies == "" || strings.EqualFold(studies, models.NotDocumented) {
		return
	}
	if strings.Contains(r.LabResults, r.DiagnosticStudies) {
		return
	}
	if r.LabResults == "" {
		r.LabResults = r.DiagnosticStudies
		return
	}
	r.LabResults = r.LabResults + "\n\n" + r.DiagnosticStudies
}

func submatch(re *regexp.Regexp) func(string) (string, bool) {
	return func(reply string) (string, bool) {
		m := re.FindStringSubmatch(reply)
		if m == nil {
			return "", false
		}
		return m[1], true
	}
}

// firstBalancedObject returns the first {...} span whose braces balance,
// ignoring braces inside JSON strings.
func firstBalancedObject(reply string) (string, bool) {
	for start := strings.IndexByte(reply, '{'); start >= 0; {
		if end := matchBrace(reply, start); end > 0 {
			return reply[start : end+1], true
		}
		next := strings.IndexByte(reply[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func decodeRecord(candidate string) (models.ClinicalRecord, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &raw); err != nil {
		return models.ClinicalRecord{}, err
	}

	var record models.ClinicalRecord
	found := 0
	for key, field := range record.Fields() {
		value, ok := raw[key]
		if !ok {
			continue
		}
		found++
		*field = strings.TrimSpace(flattenValue(value, true))
	}
	// older prompts used a singular key
	if value, ok := raw["diagnosis"]; ok {
		found++
		if record.Diagnoses == "" {
			record.Diagnoses = strings.TrimSpace(flattenValue(value, true))
		}
	}
	if found == 0 {
		return models.ClinicalRecord{}, errNoKeys
	}
	return record, nil
}

// flattenValue renders any JSON value as record text. Arrays become one line
// per item. A top-level object becomes "key: value" lines; an object inside
// an array becomes "first: rest, rest" so table rows keep their shape.
func flattenValue(raw json.RawMessage, topLevel bool) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return string(raw)
		}
		return s
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return string(raw)
		}
		var lines []string
		for _, item := range items {
			if s := strings.TrimSpace(flattenValue(item, false)); s != "" {
				lines = append(lines, s)
			}
		}
		return strings.Join(lines, "\n")
	case '{':
		keys, values, err := orderedObject(raw)
		if err != nil {
			return string(raw)
		}
		if topLevel {
			lines := make([]string, 0, len(keys))
			for i, k := range keys {
				if values[i] != "" {
					lines = append(lines, k+": "+values[i])
				}
			}
			return strings.Join(lines, "\n")
		}
		var parts []string
		for _, v := range values {
			if v != "" {
				parts = append(parts, v)
			}
		}
		if len(parts) <= 1 {
			return strings.Join(parts, "")
		}
		return parts[0] + ": " + strings.Join(parts[1:], ", ")
	case 'n':
		return ""
	default:
		return string(raw)
	}
}

// orderedObject decodes an object keeping its key order.
func orderedObject(raw json.RawMessage) ([]string, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	var keys, values []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		values = append(values, strings.TrimSpace(flattenValue(value, false)))
	}
	return keys, values, nil
}
