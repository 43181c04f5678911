package summarizer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-summary/internal/models"
)

const recordJSON = `{
  "patientProfile": "Name: Jane Doe, Age: 54, Gender: Female",
  "medicalHistory": "Type 2 diabetes (2015)",
  "medications": "Metformin: 500mg, BID PO",
  "allergies": "Penicillin (rash)",
  "vitalSigns": "BP: 130/85 mmHg",
  "labResults": "Glucose: 150 mg/dL (70-99)",
  "diagnosticStudies": "Chest X-ray 2024-01-02: clear",
  "diagnoses": "Type 2 diabetes mellitus (E11.9)",
  "treatmentPlan": "Continue metformin",
  "followUp": "HbA1c in 3 months"
}`

func TestParseRecord_Variants(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"bare json", recordJSON},
		{"fenced json", "Here is the summary:\n```json\n" + recordJSON + "\n```\nLet me know."},
		{"fenced json uppercase tag", "```JSON\n" + recordJSON + "\n```"},
		{"generic fence", "```\n" + recordJSON + "\n```"},
		{"prose around braces", "Sure! " + recordJSON + " Hope this helps {not json}."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseRecord(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, "Name: Jane Doe, Age: 54, Gender: Female", rec.PatientProfile)
			assert.Equal(t, "Metformin: 500mg, BID PO", rec.Medications)
			assert.Equal(t, "HbA1c in 3 months", rec.FollowUp)
		})
	}
}

func TestParseRecord_FallsThroughBrokenFence(t *testing.T) {
	reply := "```json\n{\"patientProfile\": \n```\nCorrected:\n" + recordJSON
	rec, err := ParseRecord(reply)
	require.NoError(t, err)
	assert.Equal(t, "Type 2 diabetes (2015)", rec.MedicalHistory)
}

func TestParseRecord_BracesInsideStrings(t *testing.T) {
	reply := `Result: {"patientProfile": "Name: {redacted}", "labResults": "CRP: 3 mg/L (0-5)"} trailing }`
	rec, err := ParseRecord(reply)
	require.NoError(t, err)
	assert.Equal(t, "Name: {redacted}", rec.PatientProfile)
	assert.Equal(t, "CRP: 3 mg/L (0-5)", rec.LabResults)
}

func TestParseRecord_MergesDiagnosticStudies(t *testing.T) {
	rec, err := ParseRecord(recordJSON)
	require.NoError(t, err)
	assert.Equal(t, "Glucose: 150 mg/dL (70-99)\n\nChest X-ray 2024-01-02: clear", rec.LabResults)
	assert.Equal(t, "Chest X-ray 2024-01-02: clear", rec.DiagnosticStudies)
}

func TestParseRecord_CoercesNonStringValues(t *testing.T) {
	reply := `{
	  "patientProfile": {"Name": "John Roe", "Age": 61, "Sex": "M"},
	  "medications": [
	    {"name": "Lisinopril", "dose": "10mg", "frequency": "daily"},
	    "Aspirin: 81mg, daily"
	  ],
	  "labResults": ["Glucose: 95 mg/dL (70-99)", null, "LDL: 130 mg/dL (0-99)"],
	  "allergies": null,
	  "followUp": 3,
	  "diagnosis": "Hypertension"
	}`
	rec, err := ParseRecord(reply)
	require.NoError(t, err)

	assert.Equal(t, "Name: John Roe\nAge: 61\nSex: M", rec.PatientProfile)
	assert.Equal(t, "Lisinopril: 10mg, daily\nAspirin: 81mg, daily", rec.Medications)
	assert.Equal(t, "Glucose: 95 mg/dL (70-99)\nLDL: 130 mg/dL (0-99)", rec.LabResults)
	assert.Equal(t, "", rec.Allergies)
	assert.Equal(t, "3", rec.FollowUp)
	assert.Equal(t, "Hypertension", rec.Diagnoses)
}

func TestParseRecord_Failures(t *testing.T) {
	for _, reply := range []string{
		"I could not find any clinical information in these documents.",
		"",
		`{"unrelated": true}`,
		"```json\n{\"patientProfile\": \"x\",}\n```",
	} {
		_, err := ParseRecord(reply)
		assert.Error(t, err, reply)
	}
}

func TestDegradedRecord(t *testing.T) {
	reply := strings.Repeat("prose without json ", 200)
	rec := DegradedRecord(reply)

	assert.Equal(t, models.ParseErrorMarker, rec.PatientProfile)
	assert.NotEmpty(t, rec.MedicalHistory)
	assert.Equal(t, models.DegradedHistoryLimit, utf8.RuneCountInString(rec.MedicalHistory))
	assert.True(t, strings.HasPrefix(reply, rec.MedicalHistory))

	fields := rec.Map()
	assert.Len(t, fields, 10)
	for _, key := range models.RecordKeys {
		_, ok := fields[key]
		assert.True(t, ok, key)
		if key != "patientProfile" && key != "medicalHistory" {
			assert.Empty(t, fields[key], key)
		}
	}
}

func TestDegradedRecord_ShortReply(t *testing.T) {
	rec := DegradedRecord("no json here")
	assert.Equal(t, "no json here", rec.MedicalHistory)
}

func TestMergeDiagnosticStudies(t *testing.T) {
	tests := []struct {
		name    string
		labs    string
		studies string
		want    string
	}{
		{"appends", "Glucose: 95 mg/dL", "MRI brain: normal", "Glucose: 95 mg/dL\n\nMRI brain: normal"},
		{"already contained", "Glucose: 95 mg/dL\n\nMRI brain: normal", "MRI brain: normal", "Glucose: 95 mg/dL\n\nMRI brain: normal"},
		{"no studies", "Glucose: 95 mg/dL", "", "Glucose: 95 mg/dL"},
		{"sentinel studies", "Glucose: 95 mg/dL", "Not documented", "Glucose: 95 mg/dL"},
		{"empty labs", "", "ECG: sinus rhythm", "ECG: sinus rhythm"},
		{"sentinel labs kept", "Not documented", "ECG: sinus rhythm", "Not documented\n\nECG: sinus rhythm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := models.ClinicalRecord{LabResults: tt.labs, DiagnosticStudies: tt.studies}
			MergeDiagnosticStudies(&rec)
			assert.Equal(t, tt.want, rec.LabResults)
			assert.Contains(t, rec.LabResults, tt.labs)
			assert.Equal(t, tt.studies, rec.DiagnosticStudies)
		})
	}
}

func TestFirstBalancedObject(t *testing.T) {
	got, ok := firstBalancedObject(`x { "a": {"b": "}"} } y {"c": 1}`)
	require.True(t, ok)
	assert.Equal(t, `{ "a": {"b": "}"} }`, got)

	got, ok = firstBalancedObject(`{ unclosed {"ok": "yes"}`)
	require.True(t, ok)
	assert.Equal(t, `{"ok": "yes"}`, got)

	_, ok = firstBalancedObject("no braces")
	assert.False(t, ok)
}
