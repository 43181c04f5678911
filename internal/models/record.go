package models

import "time"

// ClinicalRecord is the canonical structured summary of one request.
// Every field is free text; NotDocumented or "" marks an absent section.
type ClinicalRecord struct {
	PatientProfile    string `json:"patientProfile"`
	MedicalHistory    string `json:"medicalHistory"`
	Medications       string `json:"medications"`
	Allergies         string `json:"allergies"`
	VitalSigns        string `json:"vitalSigns"`
	LabResults        string `json:"labResults"`
	DiagnosticStudies string `json:"diagnosticStudies"`
	Diagnoses         string `json:"diagnoses"`
	TreatmentPlan     string `json:"treatmentPlan"`
	FollowUp          string `json:"followUp"`
}

// RecordKeys lists the canonical keys in schema order.
var RecordKeys = []string{
	"patientProfile",
	"medicalHistory",
	"medications",
	"allergies",
	"vitalSigns",
	"labResults",
	"diagnosticStudies",
	"diagnoses",
	"treatmentPlan",
	"followUp",
}

// Fields returns pointers to the record fields keyed by their JSON names.
func (r *ClinicalRecord) Fields() map[string]*string {
	return map[string]*string{
		"patientProfile":    &r.PatientProfile,
		"medicalHistory":    &r.MedicalHistory,
		"medications":       &r.Medications,
		"allergies":         &r.Allergies,
		"vitalSigns":        &r.VitalSigns,
		"labResults":        &r.LabResults,
		"diagnosticStudies": &r.DiagnosticStudies,
		"diagnoses":         &r.Diagnoses,
		"treatmentPlan":     &r.TreatmentPlan,
		"followUp":          &r.FollowUp,
	}
}

// Map returns a copy of the record keyed by JSON name; it always has all ten keys.
func (r ClinicalRecord) Map() map[string]string {
	out := make(map[string]string, len(RecordKeys))
	for k, v := range r.Fields() {
		out[k] = *v
	}
	return out
}

// Rendered is a report produced from a ClinicalRecord.
type Rendered struct {
	Content     []byte
	ReportID    string
	GeneratedAt time.Time
	Pages       int
}

// SummaryResult is what the pipeline hands back to its caller.
type SummaryResult struct {
	URL         string    `json:"summaryPdfUrl"`
	FileName    string    `json:"fileName"`
	ReportID    string    `json:"reportId"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// ReportEntry is one generated report as kept in the report history.
type ReportEntry struct {
	ID          string    `json:"id"`
	ReportID    string    `json:"reportId"`
	FileName    string    `json:"fileName"`
	URL         string    `json:"summaryPdfUrl"`
	SourceURLs  []string  `json:"sourceUrls"`
	Pages       int       `json:"pages"`
	Degraded    bool      `json:"degraded"`
	GeneratedAt time.Time `json:"generatedAt"`
}
