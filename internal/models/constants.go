package models

const (
	// DocumentSeparator joins per-document texts in extraction output.
	DocumentSeparator = "\n\n==== NEW DOCUMENT ====\n\n"
	// ExtractionErrorFormat is the inline placeholder for a document that failed.
	ExtractionErrorFormat = "[Error extracting text from %s: %s]"
	// NotDocumented marks a section with no extracted information.
	NotDocumented = "Not documented"
	// ParseErrorMarker is the patientProfile of a degraded record.
	ParseErrorMarker = "Error parsing summary data"
	// DegradedHistoryLimit bounds the raw reply kept in a degraded record.
	DegradedHistoryLimit = 1000

	SummaryKind       = "medical-summary"
	UploadKind        = "medical-record"
	PDFContentType    = "application/pdf"
	ReportIDPrefix    = "MR-"
	PatientRefPrefix  = "P-"
	ChunkSeparator    = "\n\n"
	PageTextSeparator = "\n\n"
)

// field patterns matched against the free-text patient profile
const (
	PatientNameRegex   = `(?i)Name\s*:?\s*([^,\n]*)`
	PatientAgeRegex    = `(?i)Age\s*:?\s*(\d+)`
	PatientGenderRegex = `(?i)(?:gender|sex)\s*:?\s*(female|male|[mf])`
	PatientDOBRegex    = `(?i)(?:DOB|Date of Birth|Born)\s*:?\s*([^,\n]*\d{4})`
)

// table cell patterns
const (
	DosageRegex         = `(?i)\d+(?:\.\d+)?\s*(?:mcg|mg|ml|g|tab|cap)`
	MeasurementRegex    = `(\d+(?:\.\d+)?(?:/\d+(?:\.\d+)?)?)\s*([a-zA-Zµ%/][a-zA-Zµ%/0-9^]*)?`
	ReferenceRangeRegex = `\(([^()]*)\)`
	LeadingNumberRegex  = `^\s*(-?\d+(?:\.\d+)?)`
	NumericRangeRegex   = `^\s*(-?\d+(?:\.\d+)?)\s*[-–]\s*(-?\d+(?:\.\d+)?)`
)

var (
	ChunkSystemPrompt = `You are a highly specialized medical AI with expertise in clinical documentation analysis.
Your task is to extract and organize key medical information with precision and clinical accuracy.

Extract the following categories with appropriate medical terminology:
1. Patient demographics (name, DOB, age, gender, MRN, contact information)
2. Medical history (chronological list of conditions with dates of diagnosis when available)
3. Current medications (name, dosage, frequency, route, and purpose)
4. Allergies (allergen, reaction type, severity)
5. Vital signs (with units and reference ranges)
6. Lab results (with values, units, reference ranges, and collection dates)
7. Imaging and diagnostic studies (modality, body part, key findings, date)
8. Clinical assessment and diagnoses (primary and secondary diagnoses with ICD codes if available)
9. Treatment plans (medications, procedures, therapies)
10. Follow-up recommendations (appointments, tests, monitoring parameters)

Use medical standard formatting. For medications, use proper dosing syntax (e.g., "Metformin: 500mg, BID PO").
For lab values, include units and reference ranges (e.g., "Glucose: 95 mg/dL (70-99)").
For vital signs, use appropriate clinical notation (e.g., "BP: 120/80 mmHg").

Maintain clinical objectivity and factual accuracy. Do not add interpretations beyond what's stated in the source.
If information is missing for any section, note "Not documented" rather than leaving it blank.`

	ChunkUserPromptTemplate = "Analyze and extract structured medical information from the following clinical documentation:\n\n%s"

	SynthesisSystemPrompt = `You are a medical documentation specialist AI that synthesizes clinical information into comprehensive patient summaries.

Your task is to integrate multiple summary fragments from a patient's medical records into one cohesive clinical summary.

Create a structured summary with these precise sections:
1. PATIENT PROFILE: Complete demographics including name, DOB, age, gender, MRN and contact details
2. MEDICAL HISTORY: Comprehensive chronological list of conditions with onset dates and relevant notes
3. MEDICATIONS: Complete medication list with name, dosage, frequency, route, start date, and indication
4. ALLERGIES: All documented allergies with specific reaction types and severity
5. VITAL SIGNS: Most recent measurements with appropriate clinical units and notation
6. LAB RESULTS: Key laboratory findings with values, units, reference ranges, and collection dates
7. DIAGNOSTIC STUDIES: Imaging and other diagnostic results with dates and key findings
8. DIAGNOSES: Primary and secondary diagnoses with ICD codes if available
9. TREATMENT PLAN: Detailed current plan including medications, procedures, and therapies
10. FOLLOW-UP: Specific recommendations including timeframes, provider types, and monitoring parameters

Important guidelines:
- Resolve any contradictions between records by favoring the most recent information
- Remove duplicates while preserving all unique clinical details
- Maintain proper medical terminology and standardized formatting
- Organize information in clinical priority order within each section
- Put one item per line, formatted as "Name: details"
- Use "Not documented" for sections without available information

Return only the response in this JSON format:
{
  "patientProfile": "",
  "medicalHistory": "",
  "medications": "",
  "allergies": "",
  "vitalSigns": "",
  "labResults": "",
  "diagnosticStudies": "",
  "diagnoses": "",
  "treatmentPlan": "",
  "followUp": ""
}`

	SynthesisUserPromptTemplate = "Synthesize the following clinical documentation fragments into a single comprehensive patient summary:\n\n%s"
)
