package models

import "time"

// Review statuses attached to match outcomes. The string values are part of
// the API contract consumed by the review UI.
const (
	ReviewConfirmed   = "Confirmed"
	ReviewHumanReview = "Human Review"
)

// Match methods.
const (
	MethodFuzzy     = "fuzzy"
	MethodEmbedding = "embedding"
)

// IncomingRecord is one patient as extracted upstream from a document. It is
// never persisted directly: it either merges into an existing patient, is
// surfaced as a new-patient candidate, or is staged as unmatched.
type IncomingRecord struct {
	Name              string   `json:"name"`
	DOB               string   `json:"dob,omitempty"` // YYYY-MM-DD
	SSN               string   `json:"ssn,omitempty"`
	InsuranceNumber   string   `json:"insurance_number,omitempty"`
	MedicalConditions []string `json:"medical_conditions,omitempty"`
	Address           string   `json:"address,omitempty"`
	Phone             string   `json:"phone,omitempty"`
	Email             string   `json:"email,omitempty"`
	Gender            string   `json:"gender,omitempty"`
}

// HasFullIdentity reports whether the record carries every identifier needed
// to stand on its own as a brand-new patient.
func (r IncomingRecord) HasFullIdentity() bool {
	return r.Name != "" && r.DOB != "" && r.SSN != "" && r.InsuranceNumber != ""
}

type MatchRequest struct {
	Patients []IncomingRecord `json:"patients"`
}

// MatchedEntry records a merge of an incoming record into an existing patient.
type MatchedEntry struct {
	Incoming     IncomingRecord `json:"incoming"`
	PatientID    uint           `json:"patient_id"`
	Method       string         `json:"method"` // fuzzy, embedding
	Score        float64        `json:"score"`
	Status       string         `json:"status"`
	ReviewStatus string         `json:"review_status"`
}

// NewEntry is an incoming record with a complete identity but no match in the
// candidate pool. Always routed to human review.
type NewEntry struct {
	Record       IncomingRecord `json:"record"`
	ReviewStatus string         `json:"review_status"`
}

// UnmatchedEntry is an incoming record that matched nothing and lacks the
// identifiers to be safely treated as new.
type UnmatchedEntry struct {
	Record IncomingRecord `json:"record"`
	Reason string         `json:"reason"`
}

// FailedEntry reports a per-record failure (validation or store write). A
// failure never aborts the rest of the batch.
type FailedEntry struct {
	Record IncomingRecord `json:"record"`
	Stage  string         `json:"stage"` // validation, merge
	Reason string         `json:"reason"`
}

type BatchResult struct {
	Matched   []MatchedEntry   `json:"matched_patients"`
	Unmatched []UnmatchedEntry `json:"unmatched_patients"`
	New       []NewEntry       `json:"new_patients"`
	Failed    []FailedEntry    `json:"failed_patients,omitempty"`
	Summary   BatchSummary     `json:"summary"`
}

type BatchSummary struct {
	Total          int `json:"total"`
	Matched        int `json:"matched"`
	Unmatched      int `json:"unmatched"`
	New            int `json:"new"`
	Failed         int `json:"failed"`
	ReviewRequired int `json:"review_required"`
	Confirmed      int `json:"confirmed"`
}

// StructuredPatientInput creates a patient directly from already-reviewed
// structured data, bypassing matching.
type StructuredPatientInput struct {
	Name              string   `json:"name"`
	DOB               string   `json:"dob,omitempty"`
	SSN               string   `json:"ssn,omitempty"`
	InsuranceNumber   string   `json:"insurance_number,omitempty"`
	MedicalConditions []string `json:"medical_conditions,omitempty"`
	Address           string   `json:"address,omitempty"`
	Phone             string   `json:"phone,omitempty"`
	Email             string   `json:"email,omitempty"`
	Gender            string   `json:"gender,omitempty"`
	Medications       string   `json:"medications,omitempty"`
	Diagnosis         string   `json:"diagnosis,omitempty"`
	DoctorName        string   `json:"doctor_name,omitempty"`
	HospitalName      string   `json:"hospital_name,omitempty"`
}

// Ingestion: documents arrive with their structured extraction already done
// by the upstream OCR/NER pipeline.
type IngestRequest struct {
	Source    string              `json:"source"` // hospital, lab, imaging
	Documents []ExtractedDocument `json:"documents"`
}

type ExtractedDocument struct {
	Filename string         `json:"filename"`
	Record   IncomingRecord `json:"record"`
}

type IngestResponse struct {
	Accepted  []IngestedDocument `json:"accepted"`
	Timestamp time.Time          `json:"timestamp"`
}

type IngestedDocument struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // record.extracted, patient.matched, patient.unmatched
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
