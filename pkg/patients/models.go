package patients

import (
	"encoding/json"
	"time"

	"github.com/medifusion/platform/pkg/common/models"
	"gorm.io/datatypes"
)

// Patient is the durable record. At most one patient may carry a given
// non-null SSN; the unique index enforces that at the store layer. The
// embedding is computed once from the patient's text signature and cached on
// the row.
type Patient struct {
	ID                uint           `gorm:"primaryKey;column:id"`
	Name              string         `gorm:"column:name"`
	DOB               *time.Time     `gorm:"column:dob;type:date"`
	SSN               *string        `gorm:"column:ssn;uniqueIndex"`
	Gender            string         `gorm:"column:gender"`
	Address           string         `gorm:"column:address"`
	Phone             string         `gorm:"column:phone"`
	Email             string         `gorm:"column:email"`
	InsuranceNumber   string         `gorm:"column:insurance_number"`
	MedicalConditions datatypes.JSON `gorm:"column:medical_conditions"`
	Medications       string         `gorm:"column:medications;type:text"`
	Diagnosis         string         `gorm:"column:diagnosis;type:text"`
	DoctorName        string         `gorm:"column:doctor_name"`
	HospitalName      string         `gorm:"column:hospital_name"`
	Embedding         datatypes.JSON `gorm:"column:embedding"`
	CreatedAt         time.Time      `gorm:"column:created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at"`
}

func (Patient) TableName() string {
	return "patients"
}

// UnmatchedPatient stages records that matched nothing and lacked the
// identifiers to be treated as new, pending manual handling.
type UnmatchedPatient struct {
	ID                uint           `gorm:"primaryKey;column:id"`
	Name              string         `gorm:"column:name;not null"`
	DOB               *time.Time     `gorm:"column:dob;type:date"`
	SSN               string         `gorm:"column:ssn"`
	InsuranceNumber   string         `gorm:"column:insurance_number"`
	MedicalConditions datatypes.JSON `gorm:"column:medical_conditions"`
	Reason            string         `gorm:"column:reason"`
	CreatedAt         time.Time      `gorm:"column:created_at"`
}

func (UnmatchedPatient) TableName() string {
	return "unmatched_patients"
}

func (p *Patient) Conditions() []string {
	if len(p.MedicalConditions) == 0 {
		return nil
	}
	var conditions []string
	if err := json.Unmarshal(p.MedicalConditions, &conditions); err != nil {
		return nil
	}
	return conditions
}

func (p *Patient) EmbeddingVector() []float64 {
	if len(p.Embedding) == 0 {
		return nil
	}
	var vec []float64
	if err := json.Unmarshal(p.Embedding, &vec); err != nil {
		return nil
	}
	return vec
}

func (p *Patient) DOBString() string {
	if p.DOB == nil {
		return ""
	}
	return p.DOB.Format("2006-01-02")
}

func (p *Patient) SSNString() string {
	if p.SSN == nil {
		return ""
	}
	return *p.SSN
}

// SignatureRecord exposes the patient's identity fields in incoming-record
// shape so the same signature text feeds matching and embedding backfill.
func (p *Patient) SignatureRecord() models.IncomingRecord {
	return models.IncomingRecord{
		Name:              p.Name,
		DOB:               p.DOBString(),
		SSN:               p.SSNString(),
		InsuranceNumber:   p.InsuranceNumber,
		MedicalConditions: p.Conditions(),
		Address:           p.Address,
		Phone:             p.Phone,
		Email:             p.Email,
		Gender:            p.Gender,
	}
}

// PatientResponse is the API shape for a persisted patient.
type PatientResponse struct {
	ID                uint     `json:"id"`
	Name              string   `json:"name"`
	DOB               string   `json:"dob,omitempty"`
	SSN               string   `json:"ssn,omitempty"`
	Gender            string   `json:"gender,omitempty"`
	Address           string   `json:"address,omitempty"`
	Phone             string   `json:"phone,omitempty"`
	Email             string   `json:"email,omitempty"`
	InsuranceNumber   string   `json:"insurance_number,omitempty"`
	MedicalConditions []string `json:"medical_conditions,omitempty"`
	Medications       string   `json:"medications,omitempty"`
	Diagnosis         string   `json:"diagnosis,omitempty"`
	DoctorName        string   `json:"doctor_name,omitempty"`
	HospitalName      string   `json:"hospital_name,omitempty"`
	HasEmbedding      bool     `json:"has_embedding"`
}

func (p *Patient) ToResponse() PatientResponse {
	return PatientResponse{
		ID:                p.ID,
		Name:              p.Name,
		DOB:               p.DOBString(),
		SSN:               p.SSNString(),
		Gender:            p.Gender,
		Address:           p.Address,
		Phone:             p.Phone,
		Email:             p.Email,
		InsuranceNumber:   p.InsuranceNumber,
		MedicalConditions: p.Conditions(),
		Medications:       p.Medications,
		Diagnosis:         p.Diagnosis,
		DoctorName:        p.DoctorName,
		HospitalName:      p.HospitalName,
		HasEmbedding:      len(p.Embedding) > 0,
	}
}
