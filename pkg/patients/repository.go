package patients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/medifusion/platform/pkg/common/models"
	"github.com/medifusion/platform/pkg/matching"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrPatientNotFound = errors.New("patient not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Patient{}, &UnmatchedPatient{})
}

func (r *Repository) Create(ctx context.Context, patient *Patient) error {
	return r.db.WithContext(ctx).Create(patient).Error
}

func (r *Repository) GetByID(ctx context.Context, id uint) (*Patient, error) {
	var patient Patient
	result := r.db.WithContext(ctx).First(&patient, id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrPatientNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &patient, nil
}

func (r *Repository) List(ctx context.Context) ([]Patient, error) {
	var all []Patient
	result := r.db.WithContext(ctx).Order("id ASC").Find(&all)
	return all, result.Error
}

func (r *Repository) ListUnmatched(ctx context.Context, limit int) ([]UnmatchedPatient, error) {
	if limit <= 0 {
		limit = 100
	}
	var staged []UnmatchedPatient
	result := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&staged)
	return staged, result.Error
}

func (r *Repository) MissingEmbeddings(ctx context.Context) ([]Patient, error) {
	var missing []Patient
	result := r.db.WithContext(ctx).
		Where("embedding IS NULL OR embedding = 'null'").
		Order("id ASC").
		Find(&missing)
	return missing, result.Error
}

func (r *Repository) SaveEmbedding(ctx context.Context, id uint, vec []float64) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}
	result := r.db.WithContext(ctx).
		Model(&Patient{}).
		Where("id = ?", id).
		Update("embedding", datatypes.JSON(raw))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPatientNotFound
	}
	return nil
}

// FetchAllCandidates snapshots the full pool in stable id order; the
// orchestrator's tie-break depends on that ordering.
func (r *Repository) FetchAllCandidates(ctx context.Context) ([]matching.Candidate, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	pool := make([]matching.Candidate, 0, len(all))
	for i := range all {
		p := &all[i]
		pool = append(pool, matching.Candidate{
			ID:                p.ID,
			Name:              p.Name,
			DOB:               p.DOBString(),
			SSN:               p.SSNString(),
			InsuranceNumber:   p.InsuranceNumber,
			MedicalConditions: p.Conditions(),
			Address:           p.Address,
			Phone:             p.Phone,
			Email:             p.Email,
			Gender:            p.Gender,
			Embedding:         p.EmbeddingVector(),
		})
	}
	return pool, nil
}

// MergeIntoCandidate overwrites only the fields present on the incoming
// record; absent fields keep the stored value. Condition lists are replaced
// wholesale. One call, one transaction.
func (r *Repository) MergeIntoCandidate(ctx context.Context, id uint, rec models.IncomingRecord) error {
	updates := map[string]interface{}{}

	if rec.Name != "" {
		updates["name"] = rec.Name
	}
	if rec.DOB != "" {
		dob, err := parseDate(rec.DOB)
		if err != nil {
			return fmt.Errorf("invalid dob %q: %w", rec.DOB, err)
		}
		updates["dob"] = dob
	}
	if rec.SSN != "" {
		updates["ssn"] = rec.SSN
	}
	if rec.InsuranceNumber != "" {
		updates["insurance_number"] = rec.InsuranceNumber
	}
	if rec.MedicalConditions != nil {
		raw, err := json.Marshal(rec.MedicalConditions)
		if err != nil {
			return fmt.Errorf("failed to encode conditions: %w", err)
		}
		updates["medical_conditions"] = datatypes.JSON(raw)
	}
	if rec.Address != "" {
		updates["address"] = rec.Address
	}
	if rec.Phone != "" {
		updates["phone"] = rec.Phone
	}
	if rec.Email != "" {
		updates["email"] = rec.Email
	}
	if rec.Gender != "" {
		updates["gender"] = rec.Gender
	}

	if len(updates) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&Patient{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *Repository) StageUnmatched(ctx context.Context, rec models.IncomingRecord, reason string) error {
	staged := UnmatchedPatient{
		Name:            rec.Name,
		SSN:             rec.SSN,
		InsuranceNumber: rec.InsuranceNumber,
		Reason:          reason,
		CreatedAt:       time.Now().UTC(),
	}
	if rec.DOB != "" {
		if dob, err := parseDate(rec.DOB); err == nil {
			staged.DOB = dob
		}
	}
	if rec.MedicalConditions != nil {
		if raw, err := json.Marshal(rec.MedicalConditions); err == nil {
			staged.MedicalConditions = datatypes.JSON(raw)
		}
	}
	return r.db.WithContext(ctx).Create(&staged).Error
}

func parseDate(value string) (*time.Time, error) {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
