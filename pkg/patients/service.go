package patients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/medifusion/platform/pkg/common/logger"
	"github.com/medifusion/platform/pkg/common/models"
	"github.com/medifusion/platform/pkg/matching"
	"gorm.io/datatypes"
)

var ErrNameRequired = errors.New("patient name is required")

// Embedder mirrors the matching package's provider contract; the service uses
// it to backfill embeddings for patients that never had one computed.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

type Service struct {
	repo     *Repository
	embedder Embedder
}

func NewService(repo *Repository, embedder Embedder) *Service {
	return &Service{repo: repo, embedder: embedder}
}

// CreateFromStructured persists an already-reviewed structured extraction as
// a new patient, bypassing matching.
func (s *Service) CreateFromStructured(ctx context.Context, input models.StructuredPatientInput) (*Patient, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrNameRequired
	}

	patient := &Patient{
		Name:            strings.TrimSpace(input.Name),
		Gender:          input.Gender,
		Address:         input.Address,
		Phone:           input.Phone,
		Email:           input.Email,
		InsuranceNumber: input.InsuranceNumber,
		Medications:     input.Medications,
		Diagnosis:       input.Diagnosis,
		DoctorName:      input.DoctorName,
		HospitalName:    input.HospitalName,
	}
	if input.SSN != "" {
		ssn := input.SSN
		patient.SSN = &ssn
	}
	if input.DOB != "" {
		dob, err := parseDate(input.DOB)
		if err != nil {
			return nil, fmt.Errorf("invalid dob %q: %w", input.DOB, err)
		}
		patient.DOB = dob
	}
	if input.MedicalConditions != nil {
		raw, err := json.Marshal(input.MedicalConditions)
		if err != nil {
			return nil, fmt.Errorf("failed to encode conditions: %w", err)
		}
		patient.MedicalConditions = datatypes.JSON(raw)
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Patient, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListUnmatched(ctx context.Context, limit int) ([]UnmatchedPatient, error) {
	return s.repo.ListUnmatched(ctx, limit)
}

// BackfillEmbeddings computes and stores embeddings for every patient missing
// one. Provider failures skip the patient and continue; the count of patients
// embedded is returned alongside the count skipped.
func (s *Service) BackfillEmbeddings(ctx context.Context) (embedded int, skipped int, err error) {
	if s.embedder == nil {
		return 0, 0, errors.New("no embedding provider configured")
	}

	missing, err := s.repo.MissingEmbeddings(ctx)
	if err != nil {
		return 0, 0, err
	}

	for i := range missing {
		p := &missing[i]
		text := matching.Signature(p.SignatureRecord())
		if text == "" {
			skipped++
			continue
		}

		vec, embedErr := s.embedder.Embed(ctx, text)
		if embedErr != nil {
			logger.Log.WithError(embedErr).WithField("patient_id", p.ID).Warn("embedding backfill skipped patient")
			skipped++
			continue
		}
		if saveErr := s.repo.SaveEmbedding(ctx, p.ID, vec); saveErr != nil {
			logger.Log.WithError(saveErr).WithField("patient_id", p.ID).Error("failed to store embedding")
			skipped++
			continue
		}
		embedded++
	}

	return embedded, skipped, nil
}
