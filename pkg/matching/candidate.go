package matching

import (
	"context"

	"github.com/medifusion/platform/pkg/common/models"
)

// Candidate is the matcher's view of a persisted patient. The embedding is
// present only for patients that have been through the backfill or a prior
// semantic match.
type Candidate struct {
	ID                uint
	Name              string
	DOB               string // YYYY-MM-DD
	SSN               string
	InsuranceNumber   string
	MedicalConditions []string
	Address           string
	Phone             string
	Email             string
	Gender            string
	Embedding         []float64
}

// CandidateStore is the persistent record store the orchestrator matches
// against. Each MergeIntoCandidate call is its own transaction.
type CandidateStore interface {
	FetchAllCandidates(ctx context.Context) ([]Candidate, error)
	MergeIntoCandidate(ctx context.Context, id uint, rec models.IncomingRecord) error
	StageUnmatched(ctx context.Context, rec models.IncomingRecord, reason string) error
}

// Embedder produces a fixed-length vector for a text signature.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Publisher emits platform events for downstream consumers.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}
