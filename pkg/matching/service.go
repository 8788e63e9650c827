package matching

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/medifusion/platform/pkg/common/logger"
	"github.com/medifusion/platform/pkg/common/models"
	"github.com/medifusion/platform/pkg/observability/metrics"
)

const unmatchedReason = "no similar match found"

// Service orchestrates the two-stage match over a candidate pool: a
// deterministic fuzzy scan first, then a semantic embedding scan for records
// the fuzzy stage missed.
type Service struct {
	store      CandidateStore
	embedder   Embedder
	comparator *Comparator
	rules      Rules
	producer   Publisher
	dlq        Publisher
}

func NewService(store CandidateStore, embedder Embedder, rules Rules, producer, dlq Publisher) *Service {
	return &Service{
		store:      store,
		embedder:   embedder,
		comparator: NewComparator(rules.MatchThreshold),
		rules:      rules,
		producer:   producer,
		dlq:        dlq,
	}
}

// ProcessBatch classifies every incoming record against the persisted pool.
// The pool is fetched once per batch; a merge mutates the in-memory snapshot
// entry as well as the store, so later records in the same batch see the
// merged fields and cannot independently claim an already-claimed candidate.
// Records are matched only against the persisted pool, never against each
// other. Every failure mode is scoped to the record that triggered it.
func (s *Service) ProcessBatch(ctx context.Context, records []models.IncomingRecord) (*models.BatchResult, error) {
	pool, err := s.store.FetchAllCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	result := &models.BatchResult{
		Matched:   []models.MatchedEntry{},
		Unmatched: []models.UnmatchedEntry{},
		New:       []models.NewEntry{},
	}

	for _, rec := range records {
		s.processRecord(ctx, rec, pool, result)
	}

	result.Summary = Summarize(result)
	metrics.ObserveBatch(result.Summary.Matched, result.Summary.Unmatched, result.Summary.New,
		result.Summary.Failed, result.Summary.Confirmed, result.Summary.ReviewRequired)
	return result, nil
}

func (s *Service) processRecord(ctx context.Context, rec models.IncomingRecord, pool []Candidate, result *models.BatchResult) {
	if strings.TrimSpace(rec.Name) == "" {
		result.Failed = append(result.Failed, models.FailedEntry{
			Record: rec,
			Stage:  "validation",
			Reason: ErrMissingName.Error(),
		})
		return
	}

	// Stage 1: fuzzy scan. Ties keep the first candidate in pool order.
	bestIdx := -1
	bestScore := 0
	for i := range pool {
		_, score := s.comparator.Score(pool[i], rec)
		if score < s.rules.ConsiderationThreshold {
			continue
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx >= 0 && bestScore >= s.rules.MatchThreshold {
		s.acceptMatch(ctx, rec, &pool[bestIdx], matchDecision{
			method:    models.MethodFuzzy,
			score:     float64(bestScore),
			confirmed: bestScore >= s.rules.ConfirmThreshold,
		}, result)
		return
	}

	// Stage 2: embedding scan. A provider failure degrades this one record to
	// "no semantic score available"; it never aborts the batch.
	if s.embedder != nil {
		embedding, err := s.embedder.Embed(ctx, Signature(rec))
		if err != nil {
			logger.Log.WithError(err).WithField("name", rec.Name).
				Warn("embedding provider unavailable, skipping semantic stage")
		} else if idx, score := BestEmbeddingMatch(embedding, pool); idx >= 0 && score >= s.rules.EmbeddingThreshold {
			s.acceptMatch(ctx, rec, &pool[idx], matchDecision{
				method:    models.MethodEmbedding,
				score:     math.Round(score*10000) / 100,
				confirmed: score >= s.rules.EmbeddingConfirmThreshold,
			}, result)
			return
		}
	}

	// A brand-new identity needs every identifier and always a human to
	// confirm it is not an unseen duplicate.
	if rec.HasFullIdentity() {
		result.New = append(result.New, models.NewEntry{
			Record:       rec,
			ReviewStatus: models.ReviewHumanReview,
		})
		return
	}

	if err := s.store.StageUnmatched(ctx, rec, unmatchedReason); err != nil {
		logger.Log.WithError(err).WithField("name", rec.Name).Warn("failed to stage unmatched record")
	}
	result.Unmatched = append(result.Unmatched, models.UnmatchedEntry{
		Record: rec,
		Reason: unmatchedReason,
	})
}

type matchDecision struct {
	method    string
	score     float64
	confirmed bool
}

func (s *Service) acceptMatch(ctx context.Context, rec models.IncomingRecord, cand *Candidate, decision matchDecision, result *models.BatchResult) {
	if err := s.store.MergeIntoCandidate(ctx, cand.ID, rec); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"patient_id": cand.ID,
			"method":     decision.method,
		}).Error("failed to merge incoming record")
		result.Failed = append(result.Failed, models.FailedEntry{
			Record: rec,
			Stage:  "merge",
			Reason: err.Error(),
		})
		return
	}

	applyToSnapshot(cand, rec)

	review := models.ReviewHumanReview
	if decision.confirmed {
		review = models.ReviewConfirmed
	}

	entry := models.MatchedEntry{
		Incoming:     rec,
		PatientID:    cand.ID,
		Method:       decision.method,
		Score:        decision.score,
		Status:       "updated",
		ReviewStatus: review,
	}
	result.Matched = append(result.Matched, entry)
	s.publishMatch(ctx, entry)
}

// applyToSnapshot mirrors the store merge onto the in-memory pool entry:
// only non-empty incoming fields overwrite, condition lists are replaced
// wholesale when present.
func applyToSnapshot(cand *Candidate, rec models.IncomingRecord) {
	if rec.Name != "" {
		cand.Name = rec.Name
	}
	if rec.DOB != "" {
		cand.DOB = rec.DOB
	}
	if rec.SSN != "" {
		cand.SSN = rec.SSN
	}
	if rec.InsuranceNumber != "" {
		cand.InsuranceNumber = rec.InsuranceNumber
	}
	if rec.MedicalConditions != nil {
		cand.MedicalConditions = rec.MedicalConditions
	}
	if rec.Address != "" {
		cand.Address = rec.Address
	}
	if rec.Phone != "" {
		cand.Phone = rec.Phone
	}
	if rec.Email != "" {
		cand.Email = rec.Email
	}
	if rec.Gender != "" {
		cand.Gender = rec.Gender
	}
}

func (s *Service) publishMatch(ctx context.Context, entry models.MatchedEntry) {
	if s.producer == nil {
		return
	}
	payload := map[string]interface{}{"match": entry}
	if err := s.producer.PublishEvent(ctx, "patient.matched", "matching-service", payload); err != nil {
		logger.Log.WithError(err).Error("failed to publish match event")
		if s.dlq != nil {
			_ = s.dlq.PublishEvent(ctx, "patient.matched", "matching-service", payload)
		}
	}
}
