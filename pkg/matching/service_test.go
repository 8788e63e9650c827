package matching

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/medifusion/platform/pkg/common/logger"
	"github.com/medifusion/platform/pkg/common/models"
)

func TestMain(m *testing.M) {
	logger.Init("matching-test")
	logger.Log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fakeStore struct {
	pool       []Candidate
	fetchErr   error
	mergeErr   error
	mergeCalls []uint
	staged     []models.IncomingRecord
}

func (f *fakeStore) FetchAllCandidates(ctx context.Context) ([]Candidate, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	snapshot := make([]Candidate, len(f.pool))
	copy(snapshot, f.pool)
	return snapshot, nil
}

func (f *fakeStore) MergeIntoCandidate(ctx context.Context, id uint, rec models.IncomingRecord) error {
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.mergeCalls = append(f.mergeCalls, id)
	return nil
}

func (f *fakeStore) StageUnmatched(ctx context.Context, rec models.IncomingRecord, reason string) error {
	f.staged = append(f.staged, rec)
	return nil
}

type fakeEmbedder struct {
	vectors map[string][]float64
	err     error
	calls   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float64{0, 0, 1}, nil
}

func newTestService(store *fakeStore, embedder Embedder) *Service {
	return NewService(store, embedder, DefaultRules(), nil, nil)
}

func TestFuzzyMatchWithIdentifierAgreement(t *testing.T) {
	store := &fakeStore{pool: []Candidate{
		{ID: 7, Name: "John Smith", DOB: "1980-01-01", SSN: "123-45-6789"},
	}}
	svc := newTestService(store, &fakeEmbedder{})

	result, err := svc.ProcessBatch(context.Background(), []models.IncomingRecord{
		{Name: "Smith John", DOB: "1980-01-01", SSN: "123-45-6789"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Matched) != 1 {
		t.Fatalf("expected one match, got %+v", result.Summary)
	}
	entry := result.Matched[0]
	if entry.Method != models.MethodFuzzy {
		t.Fatalf("expected fuzzy method, got %s", entry.Method)
	}
	if entry.Score != 105 {
		t.Fatalf("expected score 105, got %v", entry.Score)
	}
	if entry.ReviewStatus != models.ReviewConfirmed {
		t.Fatalf("expected Confirmed, got %s", entry.ReviewStatus)
	}
	if len(store.mergeCalls) != 1 || store.mergeCalls[0] != 7 {
		t.Fatalf("expected merge into candidate 7, got %v", store.mergeCalls)
	}
}

func TestEmbeddingMatchWhenFuzzyMisses(t *testing.T) {
	incoming := models.IncomingRecord{Name: "Carlos Mendoza"}
	store := &fakeStore{pool: []Candidate{
		{ID: 3, Name: "Robert Jones", Embedding: []float64{1, 0, 0}},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		Signature(incoming): {0.9, 0.436, 0}, // cosine ~0.90 against [1,0,0]
	}}
	svc := newTestService(store, embedder)

	result, err := svc.ProcessBatch(context.Background(), []models.IncomingRecord{incoming})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Matched) != 1 {
		t.Fatalf("expected one embedding match, got %+v", result.Summary)
	}
	entry := result.Matched[0]
	if entry.Method != models.MethodEmbedding {
		t.Fatalf("expected embedding method, got %s", entry.Method)
	}
	if entry.Score < 89.5 || entry.Score > 90.5 {
		t.Fatalf("expected score near 90.0, got %v", entry.Score)
	}
	if entry.ReviewStatus != models.ReviewHumanReview {
		t.Fatalf("expected Human Review below confirm threshold, got %s", entry.ReviewStatus)
	}
}

func TestEmbeddingMatchConfirmedAboveConfirmThreshold(t *testing.T) {
	incoming := models.IncomingRecord{Name: "Carlos Mendoza"}
	store := &fakeStore{pool: []Candidate{
		{ID: 3, Name: "Robert Jones", Embedding: []float64{1, 0, 0}},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		Signature(incoming): {1, 0, 0},
	}}
	svc := newTestService(store, embedder)

	result, err := svc.ProcessBatch(context.Background(), []models.IncomingRecord{incoming})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Matched) != 1 || result.Matched[0].ReviewStatus != models.ReviewConfirmed {
		t.Fatalf("expected confirmed embedding match, got %+v", result.Matched)
	}
}

func TestNewCandidateRequiresFullIdentity(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeEmbedder{})

	result, err := svc.ProcessBatch(context.Background(), []models.IncomingRecord{
		{Name: "Ana Silva", DOB: "1991-07-12", SSN: "555-12-3456", InsuranceNumber: "INS-9"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.New) != 1 {
		t.Fatalf("expected one new candidate, got %+v", result.Summary)
	}
	if result.New[0].ReviewStatus != models.ReviewHumanReview {
		t.Fatal("new candidates must always require human review")
	}
	if len(result.Unmatched) != 0 {
		t.Fatal("full identity must never be classified unmatched")
	}
}

func TestUnmatchedWhenIdentityIncomplete(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeEmbedder{})

	result, err := svc.ProcessBatch(context.Background(), []models.IncomingRecord{
		{Name: "Only Name"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Unmatched) != 1 {
		t.Fatalf("expected one unmatched, got %+v", result.Summary)
	}
	if result.Unmatched[0].Reason != "no similar match found" {
		t.Fatalf("unexpected reason %q", result.Unmatched[0].Reason)
	}
	if len(store.staged) != 1 {
		t.Fatal("expected unmatched record to be staged")
	}
}

func TestValidationRejectsMissingName(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeEmbedder{})

	result, err := svc.ProcessBatch(context.Background(), []models.IncomingRecord{
		{DOB: "1980-01-01"},
		{Name: "Valid Follow-up"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Failed) != 1 || result.Failed[0].Stage != "validation" {
		t.Fatalf("expected one validation failure, got %+v", result.Failed)
	}
	// The rest of the batch continues.
	if result.Summary.Total != 2 {
		t.Fatalf("expected both records accounted for, got %+v", result.Summary)
	}
}

func TestProviderFailureDegradesSingleRecord(t *testing.T) {
	store := &fakeStore{pool: []Candidate{
		{ID: 1, Name: "Robert Jones", Embedding: []float64{1, 0, 0}},
	}}
	embedder := &fakeEmbedder{err: errors.New("rate limited")}
	svc := newTestService(store, embedder)

	result, err := svc.ProcessBatch(context.Background(), []models.IncomingRecord{
		{Name: "Ana Silva", DOB: "1991-07-12", SSN: "555-12-3456", InsuranceNumber: "INS-9"},
		{Name: "Only Name"},
	})
	if err != nil {
		t.Fatalf("provider failure must not abort the batch: %v", err)
	}

	if len(result.New) != 1 || len(result.Unmatched) != 1 {
		t.Fatalf("expected degradation to new/unmatched, got %+v", result.Summary)
	}
}

func TestStoreFailureScopedToRecord(t *testing.T) {
	store := &fakeStore{
		pool:     []Candidate{{ID: 1, Name: "John Smith"}},
		mergeErr: errors.New("write conflict"),
	}
	svc := newTestService(store, &fakeEmbedder{})

	result, err := svc.ProcessBatch(context.Background(), []models.IncomingRecord{
		{Name: "John Smith"},
		{Name: "Only Name"},
	})
	if err != nil {
		t.Fatalf("store failure must not abort the batch: %v", err)
	}

	if len(result.Failed) != 1 || result.Failed[0].Stage != "merge" {
		t.Fatalf("expected one merge failure, got %+v", result.Failed)
	}
	if len(result.Unmatched) != 1 {
		t.Fatal("expected remaining record to be processed")
	}
}

func TestStoreUnavailableFailsBatch(t *testing.T) {
	store := &fakeStore{fetchErr: errors.New("connection refused")}
	svc := newTestService(store, &fakeEmbedder{})

	_, err := svc.ProcessBatch(context.Background(), []models.IncomingRecord{{Name: "Any"}})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestFuzzyTieKeepsFirstCandidate(t *testing.T) {
	store := &fakeStore{pool: []Candidate{
		{ID: 1, Name: "John Smith"},
		{ID: 2, Name: "John Smith"},
	}}
	svc := newTestService(store, &fakeEmbedder{})

	result, err := svc.ProcessBatch(context.Background(), []models.IncomingRecord{
		{Name: "Smith John"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Matched) != 1 || result.Matched[0].PatientID != 1 {
		t.Fatalf("expected first candidate in pool order to win the tie, got %+v", result.Matched)
	}
}

func TestMergeVisibleToLaterRecordsInBatch(t *testing.T) {
	store := &fakeStore{pool: []Candidate{
		{ID: 5, Name: "John Smith"},
	}}
	svc := newTestService(store, &fakeEmbedder{})

	// The first record merges DOB and SSN into the candidate. The second
	// record scores 90 on the name alone and only clears the 95 threshold
	// with the identifier bonuses it can see through the merged snapshot.
	result, err := svc.ProcessBatch(context.Background(), []models.IncomingRecord{
		{Name: "John Smith", DOB: "1980-01-01", SSN: "123-45-6789"},
		{Name: "Jon Smith", DOB: "1980-01-01", SSN: "123-45-6789"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Matched) != 2 {
		t.Fatalf("expected both records matched, got %+v", result.Summary)
	}
	if result.Matched[1].PatientID != 5 {
		t.Fatalf("expected second record to claim the same candidate, got %+v", result.Matched[1])
	}
	if result.Matched[1].Score != 95 {
		t.Fatalf("expected 90 name + 2 dob + 3 ssn via snapshot, got %v", result.Matched[1].Score)
	}
}

func TestSnapshotMergeIdempotent(t *testing.T) {
	cand := Candidate{ID: 1, Name: "John Smith", DOB: "1980-01-01"}
	rec := models.IncomingRecord{Name: "John Smith", SSN: "123-45-6789", MedicalConditions: []string{"asthma"}}

	applyToSnapshot(&cand, rec)
	once := cand
	applyToSnapshot(&cand, rec)

	if cand.Name != once.Name || cand.SSN != once.SSN || cand.DOB != once.DOB ||
		len(cand.MedicalConditions) != len(once.MedicalConditions) {
		t.Fatalf("expected idempotent merge, got %+v vs %+v", cand, once)
	}
	if cand.DOB != "1980-01-01" {
		t.Fatal("absent incoming fields must keep existing values")
	}
}

func TestDeterministicOutcomeSequence(t *testing.T) {
	build := func() (*Service, *fakeStore) {
		store := &fakeStore{pool: []Candidate{
			{ID: 1, Name: "John Smith"},
			{ID: 2, Name: "John Smith"},
			{ID: 3, Name: "Maria Garcia", Embedding: []float64{0, 1, 0}},
		}}
		return newTestService(store, &fakeEmbedder{}), store
	}

	batch := []models.IncomingRecord{
		{Name: "Smith John"},
		{Name: "Only Name"},
		{Name: "Ana Silva", DOB: "1991-07-12", SSN: "555-12-3456", InsuranceNumber: "INS-9"},
	}

	svcA, _ := build()
	svcB, _ := build()
	resultA, errA := svcA.ProcessBatch(context.Background(), batch)
	resultB, errB := svcB.ProcessBatch(context.Background(), batch)
	if errA != nil || errB != nil {
		t.Fatalf("unexpected errors: %v %v", errA, errB)
	}

	if resultA.Summary != resultB.Summary {
		t.Fatalf("expected identical summaries, got %+v vs %+v", resultA.Summary, resultB.Summary)
	}
	if resultA.Matched[0].PatientID != resultB.Matched[0].PatientID {
		t.Fatal("expected identical tie-break choices across runs")
	}
}
