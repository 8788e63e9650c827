package matching

import (
	"testing"

	"github.com/medifusion/platform/pkg/common/models"
)

func TestSummarize(t *testing.T) {
	result := &models.BatchResult{
		Matched: []models.MatchedEntry{
			{ReviewStatus: models.ReviewConfirmed},
			{ReviewStatus: models.ReviewHumanReview},
		},
		Unmatched: []models.UnmatchedEntry{{}},
		New:       []models.NewEntry{{ReviewStatus: models.ReviewHumanReview}},
		Failed:    []models.FailedEntry{{Stage: "validation"}},
	}

	summary := Summarize(result)
	if summary.Total != 5 {
		t.Fatalf("expected total 5, got %d", summary.Total)
	}
	if summary.Matched != 2 || summary.Unmatched != 1 || summary.New != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.Confirmed != 1 {
		t.Fatalf("expected one confirmed match, got %d", summary.Confirmed)
	}
	// New candidates always require review alongside sub-confirm matches.
	if summary.ReviewRequired != 2 {
		t.Fatalf("expected review required 2, got %d", summary.ReviewRequired)
	}
}

func TestSummarizeEmptyBatch(t *testing.T) {
	summary := Summarize(&models.BatchResult{})
	if summary != (models.BatchSummary{}) {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
}
