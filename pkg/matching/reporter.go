package matching

import "github.com/medifusion/platform/pkg/common/models"

// Summarize folds a batch's outcome entries into summary counts. New-patient
// candidates always count toward review_required since they are never
// auto-confirmed.
func Summarize(result *models.BatchResult) models.BatchSummary {
	summary := models.BatchSummary{
		Matched:   len(result.Matched),
		Unmatched: len(result.Unmatched),
		New:       len(result.New),
		Failed:    len(result.Failed),
	}
	summary.Total = summary.Matched + summary.Unmatched + summary.New + summary.Failed

	for _, m := range result.Matched {
		switch m.ReviewStatus {
		case models.ReviewConfirmed:
			summary.Confirmed++
		case models.ReviewHumanReview:
			summary.ReviewRequired++
		}
	}
	summary.ReviewRequired += summary.New

	return summary
}
