package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	ingestionAccepted  atomic.Int64
	ingestionPublished atomic.Int64
	ingestionFailed    atomic.Int64

	matchingMatched   atomic.Int64
	matchingUnmatched atomic.Int64
	matchingNew       atomic.Int64
	matchingFailed    atomic.Int64
	matchingConfirmed atomic.Int64
	matchingReview    atomic.Int64
)

func ObserveIngestion(accepted, published, failed int) {
	ingestionAccepted.Add(int64(accepted))
	ingestionPublished.Add(int64(published))
	ingestionFailed.Add(int64(failed))
}

func ObserveBatch(matched, unmatched, newPatients, failed, confirmed, review int) {
	matchingMatched.Add(int64(matched))
	matchingUnmatched.Add(int64(unmatched))
	matchingNew.Add(int64(newPatients))
	matchingFailed.Add(int64(failed))
	matchingConfirmed.Add(int64(confirmed))
	matchingReview.Add(int64(review))
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeCounter(w, "medifusion_ingestion_documents_accepted_total", "Documents accepted for ingestion.", &ingestionAccepted)
	writeCounter(w, "medifusion_ingestion_documents_published_total", "Documents published to the matching stream.", &ingestionPublished)
	writeCounter(w, "medifusion_ingestion_documents_failed_total", "Documents that failed to publish.", &ingestionFailed)

	writeCounter(w, "medifusion_matching_matched_total", "Records merged into an existing patient.", &matchingMatched)
	writeCounter(w, "medifusion_matching_unmatched_total", "Records staged for manual review with incomplete identity.", &matchingUnmatched)
	writeCounter(w, "medifusion_matching_new_total", "Records proposed as new patient candidates.", &matchingNew)
	writeCounter(w, "medifusion_matching_failed_total", "Records that failed validation or merge.", &matchingFailed)
	writeCounter(w, "medifusion_matching_confirmed_total", "Matches confirmed automatically.", &matchingConfirmed)
	writeCounter(w, "medifusion_matching_review_required_total", "Outcomes that require human review.", &matchingReview)
}

func writeCounter(w http.ResponseWriter, name, help string, v *atomic.Int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n", name, v.Load())
}
