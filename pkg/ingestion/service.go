package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medifusion/platform/pkg/common/kafka"
	"github.com/medifusion/platform/pkg/common/logger"
	"github.com/medifusion/platform/pkg/common/models"
	"github.com/medifusion/platform/pkg/observability/metrics"
	"gorm.io/datatypes"
)

// EventRecordExtracted carries one structured record to the matching engine.
const EventRecordExtracted = "record.extracted"

type Service struct {
	validator *Validator
	repo      *Repository
	producer  *kafka.Producer
	dlq       *kafka.Producer
	statusTTL time.Duration
}

func NewService(validator *Validator, repo *Repository, producer *kafka.Producer, dlq *kafka.Producer, ttl time.Duration) *Service {
	return &Service{
		validator: validator,
		repo:      repo,
		producer:  producer,
		dlq:       dlq,
		statusTTL: ttl,
	}
}

// Process registers each extracted document and publishes it for matching.
// Per-document publish failures are reported in the response and parked on
// the DLQ; they do not fail the rest of the request.
func (s *Service) Process(ctx context.Context, req models.IngestRequest) (*models.IngestResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	accepted := make([]models.IngestedDocument, 0, len(req.Documents))
	published, failed := 0, 0
	for _, doc := range req.Documents {
		entry, err := s.processDocument(ctx, req.Source, doc)
		if err != nil {
			return nil, err
		}
		if entry.Status == StatusPublished {
			published++
		} else {
			failed++
		}
		accepted = append(accepted, entry)
	}
	metrics.ObserveIngestion(len(accepted), published, failed)

	return &models.IngestResponse{
		Accepted:  accepted,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (s *Service) processDocument(ctx context.Context, source string, doc models.ExtractedDocument) (models.IngestedDocument, error) {
	raw, err := json.Marshal(doc.Record)
	if err != nil {
		return models.IngestedDocument{}, fmt.Errorf("encoding extracted record: %w", err)
	}

	id := uuid.New().String()
	record := &Document{
		ID:       id,
		Source:   source,
		Filename: doc.Filename,
		Record:   datatypes.JSON(raw),
		Status:   StatusAccepted,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return models.IngestedDocument{}, fmt.Errorf("persisting ingested document: %w", err)
	}

	payload := map[string]interface{}{
		"document_id": id,
		"source":      source,
		"filename":    doc.Filename,
		"record":      doc.Record,
		"received_at": time.Now().UTC(),
	}

	status := StatusPublished
	if sendErr := s.producer.PublishEvent(ctx, EventRecordExtracted, source, payload); sendErr != nil {
		logger.Log.WithError(sendErr).WithField("document_id", id).Error("failed to publish extraction event")
		status = StatusFailed
		_ = s.repo.UpdateStatus(ctx, id, StatusFailed, sendErr.Error())
		if s.dlq != nil {
			if dlqErr := s.dlq.PublishEvent(ctx, EventRecordExtracted, source, payload); dlqErr != nil {
				logger.Log.WithError(dlqErr).Error("failed to push event to DLQ")
			}
		}
	} else {
		_ = s.repo.UpdateStatus(ctx, id, StatusPublished, "")
	}

	return models.IngestedDocument{
		DocumentID: id,
		Filename:   doc.Filename,
		Status:     status,
	}, nil
}

func (s *Service) Status(ctx context.Context, id string) (*Document, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Cleanup(ctx context.Context) error {
	return s.repo.CleanupExpired(ctx, s.statusTTL)
}
