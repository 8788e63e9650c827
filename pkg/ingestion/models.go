package ingestion

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusAccepted  = "accepted"
	StatusPublished = "published"
	StatusFailed    = "failed"
)

// Document tracks one extracted document through intake. The structured
// record is the output of the upstream OCR/NER pipeline; this service only
// registers it and hands it to the matching engine via the event bus.
type Document struct {
	ID          string         `json:"id" gorm:"primaryKey;column:id"`
	Source      string         `json:"source" gorm:"column:source"`
	Filename    string         `json:"filename" gorm:"column:filename"`
	Record      datatypes.JSON `json:"record" gorm:"column:record"`
	Status      string         `json:"status" gorm:"column:status"`
	Error       string         `json:"error,omitempty" gorm:"column:error"`
	CreatedAt   time.Time      `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"column:updated_at"`
	LastAttempt *time.Time     `json:"last_attempt,omitempty" gorm:"column:last_attempt"`
}

func (Document) TableName() string {
	return "ingested_documents"
}
