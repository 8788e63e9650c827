package ingestion

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("ingested document not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Document{})
}

func (r *Repository) Create(ctx context.Context, doc *Document) error {
	doc.CreatedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CreatedAt
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *Repository) UpdateStatus(ctx context.Context, id, status, errMsg string) error {
	return r.db.WithContext(ctx).Model(&Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       status,
			"error":        errMsg,
			"updated_at":   time.Now().UTC(),
			"last_attempt": time.Now().UTC(),
		}).Error
}

func (r *Repository) Get(ctx context.Context, id string) (*Document, error) {
	var doc Document
	result := r.db.WithContext(ctx).First(&doc, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &doc, result.Error
}

func (r *Repository) CleanupExpired(ctx context.Context, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-ttl)
	return r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Document{}).Error
}
