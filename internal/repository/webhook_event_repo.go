package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/talktojesus/api_server/internal/model"
)

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// CreateIfNotExists inserts event unless (provider, event_id) is already
// recorded. It returns whether a row was inserted and the stored row.
func (r *WebhookEventRepository) CreateIfNotExists(ctx context.Context, event *model.WebhookEvent) (bool, *model.WebhookEvent, error) {
	db := r.db.WithContext(ctx)
	tx := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored model.WebhookEvent
	if err := db.Where("provider = ? AND event_id = ?", event.Provider, event.EventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// MarkProcessed stamps processed_at; a non-empty processingError marks the attempt failed.
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, id int64, processingError string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.WebhookEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}).Error
}

// DeleteHandledBefore removes cleanly processed events older than before.
// Failed events are kept for inspection.
func (r *WebhookEventRepository) DeleteHandledBefore(ctx context.Context, before time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("processed_at IS NOT NULL AND processed_at < ? AND (processing_error = '' OR processing_error IS NULL)", before).
		Delete(&model.WebhookEvent{})
	return tx.RowsAffected, tx.Error
}
