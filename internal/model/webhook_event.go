package model

import (
	"time"
)

// WebhookEvent records one verified delivery from a payment provider.
type WebhookEvent struct {
	ID              int64      `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"size:32;not null;uniqueIndex:idx_webhook_provider_event" json:"provider"`
	EventID         string     `gorm:"size:128;not null;uniqueIndex:idx_webhook_provider_event" json:"event_id"`
	EventType       string     `gorm:"size:64;index" json:"event_type"`
	Payload         string     `gorm:"type:text" json:"-"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// Handled reports whether a previous attempt finished without error.
func (e *WebhookEvent) Handled() bool {
	return e.ProcessedAt != nil && e.ProcessingError == ""
}
