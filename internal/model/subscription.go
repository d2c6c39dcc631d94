package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionStatus mirrors the provider's subscription lifecycle. Only the
// values listed below are ever persisted.
type SubscriptionStatus string

const (
	SubscriptionCreated       SubscriptionStatus = "created"
	SubscriptionAuthenticated SubscriptionStatus = "authenticated"
	SubscriptionActive        SubscriptionStatus = "active"
	SubscriptionPending       SubscriptionStatus = "pending"
	SubscriptionHalted        SubscriptionStatus = "halted"
	SubscriptionCancelled     SubscriptionStatus = "cancelled"
	SubscriptionCompleted     SubscriptionStatus = "completed"
	SubscriptionPaused        SubscriptionStatus = "paused"
	SubscriptionResumed       SubscriptionStatus = "resumed"
)

var knownStatuses = map[SubscriptionStatus]struct{}{
	SubscriptionCreated:       {},
	SubscriptionAuthenticated: {},
	SubscriptionActive:        {},
	SubscriptionPending:       {},
	SubscriptionHalted:        {},
	SubscriptionCancelled:     {},
	SubscriptionCompleted:     {},
	SubscriptionPaused:        {},
	SubscriptionResumed:       {},
}

// ParseSubscriptionStatus returns false for anything outside the known set.
func ParseSubscriptionStatus(s string) (SubscriptionStatus, bool) {
	status := SubscriptionStatus(s)
	_, ok := knownStatuses[status]
	return status, ok
}

// EntitlingStatuses are the statuses that can grant paid access.
var EntitlingStatuses = []SubscriptionStatus{
	SubscriptionActive,
	SubscriptionAuthenticated,
	SubscriptionCreated,
}

// OpenStatuses are the statuses the provider can still move out of.
var OpenStatuses = []SubscriptionStatus{
	SubscriptionCreated,
	SubscriptionAuthenticated,
	SubscriptionActive,
	SubscriptionPending,
	SubscriptionHalted,
	SubscriptionPaused,
	SubscriptionResumed,
}

type Subscription struct {
	ID                     string             `gorm:"primaryKey;size:36" json:"id"`
	UserID                 string             `gorm:"size:36;not null;index" json:"user_id"`
	PlanID                 string             `gorm:"size:36;not null" json:"plan_id"`
	RazorpaySubscriptionID string             `gorm:"column:razorpay_subscription_id;size:64;uniqueIndex" json:"razorpay_subscription_id"`
	Status                 SubscriptionStatus `gorm:"size:20;not null;index" json:"status"`
	CurrentStart           *time.Time         `json:"current_start"`
	CurrentEnd             *time.Time         `json:"current_end"`
	ChargeAt               *time.Time         `json:"charge_at"`
	StartAt                *time.Time         `json:"start_at"`
	EndAt                  *time.Time         `json:"end_at"`
	LastChargedAt          *time.Time         `json:"last_charged_at"`
	Quantity               int                `gorm:"default:1" json:"quantity"`
	TotalCount             int                `gorm:"default:12" json:"total_count"`
	PaidCount              int                `gorm:"default:0" json:"paid_count"`
	CreatedAt              time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`

	Plan *Plan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
