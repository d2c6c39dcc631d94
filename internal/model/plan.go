package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Plan is a billing plan mirrored from the payment provider. Rows are seeded
// by migrations and never written by the API.
type Plan struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	Description    string    `gorm:"type:text" json:"description"`
	Price          int64     `gorm:"not null" json:"price"` // minor units (paise)
	Currency       string    `gorm:"size:3;default:INR" json:"currency"`
	RazorpayPlanID string    `gorm:"column:razorpay_plan_id;size:64" json:"razorpay_plan_id"`
	Period         string    `gorm:"size:20" json:"period"` // daily, weekly, monthly, yearly
	Interval       int       `gorm:"default:1" json:"interval"`
	Cycles         int       `gorm:"default:12" json:"cycles"`
	IsProd         bool      `gorm:"index;default:false" json:"is_prod"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Plan) TableName() string {
	return "plans"
}

func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
