package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Email       string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	DisplayName string     `gorm:"size:255" json:"display_name"`
	PhotoURL    string     `gorm:"size:1024" json:"photo_url"`
	UsageCount  int        `gorm:"not null;default:0" json:"usage_count"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
