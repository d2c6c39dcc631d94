package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Song is a catalog entry. Rows are managed outside the API.
type Song struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"size:255;not null;index" json:"title"`
	Duration  string    `gorm:"size:16" json:"duration"` // mm:ss
	ImageURL  string    `gorm:"size:1024" json:"image_url"`
	AudioURL  string    `gorm:"size:1024" json:"audio_url"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Song) TableName() string {
	return "songs"
}

func (s *Song) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
