package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/talktojesus/api_server/internal/model"
)

type SongRepository struct {
	db *gorm.DB
}

func NewSongRepository(db *gorm.DB) *SongRepository {
	return &SongRepository{db: db}
}

// List returns one page of songs, newest first, and the total matching count.
// search matches anywhere in the title, ignoring case.
func (r *SongRepository) List(ctx context.Context, page, pageSize int, search string) ([]model.Song, int64, error) {
	var songs []model.Song
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Song{})

	if search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&songs).Error; err != nil {
		return nil, 0, err
	}

	return songs, total, nil
}
