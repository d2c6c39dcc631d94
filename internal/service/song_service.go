package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/talktojesus/api_server/internal/model"
	"github.com/talktojesus/api_server/internal/model/dto"
	"github.com/talktojesus/api_server/internal/repository"
)

const (
	defaultSongPageSize = 10
	maxSongPageSize     = 100
)

type SongService struct {
	songRepo *repository.SongRepository
	logger   *zap.Logger
}

func NewSongService(songRepo *repository.SongRepository, logger *zap.Logger) *SongService {
	return &SongService{
		songRepo: songRepo,
		logger:   logger,
	}
}

// ListSongs pages through the catalog. Out of range page or limit values fall
// back to the defaults.
func (s *SongService) ListSongs(ctx context.Context, req *dto.SongListRequest) (*dto.SongListResponse, error) {
	page, limit := req.Page, req.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultSongPageSize
	}
	if limit > maxSongPageSize {
		limit = maxSongPageSize
	}
	search := strings.TrimSpace(req.Search)

	songs, total, err := s.songRepo.List(ctx, page, limit, search)
	if err != nil {
		s.logger.Error("list songs failed",
			zap.Int("page", page),
			zap.Int("limit", limit),
			zap.String("search", search),
			zap.Error(err),
		)
		return nil, persistenceErr("list songs", err)
	}
	if songs == nil {
		songs = []model.Song{}
	}

	return &dto.SongListResponse{Data: songs, Count: total}, nil
}
