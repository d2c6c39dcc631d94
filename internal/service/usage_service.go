package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/talktojesus/api_server/internal/repository"
)

type UsageService struct {
	userRepo *repository.UserRepository
	logger   *zap.Logger
}

func NewUsageService(userRepo *repository.UserRepository, logger *zap.Logger) *UsageService {
	return &UsageService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// RecordUsage counts one use of the metered feature and returns the new total.
func (s *UsageService) RecordUsage(ctx context.Context, userID string) (int, error) {
	count, err := s.userRepo.IncrementUsageCount(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return 0, ErrUserNotFound
		}
		return 0, persistenceErr("increment usage", err)
	}

	s.logger.Debug("usage recorded", zap.String("user_id", userID), zap.Int("usage_count", count))
	return count, nil
}
