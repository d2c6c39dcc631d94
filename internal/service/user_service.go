package service

import (
	"context"

	"github.com/talktojesus/api_server/internal/model/dto"
	"github.com/talktojesus/api_server/internal/repository"
)

type UserService struct {
	userRepo  *repository.UserRepository
	freeLimit int
}

func NewUserService(userRepo *repository.UserRepository, freeLimit int) *UserService {
	return &UserService{
		userRepo:  userRepo,
		freeLimit: freeLimit,
	}
}

// GetProfile returns the user as shown to clients
func (s *UserService) GetProfile(ctx context.Context, userID string) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, persistenceErr("load user", err)
	}
	return buildUserInfo(user, s.freeLimit), nil
}
