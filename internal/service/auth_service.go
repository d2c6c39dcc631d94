package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/talktojesus/api_server/config"
	"github.com/talktojesus/api_server/internal/model"
	"github.com/talktojesus/api_server/internal/model/dto"
	"github.com/talktojesus/api_server/internal/pkg/google"
	"github.com/talktojesus/api_server/internal/pkg/jwt"
	"github.com/talktojesus/api_server/internal/repository"
)

var (
	ErrInvalidIDToken = errors.New("invalid or expired id token")
	ErrUserNotFound   = errors.New("user not found")
)

// IdentityVerifier validates third-party ID tokens.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*google.Identity, error)
}

type AuthService struct {
	userRepo  *repository.UserRepository
	verifier  IdentityVerifier
	cfg       *config.Config
	freeLimit int
	logger    *zap.Logger
	now       func() time.Time
}

func NewAuthService(userRepo *repository.UserRepository, verifier IdentityVerifier, cfg *config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		verifier:  verifier,
		cfg:       cfg,
		freeLimit: NewEntitlementConfig(cfg.Entitlement).FreeLimit,
		logger:    logger,
		now:       time.Now,
	}
}

// LoginWithGoogle signs in with a Google ID token, creating the user on first login.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (*dto.LoginResponse, error) {
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		s.logger.Info("id token rejected", zap.Error(err))
		return nil, ErrInvalidIDToken
	}

	now := s.now()
	user, err := s.userRepo.GetByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		fields := map[string]interface{}{"last_login_at": now}
		if identity.Name != "" && identity.Name != user.DisplayName {
			fields["display_name"] = identity.Name
			user.DisplayName = identity.Name
		}
		if identity.Picture != "" && identity.Picture != user.PhotoURL {
			fields["photo_url"] = identity.Picture
			user.PhotoURL = identity.Picture
		}
		if err := s.userRepo.UpdateFields(ctx, user.ID, fields); err != nil {
			return nil, persistenceErr("update user", err)
		}
		user.LastLoginAt = &now
	case isNotFound(err):
		user = &model.User{
			Email:       identity.Email,
			DisplayName: identity.Name,
			PhotoURL:    identity.Picture,
			LastLoginAt: &now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, persistenceErr("create user", err)
		}
		s.logger.Info("user created", zap.String("user_id", user.ID))
	default:
		return nil, persistenceErr("load user", err)
	}

	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token: token,
		User:  buildUserInfo(user, s.freeLimit),
	}, nil
}

func buildUserInfo(user *model.User, freeLimit int) *dto.UserInfo {
	info := &dto.UserInfo{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
		UsageCount:  user.UsageCount,
		FreeLimit:   freeLimit,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
	if user.LastLoginAt != nil {
		info.LastLoginAt = user.LastLoginAt.Format(time.RFC3339)
	}
	return info
}
