package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/talktojesus/api_server/config"
	"github.com/talktojesus/api_server/internal/model"
	"github.com/talktojesus/api_server/internal/pkg/metrics"
	"github.com/talktojesus/api_server/internal/repository"
)

const (
	DefaultFreeLimit   = 3
	DefaultGracePeriod = 24 * time.Hour
)

// Reasons reported with every entitlement decision
const (
	ReasonFreeTier       = "free_tier"
	ReasonActive         = "active"
	ReasonAuthenticated  = "authenticated"
	ReasonCreatedGrace   = "created_grace"
	ReasonCreatedExpired = "created_expired"
	ReasonNoSubscription = "no_subscription"
	ReasonUserNotFound   = "user_not_found"
	ReasonLookupFailed   = "lookup_failed"
	ReasonOtherStatus    = "other_status"
)

// EntitlementConfig holds the access rules.
type EntitlementConfig struct {
	FreeLimit   int
	GracePeriod time.Duration
}

// NewEntitlementConfig applies defaults for unset values.
func NewEntitlementConfig(cfg config.EntitlementConfig) EntitlementConfig {
	out := EntitlementConfig{
		FreeLimit:   cfg.FreeLimit,
		GracePeriod: time.Duration(cfg.GraceHours) * time.Hour,
	}
	if out.FreeLimit <= 0 {
		out.FreeLimit = DefaultFreeLimit
	}
	if out.GracePeriod <= 0 {
		out.GracePeriod = DefaultGracePeriod
	}
	return out
}

// Decision is the outcome of an access check.
type Decision struct {
	Allowed      bool
	Reason       string
	Subscription *model.Subscription
}

// statusPriority orders the statuses that can grant access; lower wins.
var statusPriority = map[model.SubscriptionStatus]int{
	model.SubscriptionActive:        0,
	model.SubscriptionAuthenticated: 1,
	model.SubscriptionCreated:       2,
}

type EntitlementService struct {
	userRepo *repository.UserRepository
	subRepo  *repository.SubscriptionRepository
	cfg      EntitlementConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewEntitlementService(
	userRepo *repository.UserRepository,
	subRepo *repository.SubscriptionRepository,
	cfg EntitlementConfig,
	logger *zap.Logger,
) *EntitlementService {
	return &EntitlementService{
		userRepo: userRepo,
		subRepo:  subRepo,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// HasAccess reports whether userID may use the metered feature. Any internal
// failure denies access.
func (s *EntitlementService) HasAccess(ctx context.Context, userID string) bool {
	return s.Decide(ctx, userID).Allowed
}

// FreeLimit is the number of free uses before a subscription is required.
func (s *EntitlementService) FreeLimit() int {
	return s.cfg.FreeLimit
}

// Decide evaluates access and records why.
func (s *EntitlementService) Decide(ctx context.Context, userID string) Decision {
	d := s.decide(ctx, userID)

	result := "deny"
	if d.Allowed {
		result = "allow"
	}
	metrics.EntitlementDecisions.WithLabelValues(result, d.Reason).Inc()
	s.logger.Debug("entitlement decision",
		zap.String("user_id", userID),
		zap.Bool("allowed", d.Allowed),
		zap.String("reason", d.Reason),
	)
	return d
}

func (s *EntitlementService) decide(ctx context.Context, userID string) Decision {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return Decision{Reason: ReasonUserNotFound}
		}
		s.logger.Error("entitlement user lookup failed", zap.String("user_id", userID), zap.Error(err))
		return Decision{Reason: ReasonLookupFailed}
	}

	if user.UsageCount < s.cfg.FreeLimit {
		return Decision{Allowed: true, Reason: ReasonFreeTier}
	}

	subs, err := s.subRepo.ListByUserAndStatuses(ctx, userID, model.EntitlingStatuses)
	if err != nil {
		s.logger.Error("entitlement subscription lookup failed", zap.String("user_id", userID), zap.Error(err))
		return Decision{Reason: ReasonLookupFailed}
	}

	sub := selectByPriority(subs)
	if sub == nil {
		return Decision{Reason: ReasonNoSubscription}
	}

	switch sub.Status {
	case model.SubscriptionActive:
		// the provider moves a subscription out of active as soon as a charge fails
		return Decision{Allowed: true, Reason: ReasonActive, Subscription: sub}
	case model.SubscriptionAuthenticated:
		return Decision{Allowed: true, Reason: ReasonAuthenticated, Subscription: sub}
	case model.SubscriptionCreated:
		// the window is inclusive at exactly GracePeriod
		if s.now().Sub(sub.CreatedAt) <= s.cfg.GracePeriod {
			return Decision{Allowed: true, Reason: ReasonCreatedGrace, Subscription: sub}
		}
		return Decision{Reason: ReasonCreatedExpired, Subscription: sub}
	default:
		return Decision{Reason: ReasonOtherStatus, Subscription: sub}
	}
}

// selectByPriority picks the highest priority subscription. subs is newest
// first, so ties go to the most recent row.
func selectByPriority(subs []model.Subscription) *model.Subscription {
	var best *model.Subscription
	bestRank := len(statusPriority)
	for i := range subs {
		rank, ok := statusPriority[subs[i].Status]
		if !ok {
			continue
		}
		if rank < bestRank {
			best = &subs[i]
			bestRank = rank
		}
	}
	return best
}
