package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/talktojesus/api_server/internal/model"
	"github.com/talktojesus/api_server/internal/model/dto"
	"github.com/talktojesus/api_server/internal/pkg/pubsub"
	"github.com/talktojesus/api_server/internal/pkg/razorpay"
	"github.com/talktojesus/api_server/internal/repository"
)

// Every subscription is a single seat committed for twelve billing cycles.
const (
	subscriptionQuantity   = 1
	subscriptionTotalCount = 12
)

var ErrPlanNotFound = errors.New("plan not found")

type SubscriptionService struct {
	planRepo   *repository.PlanRepository
	subRepo    *repository.SubscriptionRepository
	provider   razorpay.Provider
	reconciler *ReconcileService
	publisher  EventPublisher
	logger     *zap.Logger
}

func NewSubscriptionService(
	planRepo *repository.PlanRepository,
	subRepo *repository.SubscriptionRepository,
	provider razorpay.Provider,
	reconciler *ReconcileService,
	publisher EventPublisher,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		planRepo:   planRepo,
		subRepo:    subRepo,
		provider:   provider,
		reconciler: reconciler,
		publisher:  publisher,
		logger:     logger,
	}
}

// Create opens a provider subscription for planID and stores its mirror row.
func (s *SubscriptionService) Create(ctx context.Context, planID, userID string) (*dto.SubscriptionResponse, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPlanNotFound
		}
		return nil, persistenceErr("load plan", err)
	}
	if plan.RazorpayPlanID == "" {
		return nil, ErrPlanNotFound
	}

	state, err := s.provider.CreateSubscription(ctx, plan.RazorpayPlanID, subscriptionQuantity, subscriptionTotalCount)
	if err != nil {
		return nil, err
	}

	status, ok := model.ParseSubscriptionStatus(state.Status)
	if !ok {
		s.logger.Warn("provider returned unrecognized status on create",
			zap.String("razorpay_subscription_id", state.ID),
			zap.String("status", state.Status),
		)
		status = model.SubscriptionCreated
	}

	sub := &model.Subscription{
		UserID:                 userID,
		PlanID:                 plan.ID,
		RazorpaySubscriptionID: state.ID,
		Status:                 status,
		CurrentStart:           razorpay.Time(state.CurrentStart),
		CurrentEnd:             razorpay.Time(state.CurrentEnd),
		ChargeAt:               razorpay.Time(state.ChargeAt),
		StartAt:                razorpay.Time(state.StartAt),
		EndAt:                  razorpay.Time(state.EndAt),
		Quantity:               intOr(state.Quantity, subscriptionQuantity),
		TotalCount:             intOr(state.TotalCount, subscriptionTotalCount),
		PaidCount:              intOr(state.PaidCount, 0),
	}
	if err := s.subRepo.Create(ctx, sub); err != nil {
		// the provider side now exists without a local mirror
		s.logger.Error("store created subscription failed",
			zap.String("razorpay_subscription_id", state.ID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, persistenceErr("create subscription", err)
	}
	sub.Plan = plan

	s.logger.Info("subscription created",
		zap.String("user_id", userID),
		zap.String("plan_id", plan.ID),
		zap.String("razorpay_subscription_id", state.ID),
	)
	s.publish(ctx, sub, pubsub.SourceCreate)

	return &dto.SubscriptionResponse{
		Subscription:         sub,
		RazorpaySubscription: state.Raw,
		RazorpayKeyID:        s.provider.KeyID(),
	}, nil
}

// GetCurrent returns the user's latest subscription, refreshed from the
// provider when possible. It returns nil when the user never subscribed.
func (s *SubscriptionService) GetCurrent(ctx context.Context, userID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.subRepo.GetLatestByUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, persistenceErr("load subscription", err)
	}

	if sub.RazorpaySubscriptionID == "" {
		return &dto.SubscriptionResponse{Subscription: sub}, nil
	}

	merged, state, err := s.reconciler.FetchAndReconcile(ctx, sub.RazorpaySubscriptionID, userID)
	if err != nil {
		s.logger.Warn("subscription sync failed, serving stored copy",
			zap.String("user_id", userID),
			zap.String("razorpay_subscription_id", sub.RazorpaySubscriptionID),
			zap.Error(err),
		)
		return &dto.SubscriptionResponse{Subscription: sub}, nil
	}

	return &dto.SubscriptionResponse{
		Subscription:         merged,
		RazorpaySubscription: state.Raw,
	}, nil
}

// Cancel cancels immediately at the provider, then mirrors the result locally.
func (s *SubscriptionService) Cancel(ctx context.Context, razorpayID, userID string) (*model.Subscription, error) {
	// never cancel someone else's subscription at the provider
	owned, err := s.subRepo.GetByProviderID(ctx, razorpayID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, persistenceErr("load subscription", err)
	}
	if owned.UserID != userID {
		return nil, ErrSubscriptionNotFound
	}

	state, err := s.provider.CancelSubscription(ctx, razorpayID, true)
	if err != nil {
		return nil, err
	}

	update := s.reconciler.buildUpdate(state)
	update["end_at"] = endTime(state)

	sub, err := s.subRepo.UpdateByProviderIDAndUser(ctx, razorpayID, userID, update)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, persistenceErr("update subscription", err)
	}

	s.logger.Info("subscription cancelled",
		zap.String("user_id", userID),
		zap.String("razorpay_subscription_id", razorpayID),
		zap.String("status", string(sub.Status)),
	)
	s.publish(ctx, sub, pubsub.SourceCancel)
	return sub, nil
}

// CancelCurrent cancels the user's latest subscription.
func (s *SubscriptionService) CancelCurrent(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.subRepo.GetLatestByUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, persistenceErr("load subscription", err)
	}
	if sub.RazorpaySubscriptionID == "" {
		return nil, ErrSubscriptionNotFound
	}
	return s.Cancel(ctx, sub.RazorpaySubscriptionID, userID)
}

func (s *SubscriptionService) publish(ctx context.Context, sub *model.Subscription, source string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishSubscriptionEvent(ctx, &pubsub.SubscriptionEvent{
		UserID:                 sub.UserID,
		SubscriptionID:         sub.ID,
		RazorpaySubscriptionID: sub.RazorpaySubscriptionID,
		Status:                 string(sub.Status),
		Source:                 source,
	})
	if err != nil {
		s.logger.Warn("publish subscription event failed", zap.String("user_id", sub.UserID), zap.Error(err))
	}
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
