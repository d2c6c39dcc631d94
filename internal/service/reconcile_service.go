package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/talktojesus/api_server/internal/model"
	"github.com/talktojesus/api_server/internal/pkg/metrics"
	"github.com/talktojesus/api_server/internal/pkg/pubsub"
	"github.com/talktojesus/api_server/internal/pkg/razorpay"
	"github.com/talktojesus/api_server/internal/repository"
)

// Notification events with extra handling
const (
	EventSubscriptionCharged       = "subscription.charged"
	EventSubscriptionAuthenticated = "subscription.authenticated"
	EventSubscriptionCancelled     = "subscription.cancelled"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

// EventPublisher broadcasts persisted subscription changes.
type EventPublisher interface {
	PublishSubscriptionEvent(ctx context.Context, evt *pubsub.SubscriptionEvent) error
}

// ReconcileService keeps local subscription rows in line with the provider.
type ReconcileService struct {
	subRepo   *repository.SubscriptionRepository
	provider  razorpay.Provider
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewReconcileService(
	subRepo *repository.SubscriptionRepository,
	provider razorpay.Provider,
	publisher EventPublisher,
	logger *zap.Logger,
) *ReconcileService {
	return &ReconcileService{
		subRepo:   subRepo,
		provider:  provider,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// ApplyNotification merges a pushed subscription state into the local row.
// Unknown subscriptions are skipped; store failures are returned so the
// sender retries.
func (s *ReconcileService) ApplyNotification(ctx context.Context, event string, state *razorpay.SubscriptionState) error {
	if !strings.HasPrefix(event, "subscription.") {
		return nil
	}
	if state == nil || state.ID == "" {
		s.logger.Warn("notification without subscription id", zap.String("event", event))
		metrics.ReconcileTotal.WithLabelValues("push", "skipped").Inc()
		return nil
	}

	stored, err := s.subRepo.GetByProviderID(ctx, state.ID)
	if err != nil {
		if isNotFound(err) {
			s.logger.Info("notification for unknown subscription",
				zap.String("event", event),
				zap.String("razorpay_subscription_id", state.ID),
			)
			metrics.ReconcileTotal.WithLabelValues("push", "unknown").Inc()
			return nil
		}
		metrics.ReconcileTotal.WithLabelValues("push", "error").Inc()
		return persistenceErr("load subscription", err)
	}

	update := s.buildUpdate(state)

	switch event {
	case EventSubscriptionCharged:
		charged := razorpay.Time(state.CurrentStart)
		if charged == nil {
			// delivery delay can make this later than the real charge
			now := s.now().UTC().Truncate(time.Second)
			charged = &now
		}
		advanceLastCharged(update, stored.LastChargedAt, charged)
	case EventSubscriptionAuthenticated:
		advanceLastCharged(update, stored.LastChargedAt, razorpay.Time(state.CurrentStart))
	case EventSubscriptionCancelled:
		update["end_at"] = endTime(state)
	}

	if err := s.subRepo.UpdateByProviderID(ctx, state.ID, update); err != nil {
		metrics.ReconcileTotal.WithLabelValues("push", "error").Inc()
		return persistenceErr("update subscription", err)
	}

	metrics.ReconcileTotal.WithLabelValues("push", "ok").Inc()
	s.logger.Info("subscription updated from notification",
		zap.String("event", event),
		zap.String("razorpay_subscription_id", state.ID),
		zap.String("user_id", stored.UserID),
		zap.String("status", state.Status),
	)

	status := string(stored.Status)
	if v, ok := update["status"].(model.SubscriptionStatus); ok {
		status = string(v)
	}
	s.publish(ctx, &pubsub.SubscriptionEvent{
		UserID:                 stored.UserID,
		SubscriptionID:         stored.ID,
		RazorpaySubscriptionID: stored.RazorpaySubscriptionID,
		Status:                 status,
		Source:                 pubsub.SourceWebhook,
	})
	return nil
}

// FetchAndReconcile pulls the provider's state for a subscription owned by
// userID and writes it back. The merged row and the provider state are returned.
func (s *ReconcileService) FetchAndReconcile(ctx context.Context, razorpayID, userID string) (*model.Subscription, *razorpay.SubscriptionState, error) {
	state, err := s.provider.FetchSubscription(ctx, razorpayID)
	if err != nil {
		metrics.ReconcileTotal.WithLabelValues("pull", "provider_error").Inc()
		return nil, nil, err
	}

	stored, err := s.subRepo.GetByProviderID(ctx, razorpayID)
	if err != nil {
		metrics.ReconcileTotal.WithLabelValues("pull", "error").Inc()
		if isNotFound(err) {
			return nil, nil, ErrSubscriptionNotFound
		}
		return nil, nil, persistenceErr("load subscription", err)
	}
	if stored.UserID != userID {
		metrics.ReconcileTotal.WithLabelValues("pull", "error").Inc()
		return nil, nil, ErrSubscriptionNotFound
	}

	update := s.buildUpdate(state)
	if status, ok := model.ParseSubscriptionStatus(state.Status); ok &&
		(status == model.SubscriptionActive || status == model.SubscriptionAuthenticated) {
		advanceLastCharged(update, stored.LastChargedAt, razorpay.Time(state.CurrentStart))
	}

	merged, err := s.subRepo.UpdateByProviderIDAndUser(ctx, razorpayID, userID, update)
	if err != nil {
		metrics.ReconcileTotal.WithLabelValues("pull", "error").Inc()
		if isNotFound(err) {
			return nil, nil, ErrSubscriptionNotFound
		}
		return nil, nil, persistenceErr("update subscription", err)
	}

	metrics.ReconcileTotal.WithLabelValues("pull", "ok").Inc()
	if merged.Status != stored.Status {
		s.publish(ctx, &pubsub.SubscriptionEvent{
			UserID:                 merged.UserID,
			SubscriptionID:         merged.ID,
			RazorpaySubscriptionID: merged.RazorpaySubscriptionID,
			Status:                 string(merged.Status),
			Source:                 pubsub.SourceSync,
		})
	}
	return merged, state, nil
}

// SweepStale pull-reconciles up to batch open subscriptions that have not
// changed for staleAfter, covering notifications that never arrived. The
// write bumps updated_at, so a refreshed row waits a full staleAfter before
// its next turn. A row that fails is touched as well, so it cannot hold the
// head of the queue. One failure does not stop the sweep.
func (s *ReconcileService) SweepStale(ctx context.Context, staleAfter time.Duration, batch int) (int, error) {
	subs, err := s.subRepo.ListStale(ctx, model.OpenStatuses, s.now().Add(-staleAfter), batch)
	if err != nil {
		return 0, persistenceErr("list stale subscriptions", err)
	}

	refreshed := 0
	for _, sub := range subs {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}
		if _, _, err := s.FetchAndReconcile(ctx, sub.RazorpaySubscriptionID, sub.UserID); err != nil {
			s.logger.Warn("stale subscription sync failed",
				zap.String("razorpay_subscription_id", sub.RazorpaySubscriptionID),
				zap.Error(err),
			)
			if err := s.subRepo.TouchUpdatedAt(ctx, sub.ID, s.now()); err != nil {
				s.logger.Warn("mark subscription sync attempt failed",
					zap.String("razorpay_subscription_id", sub.RazorpaySubscriptionID),
					zap.Error(err),
				)
			}
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// buildUpdate copies the provider-authoritative fields. last_charged_at is
// never set here.
func (s *ReconcileService) buildUpdate(state *razorpay.SubscriptionState) map[string]interface{} {
	update := map[string]interface{}{
		"current_start": razorpay.Time(state.CurrentStart),
		"current_end":   razorpay.Time(state.CurrentEnd),
		"charge_at":     razorpay.Time(state.ChargeAt),
		"start_at":      razorpay.Time(state.StartAt),
		"end_at":        razorpay.Time(state.EndAt),
	}

	if status, ok := model.ParseSubscriptionStatus(state.Status); ok {
		update["status"] = status
	} else {
		s.logger.Warn("ignoring unrecognized subscription status",
			zap.String("razorpay_subscription_id", state.ID),
			zap.String("status", state.Status),
		)
	}

	if state.Quantity != nil {
		update["quantity"] = *state.Quantity
	}
	if state.TotalCount != nil {
		update["total_count"] = *state.TotalCount
	}
	if state.PaidCount != nil {
		update["paid_count"] = *state.PaidCount
	}
	return update
}

// advanceLastCharged sets last_charged_at only when candidate is strictly later than stored.
func advanceLastCharged(update map[string]interface{}, stored, candidate *time.Time) {
	if candidate == nil {
		return
	}
	if stored != nil && !candidate.After(*stored) {
		return
	}
	update["last_charged_at"] = candidate
}

// endTime prefers end_at and falls back to ended_at.
func endTime(state *razorpay.SubscriptionState) *time.Time {
	if t := razorpay.Time(state.EndAt); t != nil {
		return t
	}
	return razorpay.Time(state.EndedAt)
}

func (s *ReconcileService) publish(ctx context.Context, evt *pubsub.SubscriptionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSubscriptionEvent(ctx, evt); err != nil {
		s.logger.Warn("publish subscription event failed",
			zap.String("user_id", evt.UserID),
			zap.String("source", evt.Source),
			zap.Error(err),
		)
	}
}
