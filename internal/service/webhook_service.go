package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/talktojesus/api_server/internal/model"
	"github.com/talktojesus/api_server/internal/pkg/razorpay"
	"github.com/talktojesus/api_server/internal/repository"
)

const webhookProvider = "razorpay"

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
)

// WebhookDelivery is one inbound notification as received.
type WebhookDelivery struct {
	Body      []byte
	Signature string
	EventID   string // X-Razorpay-Event-Id, may be empty
}

// WebhookResult describes what Process did with a delivery.
type WebhookResult struct {
	Event     string
	Duplicate bool
}

type WebhookService struct {
	verifier   *razorpay.Verifier
	reconciler *ReconcileService
	eventRepo  *repository.WebhookEventRepository
	logger     *zap.Logger
}

func NewWebhookService(
	verifier *razorpay.Verifier,
	reconciler *ReconcileService,
	eventRepo *repository.WebhookEventRepository,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		verifier:   verifier,
		reconciler: reconciler,
		eventRepo:  eventRepo,
		logger:     logger,
	}
}

func (s *WebhookService) VerifyNotification(body []byte, signature string) bool {
	return s.verifier.Verify(body, signature)
}

// ApplyNotification hands subscription events to the reconciler and ignores the rest.
func (s *WebhookService) ApplyNotification(ctx context.Context, env *razorpay.WebhookEnvelope) error {
	if !env.IsSubscriptionEvent() {
		s.logger.Debug("ignoring non subscription event", zap.String("event", env.Event))
		return nil
	}
	return s.reconciler.ApplyNotification(ctx, env.Event, env.Subscription)
}

// Process verifies, records and applies a delivery. A delivery that already
// went through cleanly is acknowledged without being applied again.
func (s *WebhookService) Process(ctx context.Context, d WebhookDelivery) (*WebhookResult, error) {
	if !s.VerifyNotification(d.Body, d.Signature) {
		return nil, ErrInvalidSignature
	}

	env, err := razorpay.ParseWebhookEnvelope(d.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	result := &WebhookResult{Event: env.Event}

	ledger := s.record(ctx, d, env)
	if ledger != nil && ledger.Handled() {
		s.logger.Info("duplicate webhook delivery",
			zap.String("event", env.Event),
			zap.String("event_id", ledger.EventID),
		)
		result.Duplicate = true
		return result, nil
	}

	applyErr := s.ApplyNotification(ctx, env)

	if ledger != nil {
		msg := ""
		if applyErr != nil {
			msg = applyErr.Error()
		}
		if err := s.eventRepo.MarkProcessed(ctx, ledger.ID, msg); err != nil {
			s.logger.Warn("mark webhook processed failed", zap.Int64("webhook_event_id", ledger.ID), zap.Error(err))
		}
	}

	if applyErr != nil {
		return result, applyErr
	}
	return result, nil
}

// record writes the delivery to the ledger. A ledger failure is logged and
// the delivery is still applied.
func (s *WebhookService) record(ctx context.Context, d WebhookDelivery, env *razorpay.WebhookEnvelope) *model.WebhookEvent {
	if s.eventRepo == nil {
		return nil
	}

	eventID := strings.TrimSpace(d.EventID)
	if eventID == "" {
		sum := sha256.Sum256(d.Body)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	_, stored, err := s.eventRepo.CreateIfNotExists(ctx, &model.WebhookEvent{
		Provider:  webhookProvider,
		EventID:   eventID,
		EventType: env.Event,
		Payload:   string(d.Body),
	})
	if err != nil {
		s.logger.Warn("record webhook event failed", zap.String("event_id", eventID), zap.Error(err))
		return nil
	}
	return stored
}

// PurgeLedger drops handled deliveries recorded more than retention ago.
func (s *WebhookService) PurgeLedger(ctx context.Context, retention time.Duration) (int64, error) {
	if s.eventRepo == nil {
		return 0, nil
	}
	n, err := s.eventRepo.DeleteHandledBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, persistenceErr("purge webhook events", err)
	}
	return n, nil
}
