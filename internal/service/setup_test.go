package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/talktojesus/api_server/internal/pkg/pubsub"
	"github.com/talktojesus/api_server/internal/pkg/razorpay"
	"github.com/talktojesus/api_server/internal/repository"
	"github.com/talktojesus/api_server/internal/testutil"
)

const testWebhookSecret = "whsec_test"

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*pubsub.SubscriptionEvent
	err    error
}

func (p *recordingPublisher) PublishSubscriptionEvent(ctx context.Context, evt *pubsub.SubscriptionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) Events() []*pubsub.SubscriptionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*pubsub.SubscriptionEvent(nil), p.events...)
}

// billingEnv wires the subscription services against an in-memory database
// and a mock provider.
type billingEnv struct {
	db            *gorm.DB
	userRepo      *repository.UserRepository
	subRepo       *repository.SubscriptionRepository
	planRepo      *repository.PlanRepository
	provider      *razorpay.MockClient
	publisher     *recordingPublisher
	entitlement   *EntitlementService
	usage         *UsageService
	reconciler    *ReconcileService
	subscriptions *SubscriptionService
	webhooks      *WebhookService
}

func setupBillingEnv(t *testing.T) *billingEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	logger := zap.NewNop()
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	planRepo := repository.NewPlanRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)
	provider := razorpay.NewMockClient()
	publisher := &recordingPublisher{}

	entitlement := NewEntitlementService(userRepo, subRepo, EntitlementConfig{
		FreeLimit:   DefaultFreeLimit,
		GracePeriod: DefaultGracePeriod,
	}, logger)
	reconciler := NewReconcileService(subRepo, provider, publisher, logger)

	return &billingEnv{
		db:            db,
		userRepo:      userRepo,
		subRepo:       subRepo,
		planRepo:      planRepo,
		provider:      provider,
		publisher:     publisher,
		entitlement:   entitlement,
		usage:         NewUsageService(userRepo, logger),
		reconciler:    reconciler,
		subscriptions: NewSubscriptionService(planRepo, subRepo, provider, reconciler, publisher, logger),
		webhooks: NewWebhookService(
			razorpay.NewVerifier(testWebhookSecret, logger),
			reconciler,
			eventRepo,
			logger,
		),
	}
}

func int64p(v int64) *int64 { return &v }

func intp(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }
