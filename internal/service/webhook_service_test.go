package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talktojesus/api_server/internal/model"
	"github.com/talktojesus/api_server/internal/pkg/razorpay"
	"github.com/talktojesus/api_server/internal/testutil"
)

func webhookBody(t *testing.T, event string, entity map[string]interface{}) []byte {
	t.Helper()

	body, err := json.Marshal(map[string]interface{}{
		"entity":     "event",
		"account_id": "acc_test",
		"event":      event,
		"created_at": 1712000000,
		"payload": map[string]interface{}{
			"subscription": map[string]interface{}{"entity": entity},
		},
	})
	require.NoError(t, err)
	return body
}

func signedDelivery(body []byte, eventID string) WebhookDelivery {
	return WebhookDelivery{
		Body:      body,
		Signature: razorpay.Sign(body, testWebhookSecret),
		EventID:   eventID,
	}
}

func TestWebhookService_Process(t *testing.T) {
	env := setupBillingEnv(t)
	ctx := context.Background()
	plan := testutil.TestPlan(t, env.db)
	user := testutil.TestUser(t, env.db)
	sub := testutil.TestSubscription(t, env.db, user.ID, plan.ID)

	body := webhookBody(t, "subscription.activated", map[string]interface{}{
		"id":            sub.RazorpaySubscriptionID,
		"status":        "active",
		"current_start": 1712000000,
		"current_end":   1714600000,
		"paid_count":    1,
	})

	result, err := env.webhooks.Process(ctx, signedDelivery(body, "evt_1"))
	require.NoError(t, err)
	assert.Equal(t, "subscription.activated", result.Event)
	assert.False(t, result.Duplicate)

	stored, err := env.subRepo.GetByProviderID(ctx, sub.RazorpaySubscriptionID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, stored.Status)
	assert.Equal(t, 1, stored.PaidCount)

	var ledger model.WebhookEvent
	require.NoError(t, env.db.Where("event_id = ?", "evt_1").First(&ledger).Error)
	assert.True(t, ledger.Handled())
	assert.Equal(t, "subscription.activated", ledger.EventType)
}

func TestWebhookService_InvalidSignature(t *testing.T) {
	env := setupBillingEnv(t)
	plan := testutil.TestPlan(t, env.db)
	user := testutil.TestUser(t, env.db)
	sub := testutil.TestSubscription(t, env.db, user.ID, plan.ID)

	body := webhookBody(t, "subscription.activated", map[string]interface{}{
		"id":     sub.RazorpaySubscriptionID,
		"status": "active",
	})

	tests := []struct {
		name      string
		signature string
	}{
		{"missing", ""},
		{"wrong secret", razorpay.Sign(body, "other_secret")},
		{"not hex", "zz-not-a-signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.webhooks.Process(context.Background(), WebhookDelivery{Body: body, Signature: tt.signature})
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}

	stored, err := env.subRepo.GetByProviderID(context.Background(), sub.RazorpaySubscriptionID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionCreated, stored.Status)

	var count int64
	env.db.Model(&model.WebhookEvent{}).Count(&count)
	assert.Zero(t, count)
}

func TestWebhookService_InvalidPayload(t *testing.T) {
	env := setupBillingEnv(t)
	body := []byte(`{"event": "subscription.charged", "payload": `)

	_, err := env.webhooks.Process(context.Background(), signedDelivery(body, ""))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestWebhookService_Duplicate(t *testing.T) {
	env := setupBillingEnv(t)
	ctx := context.Background()
	plan := testutil.TestPlan(t, env.db)
	user := testutil.TestUser(t, env.db)
	sub := testutil.TestSubscription(t, env.db, user.ID, plan.ID)

	body := webhookBody(t, "subscription.activated", map[string]interface{}{
		"id":     sub.RazorpaySubscriptionID,
		"status": "active",
	})

	first, err := env.webhooks.Process(ctx, signedDelivery(body, ""))
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	// a later state change must survive a replay of the old delivery
	require.NoError(t, env.subRepo.UpdateByProviderID(ctx, sub.RazorpaySubscriptionID,
		map[string]interface{}{"status": model.SubscriptionHalted}))

	second, err := env.webhooks.Process(ctx, signedDelivery(body, ""))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	stored, err := env.subRepo.GetByProviderID(ctx, sub.RazorpaySubscriptionID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionHalted, stored.Status)
	assert.Len(t, env.publisher.Events(), 1)
}

func TestWebhookService_RetriesFailedDelivery(t *testing.T) {
	env := setupBillingEnv(t)
	ctx := context.Background()
	eventRepo := env.webhooks.eventRepo
	plan := testutil.TestPlan(t, env.db)
	user := testutil.TestUser(t, env.db)
	sub := testutil.TestSubscription(t, env.db, user.ID, plan.ID)

	body := webhookBody(t, "subscription.activated", map[string]interface{}{
		"id":     sub.RazorpaySubscriptionID,
		"status": "active",
	})

	// a previous attempt that failed mid-way
	_, prior, err := eventRepo.CreateIfNotExists(ctx, &model.WebhookEvent{
		Provider:  "razorpay",
		EventID:   "evt_retry",
		EventType: "subscription.activated",
		Payload:   string(body),
	})
	require.NoError(t, err)
	require.NoError(t, eventRepo.MarkProcessed(ctx, prior.ID, "database is locked"))

	result, err := env.webhooks.Process(ctx, signedDelivery(body, "evt_retry"))
	require.NoError(t, err)
	assert.False(t, result.Duplicate)

	stored, err := env.subRepo.GetByProviderID(ctx, sub.RazorpaySubscriptionID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, stored.Status)

	var ledger model.WebhookEvent
	require.NoError(t, env.db.First(&ledger, prior.ID).Error)
	assert.True(t, ledger.Handled())
}

func TestWebhookService_IgnoresOtherEvents(t *testing.T) {
	env := setupBillingEnv(t)
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1"}}}}`)

	result, err := env.webhooks.Process(context.Background(), signedDelivery(body, "evt_pay"))
	require.NoError(t, err)
	assert.Equal(t, "payment.captured", result.Event)
	assert.Empty(t, env.publisher.Events())
}

func TestWebhookService_UnknownSubscriptionAcknowledged(t *testing.T) {
	env := setupBillingEnv(t)
	body := webhookBody(t, "subscription.charged", map[string]interface{}{
		"id":     "sub_created_elsewhere",
		"status": "active",
	})

	_, err := env.webhooks.Process(context.Background(), signedDelivery(body, ""))
	assert.NoError(t, err)
}

func TestWebhookService_PurgeLedger(t *testing.T) {
	env := setupBillingEnv(t)
	ctx := context.Background()
	eventRepo := env.webhooks.eventRepo

	for _, id := range []string{"evt_old", "evt_new"} {
		_, stored, err := eventRepo.CreateIfNotExists(ctx, &model.WebhookEvent{Provider: "razorpay", EventID: id})
		require.NoError(t, err)
		require.NoError(t, eventRepo.MarkProcessed(ctx, stored.ID, ""))
	}
	require.NoError(t, env.db.Model(&model.WebhookEvent{}).
		Where("event_id = ?", "evt_old").
		UpdateColumn("processed_at", time.Now().Add(-45*24*time.Hour)).Error)

	purged, err := env.webhooks.PurgeLedger(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	var count int64
	require.NoError(t, env.db.Model(&model.WebhookEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
