package razorpay

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SubscriptionState is the provider's view of a subscription. Unix second
// timestamps are optional; nil and 0 both mean absent.
type SubscriptionState struct {
	ID           string `json:"id"`
	PlanID       string `json:"plan_id"`
	Status       string `json:"status"`
	ShortURL     string `json:"short_url,omitempty"`
	CurrentStart *int64 `json:"current_start"`
	CurrentEnd   *int64 `json:"current_end"`
	ChargeAt     *int64 `json:"charge_at"`
	StartAt      *int64 `json:"start_at"`
	EndAt        *int64 `json:"end_at"`
	EndedAt      *int64 `json:"ended_at"`
	Quantity     *int   `json:"quantity"`
	TotalCount   *int   `json:"total_count"`
	PaidCount    *int   `json:"paid_count"`

	// Raw is the undecoded provider response, passed through to clients.
	Raw map[string]interface{} `json:"-"`
}

// Time converts an optional unix timestamp.
func Time(unix *int64) *time.Time {
	if unix == nil || *unix == 0 {
		return nil
	}
	t := time.Unix(*unix, 0).UTC()
	return &t
}

// decodeState maps an SDK response onto SubscriptionState.
func decodeState(body map[string]interface{}) (*SubscriptionState, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var state SubscriptionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	state.Raw = body
	return &state, nil
}

// WebhookEnvelope is a parsed provider notification.
type WebhookEnvelope struct {
	Event     string `json:"event"`
	AccountID string `json:"account_id"`
	CreatedAt int64  `json:"created_at"`

	// Subscription is nil when the payload carries no subscription.
	Subscription *SubscriptionState `json:"-"`
}

const subscriptionEventPrefix = "subscription."

// IsSubscriptionEvent reports whether the event belongs to the subscription.* namespace.
func (e *WebhookEnvelope) IsSubscriptionEvent() bool {
	return strings.HasPrefix(e.Event, subscriptionEventPrefix)
}

type rawEnvelope struct {
	Event     string `json:"event"`
	AccountID string `json:"account_id"`
	CreatedAt int64  `json:"created_at"`
	Payload   struct {
		Subscription json.RawMessage `json:"subscription"`
	} `json:"payload"`
}

// ParseWebhookEnvelope decodes a notification body. The subscription is read
// from payload.subscription.entity, or payload.subscription itself when the
// entity wrapper is missing.
func ParseWebhookEnvelope(body []byte) (*WebhookEnvelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse webhook envelope: %w", err)
	}

	env := &WebhookEnvelope{
		Event:     raw.Event,
		AccountID: raw.AccountID,
		CreatedAt: raw.CreatedAt,
	}

	sub := raw.Payload.Subscription
	if len(sub) == 0 || string(sub) == "null" {
		return env, nil
	}

	var wrapped struct {
		Entity json.RawMessage `json:"entity"`
	}
	if err := json.Unmarshal(sub, &wrapped); err != nil {
		return nil, fmt.Errorf("parse webhook subscription: %w", err)
	}
	if len(wrapped.Entity) > 0 && string(wrapped.Entity) != "null" {
		sub = wrapped.Entity
	}

	var entity map[string]interface{}
	if err := json.Unmarshal(sub, &entity); err != nil {
		return nil, fmt.Errorf("parse webhook subscription: %w", err)
	}
	state, err := decodeState(entity)
	if err != nil {
		return nil, err
	}
	env.Subscription = state
	return env, nil
}

// ProviderError wraps a failed call to the payment provider.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("razorpay %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
