package razorpay

import (
	"context"

	sdk "github.com/razorpay/razorpay-go"
	"go.uber.org/zap"

	"github.com/talktojesus/api_server/internal/pkg/metrics"
)

// Provider is the subset of the payment provider this service depends on.
type Provider interface {
	CreateSubscription(ctx context.Context, planID string, quantity, totalCount int) (*SubscriptionState, error)
	FetchSubscription(ctx context.Context, id string) (*SubscriptionState, error)
	CancelSubscription(ctx context.Context, id string, immediate bool) (*SubscriptionState, error)
	// KeyID is the public key the client needs to open checkout.
	KeyID() string
}

// Client talks to the Razorpay subscriptions API.
type Client struct {
	api    *sdk.Client
	keyID  string
	logger *zap.Logger
}

func NewClient(keyID, keySecret string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		api:    sdk.NewClient(keyID, keySecret),
		keyID:  keyID,
		logger: logger,
	}
}

func (c *Client) KeyID() string {
	return c.keyID
}

func (c *Client) CreateSubscription(ctx context.Context, planID string, quantity, totalCount int) (*SubscriptionState, error) {
	data := map[string]interface{}{
		"plan_id":         planID,
		"customer_notify": 1,
		"quantity":        quantity,
		"total_count":     totalCount,
	}
	return c.call(ctx, "create", func() (map[string]interface{}, error) {
		return c.api.Subscription.Create(data, nil)
	})
}

func (c *Client) FetchSubscription(ctx context.Context, id string) (*SubscriptionState, error) {
	return c.call(ctx, "fetch", func() (map[string]interface{}, error) {
		return c.api.Subscription.Fetch(id, nil, nil)
	})
}

// CancelSubscription cancels id. immediate=false defers to the end of the current cycle.
func (c *Client) CancelSubscription(ctx context.Context, id string, immediate bool) (*SubscriptionState, error) {
	atCycleEnd := 1
	if immediate {
		atCycleEnd = 0
	}
	data := map[string]interface{}{
		"cancel_at_cycle_end": atCycleEnd,
	}
	return c.call(ctx, "cancel", func() (map[string]interface{}, error) {
		return c.api.Subscription.Cancel(id, data, nil)
	})
}

func (c *Client) call(ctx context.Context, op string, fn func() (map[string]interface{}, error)) (*SubscriptionState, error) {
	// the SDK takes no context, honour cancellation before going out
	if err := ctx.Err(); err != nil {
		return nil, &ProviderError{Op: op, Err: err}
	}

	body, err := fn()
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(op, "error").Inc()
		c.logger.Warn("razorpay request failed", zap.String("op", op), zap.Error(err))
		return nil, &ProviderError{Op: op, Err: err}
	}

	state, err := decodeState(body)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(op, "decode_error").Inc()
		return nil, &ProviderError{Op: op, Err: err}
	}

	metrics.ProviderRequestsTotal.WithLabelValues(op, "ok").Inc()
	c.logger.Debug("razorpay request",
		zap.String("op", op),
		zap.String("subscription_id", state.ID),
		zap.String("status", state.Status),
	)
	return state, nil
}
