package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelSubscriptionEvents = "subscription_events"
)

const (
	EventSubscriptionUpdated = "subscription_updated"
)

// Where a subscription change came from
const (
	SourceCreate  = "create"
	SourceWebhook = "webhook"
	SourceSync    = "sync"
	SourceCancel  = "cancel"
)

// SubscriptionEvent is broadcast after every persisted subscription change.
type SubscriptionEvent struct {
	Type                   string `json:"type"`
	UserID                 string `json:"user_id"`
	SubscriptionID         string `json:"subscription_id"`
	RazorpaySubscriptionID string `json:"razorpay_subscription_id"`
	Status                 string `json:"status"`
	Source                 string `json:"source"`
}

// Publisher Redis publisher
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishSubscriptionEvent publishes evt on ChannelSubscriptionEvents
func (p *Publisher) PublishSubscriptionEvent(ctx context.Context, evt *SubscriptionEvent) error {
	if evt.Type == "" {
		evt.Type = EventSubscriptionUpdated
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription event: %w", err)
	}

	return p.client.Publish(ctx, ChannelSubscriptionEvents, data).Err()
}

// Subscriber Redis subscriber
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe blocks delivering events to handler until ctx is done.
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*SubscriptionEvent)) error {
	ps := s.client.Subscribe(ctx, ChannelSubscriptionEvents)
	defer ps.Close()

	// wait for the subscription to be confirmed
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", ChannelSubscriptionEvents, err)
	}

	ch := ps.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var evt SubscriptionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				continue // malformed payloads are dropped
			}

			handler(&evt)
		}
	}
}
