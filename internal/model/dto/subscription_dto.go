package dto

import (
	"github.com/talktojesus/api_server/internal/model"
)

type CreateSubscriptionRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

// SubscriptionResponse is the stored record plus what the client needs to
// open the provider checkout.
type SubscriptionResponse struct {
	*model.Subscription
	RazorpaySubscription map[string]interface{} `json:"razorpay_subscription,omitempty"`
	RazorpayKeyID        string                 `json:"razorpay_key_id,omitempty"`
}

type CancelSubscriptionResponse struct {
	Message      string              `json:"message"`
	Subscription *model.Subscription `json:"subscription"`
}

type WebhookAck struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}
