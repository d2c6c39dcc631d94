package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/talktojesus/api_server/internal/api/middleware"
	"github.com/talktojesus/api_server/internal/model/dto"
	"github.com/talktojesus/api_server/internal/pkg/razorpay"
	"github.com/talktojesus/api_server/internal/pkg/response"
	"github.com/talktojesus/api_server/internal/service"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
	}
}

// Create starts a subscription for a plan
// POST /api/v1/subscription/create
// POST /api/v1/payment/create-order
func (h *SubscriptionHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.subscriptionService.Create(c.Request.Context(), req.PlanID, userID)
	if err != nil {
		writeSubscriptionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "subscription created", resp)
}

// Current returns the latest subscription, synced with the provider when possible
// GET /api/v1/subscription/current
func (h *SubscriptionHandler) Current(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	resp, err := h.subscriptionService.GetCurrent(c.Request.Context(), userID)
	if err != nil {
		writeSubscriptionError(c, err)
		return
	}
	// data is null when the user never subscribed
	response.Success(c, resp)
}

// Cancel cancels the latest subscription
// POST /api/v1/subscription/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	sub, err := h.subscriptionService.CancelCurrent(c.Request.Context(), userID)
	if err != nil {
		writeSubscriptionError(c, err)
		return
	}

	response.Success(c, dto.CancelSubscriptionResponse{
		Message:      "subscription cancelled",
		Subscription: sub,
	})
}

func writeSubscriptionError(c *gin.Context, err error) {
	var providerErr *razorpay.ProviderError
	switch {
	case errors.Is(err, service.ErrPlanNotFound), errors.Is(err, service.ErrSubscriptionNotFound):
		response.NotFoundError(c, err.Error())
	case errors.As(err, &providerErr):
		response.ServerError(c, "payment provider request failed")
	default:
		response.ServerError(c, "")
	}
}
