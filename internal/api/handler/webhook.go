package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/talktojesus/api_server/internal/model/dto"
	"github.com/talktojesus/api_server/internal/pkg/metrics"
	"github.com/talktojesus/api_server/internal/service"
)

const (
	maxWebhookBody = 1 << 20

	headerSignature = "X-Razorpay-Signature"
	headerEventID   = "X-Razorpay-Event-Id"
)

// WebhookHandler answers with plain HTTP statuses; the provider retries on
// anything other than 2xx.
type WebhookHandler struct {
	webhookService *service.WebhookService
	logger         *zap.Logger
}

func NewWebhookHandler(webhookService *service.WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// Razorpay receives subscription notifications
// POST /api/v1/webhook/razorpay
func (h *WebhookHandler) Razorpay(c *gin.Context) {
	start := time.Now()
	event := "unknown"
	status := "ok"
	defer func() {
		metrics.WebhookRequestsTotal.WithLabelValues(event, status).Inc()
		metrics.WebhookDuration.WithLabelValues(event).Observe(time.Since(start).Seconds())
	}()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		status = "bad_request"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}

	signature := c.GetHeader(headerSignature)
	if signature == "" {
		status = "missing_signature"
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing signature"})
		return
	}

	result, err := h.webhookService.Process(c.Request.Context(), service.WebhookDelivery{
		Body:      body,
		Signature: signature,
		EventID:   c.GetHeader(headerEventID),
	})
	if result != nil {
		event = result.Event
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			status = "invalid_signature"
			h.logger.Warn("webhook signature rejected", zap.String("client_ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		case errors.Is(err, service.ErrInvalidPayload):
			status = "invalid_payload"
			h.logger.Warn("webhook payload rejected", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		default:
			status = "error"
			h.logger.Error("webhook processing failed", zap.String("event", event), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		}
		return
	}

	if result.Duplicate {
		status = "duplicate"
	}
	c.JSON(http.StatusOK, dto.WebhookAck{Received: true, Duplicate: result.Duplicate})
}
