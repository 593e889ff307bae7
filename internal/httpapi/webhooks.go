package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aymandakir/voice-ai-call-center/internal/billing"
	"github.com/aymandakir/voice-ai-call-center/internal/calls"
	"github.com/aymandakir/voice-ai-call-center/pkg/logger"
)

const maxWebhookBody = 1 << 20 // 1 MiB

const billingSignatureHeader = "X-Webhook-Signature"

// VoiceWebhook ingests voice-provider lifecycle deliveries. Responses steer
// the vendor's retry behavior: 2xx acknowledges, 4xx stops retries for this
// delivery, 5xx asks for a retry.
func (h *Handlers) VoiceWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	ev, err := calls.ParseWebhookEvent(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	res, err := h.Sync.Apply(c.Request.Context(), ev)
	if err != nil {
		switch {
		case errors.Is(err, calls.ErrMalformedPayload):
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		case errors.Is(err, calls.ErrAgentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
		default:
			logger.FromGin(c).Error("voice webhook apply failed", "event", ev.Name, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	resp := gin.H{"received": true}
	if res.CallID != "" {
		resp["call_id"] = res.CallID
	}
	c.JSON(http.StatusOK, resp)
}

// BillingWebhook ingests payment-provider events after verifying the
// HMAC signature over the raw body.
func (h *Handlers) BillingWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := h.Billing.VerifySignature(body, c.GetHeader(billingSignatureHeader)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	if err := h.Billing.HandleEvent(c.Request.Context(), body); err != nil {
		if errors.Is(err, billing.ErrMalformedPayload) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
			return
		}
		logger.FromGin(c).Error("billing webhook failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
