package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/staysync/booking-backend/internal/mappers"
	"github.com/staysync/booking-backend/internal/models"
	"github.com/staysync/booking-backend/internal/services"
)

// maxWebhookBody caps a single webhook delivery
const maxWebhookBody = 1 << 20

// webhookTimeout bounds the inventory round-trips one delivery may spend
const webhookTimeout = 30 * time.Second

type WebhookHandler struct {
	registry       *mappers.Registry
	reconciliation *services.ReconciliationService
	logger         *logrus.Logger
}

func NewWebhookHandler(registry *mappers.Registry, reconciliation *services.ReconciliationService, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		registry:       registry,
		reconciliation: reconciliation,
		logger:         logger,
	}
}

// HandleWebhook ingests one provider webhook delivery. The response is always
// 200 with a typed outcome envelope: providers retry non-2xx responses, and a
// payload we cannot apply will not get better on redelivery.
// POST /webhooks/:provider
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	provider := c.Param("provider")

	mapper, ok := h.registry.Get(provider)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "unknown_provider",
			"message": "No mapper is registered for provider " + provider,
		})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	action, err := mapper.MapWebhook(body)
	if err != nil {
		var mapping *models.MappingError
		reason := err.Error()
		if errors.As(err, &mapping) {
			h.logger.WithFields(logrus.Fields{
				"provider": provider,
				"reason":   mapping.Message,
			}).Warn("Webhook payload rejected by mapper")
		}
		c.JSON(http.StatusOK, webhookEnvelope(models.ReconciliationOutcome{
			Outcome: models.OutcomeError,
			Reason:  &reason,
		}))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), webhookTimeout)
	defer cancel()

	outcome := h.reconciliation.Apply(ctx, action)
	c.JSON(http.StatusOK, webhookEnvelope(outcome))
}

// webhookEnvelope shapes the provider-facing response
func webhookEnvelope(outcome models.ReconciliationOutcome) gin.H {
	envelope := gin.H{
		"ok":      outcome.Outcome != models.OutcomeError,
		"outcome": outcome.Outcome,
	}
	if outcome.BookingID != nil {
		envelope["booking_id"] = *outcome.BookingID
	}
	if outcome.UnitID != nil {
		envelope["unit_id"] = *outcome.UnitID
	}
	if outcome.PropertyID != nil {
		envelope["property_id"] = *outcome.PropertyID
	}
	if outcome.Reason != nil {
		envelope["reason"] = *outcome.Reason
	}
	if len(outcome.Conflicts) > 0 {
		envelope["conflicts"] = outcome.Conflicts
	}
	return envelope
}
