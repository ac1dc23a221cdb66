package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/staysync/booking-backend/internal/models"
	"github.com/staysync/booking-backend/internal/services"
)

// feedTimeout bounds one whole import run
const feedTimeout = 2 * time.Minute

type FeedHandler struct {
	feedService *services.FeedService
	logger      *logrus.Logger
}

func NewFeedHandler(feedService *services.FeedService, logger *logrus.Logger) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
		logger:      logger,
	}
}

// ImportFeed imports one organization feed document
// POST /api/v1/feeds/import
func (h *FeedHandler) ImportFeed(c *gin.Context) {
	var req models.FeedImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), feedTimeout)
	defer cancel()

	summary, err := h.feedService.Import(ctx, &req)
	if err != nil {
		var validation *models.ValidationError
		if errors.As(err, &validation) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_failed",
				"field":   validation.Field,
				"message": validation.Message,
			})
			return
		}
		h.logger.WithError(err).Error("Feed import failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, summary)
}
