package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/staysync/booking-backend/internal/models"
	"github.com/staysync/booking-backend/internal/services"
)

type BookingHandler struct {
	bookingService *services.BookingService
	logger         *logrus.Logger
}

func NewBookingHandler(bookingService *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// respondError maps typed service errors to HTTP statuses. Anything
// unclassified is a 500 and gets logged; business failures do not.
func (h *BookingHandler) respondError(c *gin.Context, err error) {
	var validation *models.ValidationError
	var notFound *models.NotFoundError
	var unavailable *models.UnavailableRangeError
	var transition *models.InvalidTransitionError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"field":   validation.Field,
			"message": validation.Message,
		})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": notFound.Error(),
		})
	case errors.As(err, &unavailable):
		c.JSON(http.StatusConflict, gin.H{
			"error":     "range_unavailable",
			"message":   unavailable.Error(),
			"unit_id":   unavailable.UnitID,
			"conflicts": unavailable.Conflicts,
		})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "invalid_transition",
			"message": transition.Error(),
			"status":  transition.From,
		})
	default:
		h.logger.WithError(err).Error("Booking operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// CreateBooking creates a booking for a unit and date range
// POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	booking, err := h.bookingService.CreateBooking(&req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// GetBooking retrieves a booking by id
// GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// GetBookingByExternalRef retrieves the booking correlated with an external
// reference. 404 means the reference was never reconciled.
// GET /api/v1/bookings/by-external-ref?source=&id=
func (h *BookingHandler) GetBookingByExternalRef(c *gin.Context) {
	source := c.Query("source")
	externalID := c.Query("id")
	if source == "" || externalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Both source and id query parameters are required"})
		return
	}

	booking, err := h.bookingService.GetBookingByExternalRef(source, externalID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if booking == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "no booking correlated with " + source + ":" + externalID,
		})
		return
	}
	c.JSON(http.StatusOK, booking)
}

// ListBookings lists bookings with optional filters
// GET /api/v1/bookings?unit_id=&property_id=&status=&from=&to=
func (h *BookingHandler) ListBookings(c *gin.Context) {
	filter := models.BookingFilter{
		UnitID:     c.Query("unit_id"),
		PropertyID: c.Query("property_id"),
		Status:     models.BookingStatus(c.Query("status")),
	}

	if from, ok := parseTimeQuery(c, "from"); ok {
		filter.From = from
	} else {
		return
	}
	if to, ok := parseTimeQuery(c, "to"); ok {
		filter.To = to
	} else {
		return
	}

	bookings, err := h.bookingService.ListBookings(filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// UpdateBooking applies a partial patch. Status and dates have their own
// endpoints and are rejected here by the request shape.
// PATCH /api/v1/bookings/:id
func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	var req models.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	booking, err := h.bookingService.UpdateBooking(c.Param("id"), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// ChangeBookingDates reschedules a booking
// PATCH /api/v1/bookings/:id/dates
func (h *BookingHandler) ChangeBookingDates(c *gin.Context) {
	var req models.ChangeBookingDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	booking, err := h.bookingService.ChangeBookingDates(c.Param("id"), req.CheckIn, req.CheckOut)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// CancelBooking cancels a booking, optionally recording a reason
// POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var req models.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	booking, err := h.bookingService.CancelBooking(c.Param("id"), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// ConfirmBooking moves a pending booking to confirmed
// POST /api/v1/bookings/:id/confirm
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	booking, err := h.bookingService.ConfirmBooking(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// CompleteBooking marks a confirmed booking as completed
// POST /api/v1/bookings/:id/complete
func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	booking, err := h.bookingService.CompleteBooking(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// MarkNoShow marks a confirmed booking as no-show
// POST /api/v1/bookings/:id/no-show
func (h *BookingHandler) MarkNoShow(c *gin.Context) {
	booking, err := h.bookingService.MarkNoShow(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// CheckAvailability reports whether a unit is free for a date range
// GET /api/v1/availability?unit_id=&check_in=&check_out=
func (h *BookingHandler) CheckAvailability(c *gin.Context) {
	unitID := c.Query("unit_id")
	if unitID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unit_id query parameter is required"})
		return
	}

	checkIn, err := time.Parse(time.RFC3339, c.Query("check_in"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_in must be an RFC3339 timestamp"})
		return
	}
	checkOut, err := time.Parse(time.RFC3339, c.Query("check_out"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_out must be an RFC3339 timestamp"})
		return
	}

	available, err := h.bookingService.IsRangeAvailable(unitID, checkIn, checkOut, "")
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"unit_id":   unitID,
		"check_in":  checkIn,
		"check_out": checkOut,
		"available": available,
	})
}

// parseTimeQuery parses an optional RFC3339 query parameter. On a malformed
// value it writes the 400 itself and reports failure.
func parseTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an RFC3339 timestamp"})
		return nil, false
	}
	return &t, true
}
