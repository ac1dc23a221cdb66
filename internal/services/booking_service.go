package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/staysync/booking-backend/internal/database"
	"github.com/staysync/booking-backend/internal/models"
)

// BookingService is the booking lifecycle manager. Every availability check
// followed by a write runs under a per-unit lock: two concurrent creates for
// overlapping ranges on the same unit must not both observe "available".
type BookingService struct {
	bookingRepo *database.BookingRepository
	guestRepo   *database.GuestRepository
	logger      *logrus.Logger

	mu        sync.Mutex
	unitLocks map[string]*sync.Mutex
}

// NewBookingService creates a new BookingService
func NewBookingService(
	bookingRepo *database.BookingRepository,
	guestRepo *database.GuestRepository,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		guestRepo:   guestRepo,
		logger:      logger,
		unitLocks:   make(map[string]*sync.Mutex),
	}
}

// lockUnit serializes check-then-write sequences per unit. The returned
// function releases the lock.
func (s *BookingService) lockUnit(unitID string) func() {
	s.mu.Lock()
	lock, ok := s.unitLocks[unitID]
	if !ok {
		lock = &sync.Mutex{}
		s.unitLocks[unitID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// validateRange rejects inverted and zero-length stay ranges. A zero-length
// range is invalid input, not "always available".
func validateRange(checkIn, checkOut time.Time) error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return models.NewValidationError("range", "check-in and check-out are required")
	}
	if !checkIn.Before(checkOut) {
		return models.NewValidationError("range", "check-out must be after check-in")
	}
	return nil
}

// IsRangeAvailable reports whether [checkIn, checkOut) is free on a unit.
// excludeBookingID removes one booking from consideration (reschedules).
// Callers that intend to write afterwards must go through CreateBooking or
// ChangeBookingDates instead, which hold the unit lock across the check.
func (s *BookingService) IsRangeAvailable(unitID string, checkIn, checkOut time.Time, excludeBookingID string) (bool, error) {
	if unitID == "" {
		return false, models.NewValidationError("unit_id", "unit id is required")
	}
	if err := validateRange(checkIn, checkOut); err != nil {
		return false, err
	}

	overlapping, err := s.bookingRepo.FindOverlapping(unitID, checkIn, checkOut, excludeBookingID)
	if err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}

	return len(overlapping) == 0, nil
}

// findConflicts returns the blocking bookings as conflict records.
func (s *BookingService) findConflicts(unitID string, checkIn, checkOut time.Time, excludeBookingID string) ([]models.BookingConflict, error) {
	overlapping, err := s.bookingRepo.FindOverlapping(unitID, checkIn, checkOut, excludeBookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to check availability: %w", err)
	}

	conflicts := make([]models.BookingConflict, 0, len(overlapping))
	for _, b := range overlapping {
		conflicts = append(conflicts, models.BookingConflict{
			BookingID: b.ID,
			CheckIn:   b.CheckIn,
			CheckOut:  b.CheckOut,
		})
	}
	return conflicts, nil
}

// CreateBooking validates availability and persists a new booking. The
// booking starts pending unless the caller asserts upstream confirmation
// (external sync of an already-confirmed foreign booking).
func (s *BookingService) CreateBooking(req *models.CreateBookingRequest) (*models.Booking, error) {
	if req.UnitID == "" {
		return nil, models.NewValidationError("unit_id", "unit id is required")
	}
	if err := validateRange(req.CheckIn, req.CheckOut); err != nil {
		return nil, err
	}

	guestID, err := s.resolveGuest(req)
	if err != nil {
		return nil, err
	}

	unlock := s.lockUnit(req.UnitID)
	defer unlock()

	conflicts, err := s.findConflicts(req.UnitID, req.CheckIn, req.CheckOut, "")
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &models.UnavailableRangeError{
			UnitID:    req.UnitID,
			CheckIn:   req.CheckIn,
			CheckOut:  req.CheckOut,
			Conflicts: conflicts,
		}
	}

	status := models.BookingStatusPending
	if req.Confirmed {
		status = models.BookingStatusConfirmed
	}

	booking := &models.Booking{
		UnitID:      req.UnitID,
		PropertyID:  req.PropertyID,
		GuestID:     guestID,
		Status:      status,
		CheckIn:     req.CheckIn,
		CheckOut:    req.CheckOut,
		TotalAmount: req.TotalAmount,
		Currency:    req.Currency,
		Notes:       req.Notes,
	}
	if req.ExternalRef != nil && !req.ExternalRef.IsZero() {
		booking.ExternalSource = &req.ExternalRef.Source
		booking.ExternalID = &req.ExternalRef.ID
	}

	if err := s.bookingRepo.Create(booking); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"unit_id":    booking.UnitID,
		"status":     booking.Status,
		"check_in":   booking.CheckIn,
		"check_out":  booking.CheckOut,
	}).Info("Booking created")

	return booking, nil
}

// resolveGuest returns the guest id for a create request: an explicit id is
// verified, otherwise guest contact fields are upserted by identity.
func (s *BookingService) resolveGuest(req *models.CreateBookingRequest) (*string, error) {
	if req.GuestID != nil && *req.GuestID != "" {
		guest, err := s.guestRepo.GetByID(*req.GuestID)
		if err != nil {
			return nil, fmt.Errorf("failed to load guest: %w", err)
		}
		if guest == nil {
			return nil, models.NewNotFoundError("guest", *req.GuestID)
		}
		return &guest.ID, nil
	}

	if req.GuestName == nil || *req.GuestName == "" {
		return nil, models.NewValidationError("guest", "guest id or guest name is required")
	}

	guest, err := s.guestRepo.Upsert(*req.GuestName, req.GuestPhone, req.GuestEmail)
	if err != nil {
		return nil, err
	}
	return &guest.ID, nil
}

// ChangeBookingDates reschedules a booking in place, preserving its identity;
// external systems correlate on booking id, not on the date range.
func (s *BookingService) ChangeBookingDates(bookingID string, checkIn, checkOut time.Time) (*models.Booking, error) {
	if err := validateRange(checkIn, checkOut); err != nil {
		return nil, err
	}

	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, models.NewNotFoundError("booking", bookingID)
	}

	unlock := s.lockUnit(booking.UnitID)
	defer unlock()

	// A non-blocking booking (e.g. cancelled, still updated for audit
	// continuity) holds no range, so there is nothing to re-check.
	if booking.Blocking() {
		conflicts, err := s.findConflicts(booking.UnitID, checkIn, checkOut, booking.ID)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			return nil, &models.UnavailableRangeError{
				UnitID:    booking.UnitID,
				CheckIn:   checkIn,
				CheckOut:  checkOut,
				Conflicts: conflicts,
			}
		}
	}

	if err := s.bookingRepo.UpdateDates(booking.ID, checkIn, checkOut); err != nil {
		return nil, err
	}
	booking.CheckIn = checkIn
	booking.CheckOut = checkOut

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"unit_id":    booking.UnitID,
		"check_in":   checkIn,
		"check_out":  checkOut,
	}).Info("Booking rescheduled")

	return booking, nil
}

// CancelBooking transitions a booking to cancelled, recording the reason.
// Cancelling an already-cancelled booking is a no-op success.
func (s *BookingService) CancelBooking(bookingID string, reason *string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, models.NewNotFoundError("booking", bookingID)
	}

	if booking.Status == models.BookingStatusCancelled {
		return booking, nil
	}
	if !booking.CanBeCancelled() {
		return nil, &models.InvalidTransitionError{
			BookingID: booking.ID,
			From:      booking.Status,
			To:        models.BookingStatusCancelled,
		}
	}

	if err := s.bookingRepo.Cancel(booking.ID, reason); err != nil {
		return nil, err
	}

	now := time.Now()
	booking.Status = models.BookingStatusCancelled
	booking.CancellationReason = reason
	booking.CancelledAt = &now

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"unit_id":    booking.UnitID,
	}).Info("Booking cancelled")

	return booking, nil
}

// UpdateBooking applies a partial patch without touching status or dates.
func (s *BookingService) UpdateBooking(bookingID string, req *models.UpdateBookingRequest) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, models.NewNotFoundError("booking", bookingID)
	}

	if req.GuestID != nil {
		guest, err := s.guestRepo.GetByID(*req.GuestID)
		if err != nil {
			return nil, fmt.Errorf("failed to load guest: %w", err)
		}
		if guest == nil {
			return nil, models.NewNotFoundError("guest", *req.GuestID)
		}
		booking.GuestID = req.GuestID
	}
	if req.Notes != nil {
		booking.Notes = req.Notes
	}
	if req.TotalAmount != nil {
		booking.TotalAmount = *req.TotalAmount
	}
	if req.Currency != nil {
		booking.Currency = *req.Currency
	}

	if err := s.bookingRepo.Update(booking); err != nil {
		return nil, err
	}

	return booking, nil
}

// ConfirmBooking moves a pending booking to confirmed
func (s *BookingService) ConfirmBooking(bookingID string) (*models.Booking, error) {
	return s.transition(bookingID, models.BookingStatusConfirmed, func(b *models.Booking) error {
		return b.Confirm()
	})
}

// CompleteBooking marks a confirmed booking as completed
func (s *BookingService) CompleteBooking(bookingID string) (*models.Booking, error) {
	return s.transition(bookingID, models.BookingStatusCompleted, func(b *models.Booking) error {
		return b.MarkAsCompleted()
	})
}

// MarkNoShow marks a confirmed booking as no-show
func (s *BookingService) MarkNoShow(bookingID string) (*models.Booking, error) {
	return s.transition(bookingID, models.BookingStatusNoShow, func(b *models.Booking) error {
		return b.MarkAsNoShow()
	})
}

func (s *BookingService) transition(bookingID string, target models.BookingStatus, apply func(*models.Booking) error) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, models.NewNotFoundError("booking", bookingID)
	}

	from := booking.Status
	if err := apply(booking); err != nil {
		return nil, &models.InvalidTransitionError{BookingID: booking.ID, From: from, To: target}
	}
	if booking.Status == from {
		// Idempotent transition, nothing to persist
		return booking, nil
	}

	if err := s.bookingRepo.UpdateStatus(booking.ID, booking.Status); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"from":       from,
		"to":         booking.Status,
	}).Info("Booking status changed")

	return booking, nil
}

// GetBooking retrieves a booking by id
func (s *BookingService) GetBooking(bookingID string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, models.NewNotFoundError("booking", bookingID)
	}
	return booking, nil
}

// GetBookingByExternalRef retrieves the booking correlated with a third-party
// reference, or nil when the pair has never been seen.
func (s *BookingService) GetBookingByExternalRef(source, externalID string) (*models.Booking, error) {
	if source == "" || externalID == "" {
		return nil, models.NewValidationError("external_ref", "source and id are required")
	}
	return s.bookingRepo.GetByExternalRef(source, externalID)
}

// ListBookings retrieves bookings matching the filter
func (s *BookingService) ListBookings(filter models.BookingFilter) ([]models.Booking, error) {
	return s.bookingRepo.List(filter)
}

// DetachExternalRef drops the external correlation from a booking.
func (s *BookingService) DetachExternalRef(bookingID string) error {
	return s.bookingRepo.ClearExternalRef(bookingID)
}
