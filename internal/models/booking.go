package models

import (
	"errors"
	"time"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusNoShow    BookingStatus = "no_show"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted || s == BookingStatusNoShow
}

// Booking represents a reservation of a rental unit for a date range.
// CheckIn/CheckOut form a half-open interval [CheckIn, CheckOut).
type Booking struct {
	ID                 string        `json:"id" db:"id"`
	UnitID             string        `json:"unit_id" db:"unit_id"`
	PropertyID         *string       `json:"property_id,omitempty" db:"property_id"`
	GuestID            *string       `json:"guest_id,omitempty" db:"guest_id"`
	Status             BookingStatus `json:"status" db:"status"`
	CheckIn            time.Time     `json:"check_in" db:"check_in"`
	CheckOut           time.Time     `json:"check_out" db:"check_out"`
	TotalAmount        float64       `json:"total_amount" db:"total_amount"`
	Currency           string        `json:"currency" db:"currency"`
	Notes              *string       `json:"notes,omitempty" db:"notes"`
	CancellationReason *string       `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	ExternalSource     *string       `json:"external_source,omitempty" db:"external_source"`
	ExternalID         *string       `json:"external_id,omitempty" db:"external_id"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

// Blocking reports whether the booking holds its date range against other
// bookings on the same unit.
func (b *Booking) Blocking() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

// Overlaps reports whether [checkIn, checkOut) intersects the booking's range.
func (b *Booking) Overlaps(checkIn, checkOut time.Time) bool {
	return b.CheckIn.Before(checkOut) && checkIn.Before(b.CheckOut)
}

// ExternalRef returns the booking's external reference, if any.
func (b *Booking) ExternalRef() *ExternalRef {
	if b.ExternalSource == nil || b.ExternalID == nil {
		return nil
	}
	return &ExternalRef{Source: *b.ExternalSource, ID: *b.ExternalID}
}

// CanBeCancelled checks if the booking can transition to cancelled
func (b *Booking) CanBeCancelled() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

// Cancel cancels the booking, recording the reason.
// Cancelling an already-cancelled booking is a no-op.
func (b *Booking) Cancel(reason *string) error {
	if b.Status == BookingStatusCancelled {
		return nil
	}
	if !b.CanBeCancelled() {
		return errors.New("booking cannot be cancelled in status " + string(b.Status))
	}

	now := time.Now()
	b.Status = BookingStatusCancelled
	b.CancelledAt = &now
	b.CancellationReason = reason
	b.UpdatedAt = now

	return nil
}

// Confirm moves a pending booking to confirmed
func (b *Booking) Confirm() error {
	if b.Status == BookingStatusConfirmed {
		return nil
	}
	if b.Status != BookingStatusPending {
		return errors.New("booking cannot be confirmed in status " + string(b.Status))
	}
	b.Status = BookingStatusConfirmed
	b.UpdatedAt = time.Now()
	return nil
}

// MarkAsCompleted marks a confirmed booking as completed
func (b *Booking) MarkAsCompleted() error {
	if b.Status != BookingStatusConfirmed {
		return errors.New("booking cannot be completed in status " + string(b.Status))
	}
	b.Status = BookingStatusCompleted
	b.UpdatedAt = time.Now()
	return nil
}

// MarkAsNoShow marks a confirmed booking as no-show
func (b *Booking) MarkAsNoShow() error {
	if b.Status != BookingStatusConfirmed {
		return errors.New("booking cannot be marked no-show in status " + string(b.Status))
	}
	b.Status = BookingStatusNoShow
	b.UpdatedAt = time.Now()
	return nil
}

// CreateBookingRequest represents the request to create a booking
type CreateBookingRequest struct {
	UnitID      string       `json:"unit_id" binding:"required"`
	PropertyID  *string      `json:"property_id,omitempty"`
	GuestID     *string      `json:"guest_id,omitempty"`
	GuestName   *string      `json:"guest_name,omitempty"`
	GuestPhone  *string      `json:"guest_phone,omitempty"`
	GuestEmail  *string      `json:"guest_email,omitempty"`
	CheckIn     time.Time    `json:"check_in" binding:"required"`
	CheckOut    time.Time    `json:"check_out" binding:"required"`
	TotalAmount float64      `json:"total_amount"`
	Currency    string       `json:"currency"`
	Notes       *string      `json:"notes,omitempty"`
	Confirmed   bool         `json:"confirmed"` // caller asserts the booking was already confirmed upstream
	ExternalRef *ExternalRef `json:"external_ref,omitempty"`
}

// CancelBookingRequest represents the request to cancel a booking
type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// ChangeBookingDatesRequest represents a reschedule request
type ChangeBookingDatesRequest struct {
	CheckIn  time.Time `json:"check_in" binding:"required"`
	CheckOut time.Time `json:"check_out" binding:"required"`
}

// UpdateBookingRequest is a partial patch; nil fields are left untouched.
// Status and dates are never modified through this path.
type UpdateBookingRequest struct {
	GuestID     *string  `json:"guest_id,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
	TotalAmount *float64 `json:"total_amount,omitempty"`
	Currency    *string  `json:"currency,omitempty"`
}

// BookingFilter narrows ListBookings results
type BookingFilter struct {
	UnitID     string
	PropertyID string
	Status     BookingStatus
	From       *time.Time
	To         *time.Time
}
