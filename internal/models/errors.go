package models

import (
	"fmt"
	"time"
)

// ValidationError rejects malformed input before any store access.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// UnavailableRangeError means applying the operation would violate the
// per-unit overlap invariant. It is a business failure, not a system fault.
type UnavailableRangeError struct {
	UnitID    string
	CheckIn   time.Time
	CheckOut  time.Time
	Conflicts []BookingConflict
}

func (e *UnavailableRangeError) Error() string {
	return fmt.Sprintf("unit %s is not available for [%s, %s): %d conflicting booking(s)",
		e.UnitID, e.CheckIn.Format("2006-01-02"), e.CheckOut.Format("2006-01-02"), len(e.Conflicts))
}

// NotFoundError means a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NewNotFoundError builds a NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// InvalidTransitionError means the booking state machine forbids the move.
type InvalidTransitionError struct {
	BookingID string
	From      BookingStatus
	To        BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("booking %s cannot move from %s to %s", e.BookingID, e.From, e.To)
}

// MappingError means an external payload could not be normalized into an
// InboundAction. Unknown action codes land here so that a provider-table gap
// surfaces as ERROR instead of silently creating bookings.
type MappingError struct {
	Provider string
	Message  string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}
