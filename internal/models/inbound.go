package models

import "time"

// InboundActionType is the canonical action reported by an external system.
type InboundActionType string

const (
	ActionCreate InboundActionType = "create"
	ActionUpdate InboundActionType = "update"
	ActionCancel InboundActionType = "cancel"
	ActionDelete InboundActionType = "delete"
)

// InboundKind distinguishes what an inbound action targets.
type InboundKind string

const (
	// KindBooking targets a reservation (webhook events).
	KindBooking InboundKind = "booking"
	// KindUnit targets inventory (feed offers, which carry no stay range).
	KindUnit InboundKind = "unit"
)

// InboundAction is the one canonical record every externally-shaped payload
// is normalized into. It lives only for the duration of processing a single
// event and is never persisted.
type InboundAction struct {
	Kind        InboundKind
	Action      InboundActionType
	ExternalRef ExternalRef

	// Booking fields
	CheckIn            time.Time
	CheckOut           time.Time
	GuestName          string
	GuestPhone         *string
	GuestEmail         *string
	Notes              *string
	Amount             *float64
	Currency           *string
	CancellationReason *string
	PropertyRef        *ExternalRef
	UnitRef            *ExternalRef

	// Unit payload (feed offers)
	Unit *UnitPayload
}

// UnitPayload carries the inventory fields of a feed offer.
type UnitPayload struct {
	Title        string
	PropertyRef  *ExternalRef
	Price        *float64
	Currency     *string
	Location     *string
	Amenities    []string
	Images       []string
	MinStayDays  *int
	Deposit      *float64
	CheckInFrom  *string // HH:mm
	CheckOutTill *string // HH:mm
}

// OutcomeType classifies the result of applying one InboundAction.
type OutcomeType string

const (
	OutcomeCreated  OutcomeType = "CREATED"
	OutcomeUpdated  OutcomeType = "UPDATED"
	OutcomeCanceled OutcomeType = "CANCELED"
	OutcomeDeleted  OutcomeType = "DELETED"
	OutcomeConflict OutcomeType = "CONFLICT"
	OutcomeIgnored  OutcomeType = "IGNORED"
	OutcomeError    OutcomeType = "ERROR"
)

// BookingConflict describes one booking blocking the requested range.
type BookingConflict struct {
	BookingID string    `json:"booking_id"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
}

// ReconciliationOutcome is the result of applying one inbound action.
type ReconciliationOutcome struct {
	Outcome    OutcomeType       `json:"outcome"`
	BookingID  *string           `json:"booking_id,omitempty"`
	UnitID     *string           `json:"unit_id,omitempty"`
	PropertyID *string           `json:"property_id,omitempty"`
	Reason     *string           `json:"reason,omitempty"`
	Conflicts  []BookingConflict `json:"conflicts,omitempty"`
}
