package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC)
}

func TestBooking_Overlaps(t *testing.T) {
	booking := &Booking{CheckIn: day(10), CheckOut: day(14)}

	assert.True(t, booking.Overlaps(day(12), day(16)))
	assert.True(t, booking.Overlaps(day(8), day(11)))
	assert.True(t, booking.Overlaps(day(11), day(12)))
	assert.True(t, booking.Overlaps(day(8), day(20)))

	// Half-open ranges: back-to-back stays share a day without overlapping
	assert.False(t, booking.Overlaps(day(14), day(18)))
	assert.False(t, booking.Overlaps(day(6), day(10)))
}

func TestBookingStatus_Blocking(t *testing.T) {
	assert.True(t, (&Booking{Status: BookingStatusPending}).Blocking())
	assert.True(t, (&Booking{Status: BookingStatusConfirmed}).Blocking())
	assert.False(t, (&Booking{Status: BookingStatusCancelled}).Blocking())
	assert.False(t, (&Booking{Status: BookingStatusCompleted}).Blocking())
	assert.False(t, (&Booking{Status: BookingStatusNoShow}).Blocking())
}

func TestBooking_CancelIdempotent(t *testing.T) {
	reason := "first"
	booking := &Booking{Status: BookingStatusConfirmed}

	require.NoError(t, booking.Cancel(&reason))
	assert.Equal(t, BookingStatusCancelled, booking.Status)
	firstCancelledAt := booking.CancelledAt

	// Second cancel keeps the original record untouched
	other := "second"
	require.NoError(t, booking.Cancel(&other))
	assert.Equal(t, &reason, booking.CancellationReason)
	assert.Equal(t, firstCancelledAt, booking.CancelledAt)
}

func TestBooking_TerminalTransitions(t *testing.T) {
	completed := &Booking{Status: BookingStatusCompleted}
	assert.Error(t, completed.Cancel(nil))
	assert.Error(t, completed.Confirm())
	assert.Error(t, completed.MarkAsNoShow())

	pending := &Booking{Status: BookingStatusPending}
	assert.Error(t, pending.MarkAsCompleted())
	require.NoError(t, pending.Confirm())
	require.NoError(t, pending.MarkAsCompleted())
}
