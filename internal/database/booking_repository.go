package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/staysync/booking-backend/internal/models"
)

// bookingColumns is the canonical column list scanned by scanBooking.
const bookingColumns = `id, unit_id, property_id, guest_id, status,
	   check_in, check_out, total_amount, currency, notes,
	   cancellation_reason, cancelled_at, external_source, external_id,
	   created_at, updated_at`

// BookingRepository handles database operations for the bookings table.
// It owns the canonical store and the (external_source, external_id) index.
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create creates a new booking
func (r *BookingRepository) Create(booking *models.Booking) error {
	query := `
		INSERT INTO bookings (
			id, unit_id, property_id, guest_id, status,
			check_in, check_out, total_amount, currency, notes,
			external_source, external_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		RETURNING created_at, updated_at
	`

	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}

	err := r.db.QueryRow(
		query,
		booking.ID, booking.UnitID, booking.PropertyID, booking.GuestID, booking.Status,
		booking.CheckIn, booking.CheckOut, booking.TotalAmount, booking.Currency, booking.Notes,
		booking.ExternalSource, booking.ExternalID,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

// GetByID retrieves a booking by ID. Returns nil when no row matches.
func (r *BookingRepository) GetByID(bookingID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := r.scanBooking(r.db.QueryRow(query, bookingID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return booking, err
}

// GetByExternalRef retrieves the booking correlated with a third-party
// (source, id) pair. Returns nil when the pair has never been seen.
func (r *BookingRepository) GetByExternalRef(source, externalID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE external_source = $1 AND external_id = $2`

	booking, err := r.scanBooking(r.db.QueryRow(query, source, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return booking, err
}

// FindOverlapping returns the blocking bookings (pending or confirmed) on a
// unit whose [check_in, check_out) intersects the requested half-open range.
// excludeBookingID, when non-empty, removes one booking from consideration so
// a reschedule does not collide with itself.
func (r *BookingRepository) FindOverlapping(unitID string, checkIn, checkOut time.Time, excludeBookingID string) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE unit_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND check_in < $3
		  AND $2 < check_out
		  AND ($4 = '' OR id != $4)
		ORDER BY check_in`

	rows, err := r.db.Query(query, unitID, checkIn, checkOut, excludeBookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping bookings: %w", err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// List retrieves bookings matching the filter, newest first.
func (r *BookingRepository) List(filter models.BookingFilter) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE ($1 = '' OR unit_id = $1)
		  AND ($2 = '' OR property_id = $2)
		  AND ($3 = '' OR status = $3)
		  AND ($4::timestamptz IS NULL OR check_out > $4)
		  AND ($5::timestamptz IS NULL OR check_in < $5)
		ORDER BY created_at DESC`

	rows, err := r.db.Query(query, filter.UnitID, filter.PropertyID, string(filter.Status), filter.From, filter.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// Update persists the mutable fields of a booking
func (r *BookingRepository) Update(booking *models.Booking) error {
	query := `
		UPDATE bookings
		SET guest_id = $2, status = $3, check_in = $4, check_out = $5,
			total_amount = $6, currency = $7, notes = $8,
			cancellation_reason = $9, cancelled_at = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		booking.ID, booking.GuestID, booking.Status, booking.CheckIn, booking.CheckOut,
		booking.TotalAmount, booking.Currency, booking.Notes,
		booking.CancellationReason, booking.CancelledAt,
	).Scan(&booking.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.NewNotFoundError("booking", booking.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	return nil
}

// UpdateDates changes the stay range in place, preserving booking identity.
func (r *BookingRepository) UpdateDates(bookingID string, checkIn, checkOut time.Time) error {
	query := `
		UPDATE bookings
		SET check_in = $2, check_out = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, bookingID, checkIn, checkOut)
	if err != nil {
		return fmt.Errorf("failed to update booking dates: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.NewNotFoundError("booking", bookingID)
	}

	return nil
}

// UpdateStatus updates the booking status
func (r *BookingRepository) UpdateStatus(bookingID string, status models.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, bookingID, status)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.NewNotFoundError("booking", bookingID)
	}

	return nil
}

// Cancel cancels a booking, recording the reason
func (r *BookingRepository) Cancel(bookingID string, reason *string) error {
	query := `
		UPDATE bookings
		SET status = 'cancelled',
			cancellation_reason = $2,
			cancelled_at = NOW(),
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, bookingID, reason)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.NewNotFoundError("booking", bookingID)
	}

	return nil
}

// ClearExternalRef drops the (source, id) correlation from a booking so a
// replayed external id no longer targets it. Used by the DELETE action;
// CANCEL keeps the mapping for audit continuity.
func (r *BookingRepository) ClearExternalRef(bookingID string) error {
	query := `
		UPDATE bookings
		SET external_source = NULL, external_id = NULL, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, bookingID)
	if err != nil {
		return fmt.Errorf("failed to clear external ref: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.NewNotFoundError("booking", bookingID)
	}

	return nil
}

// CompletePastStays marks confirmed bookings whose stay ended before the
// cutoff as completed, returning how many rows changed.
func (r *BookingRepository) CompletePastStays(cutoff time.Time) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'completed', updated_at = NOW()
		WHERE status = 'confirmed'
		  AND check_out <= $1
	`

	result, err := r.db.Exec(query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to complete past stays: %w", err)
	}

	return result.RowsAffected()
}

// scanBooking scans a single booking
func (r *BookingRepository) scanBooking(row scanner) (*models.Booking, error) {
	booking := &models.Booking{}
	var propertyID sql.NullString
	var guestID sql.NullString
	var notes sql.NullString
	var cancellationReason sql.NullString
	var cancelledAt sql.NullTime
	var externalSource sql.NullString
	var externalID sql.NullString

	err := row.Scan(
		&booking.ID, &booking.UnitID, &propertyID, &guestID, &booking.Status,
		&booking.CheckIn, &booking.CheckOut, &booking.TotalAmount, &booking.Currency, &notes,
		&cancellationReason, &cancelledAt, &externalSource, &externalID,
		&booking.CreatedAt, &booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if propertyID.Valid {
		booking.PropertyID = &propertyID.String
	}
	if guestID.Valid {
		booking.GuestID = &guestID.String
	}
	if notes.Valid {
		booking.Notes = &notes.String
	}
	if cancellationReason.Valid {
		booking.CancellationReason = &cancellationReason.String
	}
	if cancelledAt.Valid {
		booking.CancelledAt = &cancelledAt.Time
	}
	if externalSource.Valid {
		booking.ExternalSource = &externalSource.String
	}
	if externalID.Valid {
		booking.ExternalID = &externalID.String
	}

	return booking, nil
}

// scanBookings scans multiple bookings from rows
func (r *BookingRepository) scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	bookings := []models.Booking{}

	for rows.Next() {
		booking, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}

	return bookings, rows.Err()
}
