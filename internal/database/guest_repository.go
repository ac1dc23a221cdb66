package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/staysync/booking-backend/internal/models"
)

// GuestRepository handles database operations for the guests table
type GuestRepository struct {
	db DB
}

// NewGuestRepository creates a new GuestRepository
func NewGuestRepository(db DB) *GuestRepository {
	return &GuestRepository{db: db}
}

// Create creates a new guest
func (r *GuestRepository) Create(guest *models.Guest) error {
	query := `
		INSERT INTO guests (id, full_name, phone, email)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	if guest.ID == "" {
		guest.ID = uuid.New().String()
	}

	err := r.db.QueryRow(query, guest.ID, guest.FullName, guest.Phone, guest.Email).
		Scan(&guest.CreatedAt, &guest.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create guest: %w", err)
	}

	return nil
}

// GetByID retrieves a guest by ID. Returns nil when no row matches.
func (r *GuestRepository) GetByID(guestID string) (*models.Guest, error) {
	query := `
		SELECT id, full_name, phone, email, created_at, updated_at
		FROM guests
		WHERE id = $1
	`

	guest, err := r.scanGuest(r.db.QueryRow(query, guestID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return guest, err
}

// FindByIdentity looks for an existing guest with the same name and at least
// one matching contact field. Identity matching is best-effort; guests are
// not unique-keyed, so the oldest match wins.
func (r *GuestRepository) FindByIdentity(fullName string, phone, email *string) (*models.Guest, error) {
	query := `
		SELECT id, full_name, phone, email, created_at, updated_at
		FROM guests
		WHERE full_name = $1
		  AND (($2::text IS NOT NULL AND phone = $2) OR ($3::text IS NOT NULL AND email = $3))
		ORDER BY created_at
		LIMIT 1
	`

	guest, err := r.scanGuest(r.db.QueryRow(query, fullName, phone, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return guest, err
}

// Upsert reuses a guest matched by identity or creates a new one.
func (r *GuestRepository) Upsert(fullName string, phone, email *string) (*models.Guest, error) {
	if phone != nil || email != nil {
		existing, err := r.FindByIdentity(fullName, phone, email)
		if err != nil {
			return nil, fmt.Errorf("failed to match guest identity: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	guest := &models.Guest{FullName: fullName, Phone: phone, Email: email}
	if err := r.Create(guest); err != nil {
		return nil, err
	}
	return guest, nil
}

func (r *GuestRepository) scanGuest(row scanner) (*models.Guest, error) {
	guest := &models.Guest{}
	var phone sql.NullString
	var email sql.NullString

	err := row.Scan(&guest.ID, &guest.FullName, &phone, &email, &guest.CreatedAt, &guest.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if phone.Valid {
		guest.Phone = &phone.String
	}
	if email.Valid {
		guest.Email = &email.String
	}

	return guest, nil
}
