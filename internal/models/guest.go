package models

import "time"

// Guest holds the contact data of the person staying. Guests arrive from
// direct bookings and from channel payloads; identity matching is best-effort
// (name plus phone/email), not unique-keyed.
type Guest struct {
	ID        string    `json:"id" db:"id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	Email     *string   `json:"email,omitempty" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
