package model

import (
	"time"

	"github.com/google/uuid"
)

// AccessToken is the stored side of an appointment capability: the random
// secret itself is handed to the client once and never persisted. Lookup is
// by SHA-256 digest, verification by bcrypt hash, revocation by marker.
type AccessToken struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	BusinessID    uuid.UUID  `db:"business_id" json:"business_id"`
	Lookup        string     `db:"lookup" json:"-"`
	SecretHash    string     `db:"secret_hash" json:"-"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	RevokedAt     *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}

// Revoked reports whether the capability has been invalidated.
func (t *AccessToken) Revoked() bool {
	return t.RevokedAt != nil
}
