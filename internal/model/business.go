package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

type BusinessStatus string

const (
	BusinessStatusActive   BusinessStatus = "active"
	BusinessStatusInactive BusinessStatus = "inactive"
)

// Business is the tenant: it owns masters, services and appointments and
// carries the booking-policy blob that governs slot computation.
type Business struct {
	Base
	Name      string          `db:"name" json:"name"`
	Phone     string          `db:"phone" json:"phone,omitempty"`
	Status    BusinessStatus  `db:"status" json:"status"`
	PolicyRaw json.RawMessage `db:"booking_policy" json:"booking_policy,omitempty"`
}

// Policy parses the stored booking-policy blob. Malformed or missing fields
// never fail the read; they fall back to defaults.
func (b *Business) Policy() BookingPolicy {
	return ParseBookingPolicy(b.PolicyRaw)
}

type CreateBusinessRequest struct {
	Name   string          `json:"name" binding:"required,max=255"`
	Phone  string          `json:"phone" binding:"max=32"`
	Policy json.RawMessage `json:"booking_policy"`
}

type UpdateBusinessPolicyRequest struct {
	SlotStepMinutes      *int    `json:"slot_step_minutes"`
	BufferMinutes        *int    `json:"buffer_minutes"`
	MinAdvanceMinutes    *int    `json:"min_advance_minutes"`
	MaxDaysAhead         *int    `json:"max_days_ahead"`
	Timezone             *string `json:"timezone" binding:"omitempty,iana_tz"`
	AutoConfirm          *bool   `json:"auto_confirm"`
	RequireApproval      *bool   `json:"require_approval"`
	ChangeMinHoursBefore *int    `json:"change_min_hours_before"`
}

type CreateServiceRequest struct {
	Name     string  `json:"name" binding:"required,max=255"`
	Duration int     `json:"duration" binding:"required,min=5,max=1440"`
	Price    float64 `json:"price" binding:"min=0"`
}

// OfferedService is a bookable service belonging to a business. The requested
// services determine the appointment duration.
type OfferedService struct {
	Base
	BusinessID uuid.UUID `db:"business_id" json:"business_id"`
	Name       string    `db:"name" json:"name"`
	Duration   int       `db:"duration" json:"duration"` // in minutes
	Price      float64   `db:"price" json:"price"`
	Active     bool      `db:"active" json:"active"`
}
