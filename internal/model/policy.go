package model

import (
	"encoding/json"
	"time"
)

// Booking-policy defaults, applied whenever the stored blob is missing a
// field or carries a value outside the allowed range.
const (
	DefaultSlotStepMinutes      = 30
	DefaultBufferMinutes        = 0
	DefaultMinAdvanceMinutes    = 60
	DefaultMaxDaysAhead         = 60
	DefaultTimezone             = "Europe/Kyiv"
	DefaultChangeMinHoursBefore = 3
)

// BookingPolicy is the per-tenant configuration that governs availability
// computation and the change-request gate. It is always fully populated:
// ParseBookingPolicy never returns a zero or partially-valid policy.
type BookingPolicy struct {
	SlotStepMinutes      int    `json:"slot_step_minutes"`
	BufferMinutes        int    `json:"buffer_minutes"`
	MinAdvanceMinutes    int    `json:"min_advance_minutes"`
	MaxDaysAhead         int    `json:"max_days_ahead"`
	Timezone             string `json:"timezone"`
	AutoConfirm          bool   `json:"auto_confirm"`
	RequireApproval      *bool  `json:"require_approval"`
	ChangeMinHoursBefore int    `json:"change_min_hours_before"`
}

// DefaultBookingPolicy returns the platform defaults.
func DefaultBookingPolicy() BookingPolicy {
	return BookingPolicy{
		SlotStepMinutes:      DefaultSlotStepMinutes,
		BufferMinutes:        DefaultBufferMinutes,
		MinAdvanceMinutes:    DefaultMinAdvanceMinutes,
		MaxDaysAhead:         DefaultMaxDaysAhead,
		Timezone:             DefaultTimezone,
		ChangeMinHoursBefore: DefaultChangeMinHoursBefore,
	}
}

// ParseBookingPolicy reads a persisted policy blob defensively. Any field
// that is absent, malformed or out of range falls back to its default so a
// bad blob can never break availability or booking for the whole tenant.
func ParseBookingPolicy(raw json.RawMessage) BookingPolicy {
	p := DefaultBookingPolicy()
	if len(raw) == 0 {
		return p
	}

	var in BookingPolicy
	if err := json.Unmarshal(raw, &in); err != nil {
		return p
	}

	switch in.SlotStepMinutes {
	case 15, 30, 60:
		p.SlotStepMinutes = in.SlotStepMinutes
	}
	if in.BufferMinutes > 0 && in.BufferMinutes <= 240 {
		p.BufferMinutes = in.BufferMinutes
	}
	if in.MinAdvanceMinutes > 0 {
		p.MinAdvanceMinutes = in.MinAdvanceMinutes
	}
	if in.MaxDaysAhead > 0 && in.MaxDaysAhead <= 365 {
		p.MaxDaysAhead = in.MaxDaysAhead
	}
	if in.Timezone != "" {
		if _, err := time.LoadLocation(in.Timezone); err == nil {
			p.Timezone = in.Timezone
		}
	}
	p.AutoConfirm = in.AutoConfirm
	p.RequireApproval = in.RequireApproval
	if in.ChangeMinHoursBefore > 0 {
		p.ChangeMinHoursBefore = in.ChangeMinHoursBefore
	}
	return p
}

// Location resolves the tenant time zone. The zone name was validated at
// parse time, so a load failure here only happens if the tz database changed
// under us; fall back to the platform default rather than UTC.
func (p BookingPolicy) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		loc, _ = time.LoadLocation(DefaultTimezone)
	}
	return loc
}

// NeedsApproval reports whether change requests require an explicit
// master/tenant decision. Defaults to true when unset.
func (p BookingPolicy) NeedsApproval() bool {
	return p.RequireApproval == nil || *p.RequireApproval
}

// Buffer returns the buffer as a duration.
func (p BookingPolicy) Buffer() time.Duration {
	return time.Duration(p.BufferMinutes) * time.Minute
}
