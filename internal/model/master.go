package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MasterStatus string

const (
	MasterStatusActive   MasterStatus = "active"
	MasterStatusInactive MasterStatus = "inactive"
)

// Master is a bookable service provider belonging to exactly one business.
// Its working hours live in three persisted blobs: the weekly recurring
// pattern, date-specific overrides and absolute blocked periods.
type Master struct {
	Base
	BusinessID  uuid.UUID       `db:"business_id" json:"business_id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description,omitempty"`
	Status      MasterStatus    `db:"status" json:"status"`
	ScheduleRaw json.RawMessage `db:"schedule" json:"schedule,omitempty"`
	OverrideRaw json.RawMessage `db:"overrides" json:"overrides,omitempty"`
	BlockedRaw  json.RawMessage `db:"blocked_periods" json:"blocked_periods,omitempty"`
}

// DayHours is one weekday's recurring availability window.
type DayHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"` // "HH:MM" wall clock
	End     string `json:"end"`
}

// WeeklySchedule maps time.Weekday (0=Sunday) to its recurring entry.
type WeeklySchedule map[time.Weekday]DayHours

// DateOverride replaces a single date's recurring entry entirely. A closed
// override yields no availability for that date regardless of the weekday
// pattern.
type DateOverride struct {
	Closed bool   `json:"closed"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

// BlockedPeriod is an absolute span that is never bookable (vacation,
// maintenance). Instants, not wall clock: unaffected by DST shifts.
type BlockedPeriod struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Reason string    `json:"reason,omitempty"`
}

// weekly schedule blob: {"mon": {"enabled":true,"start":"09:00","end":"18:00"}, ...}
var weekdayKeys = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Schedule parses the weekly pattern blob. Unknown keys and malformed
// entries are dropped; a missing or unparsable blob yields an empty (fully
// closed) schedule rather than an error.
func (m *Master) Schedule() WeeklySchedule {
	sched := make(WeeklySchedule, 7)
	if len(m.ScheduleRaw) == 0 {
		return sched
	}
	var in map[string]DayHours
	if err := json.Unmarshal(m.ScheduleRaw, &in); err != nil {
		return sched
	}
	for key, hours := range in {
		day, ok := weekdayKeys[key]
		if !ok {
			continue
		}
		sched[day] = hours
	}
	return sched
}

// Overrides parses the date-override blob, keyed by "2006-01-02". Entries
// with unparsable dates are dropped.
func (m *Master) Overrides() map[string]DateOverride {
	out := make(map[string]DateOverride)
	if len(m.OverrideRaw) == 0 {
		return out
	}
	var in map[string]DateOverride
	if err := json.Unmarshal(m.OverrideRaw, &in); err != nil {
		return out
	}
	for date, ov := range in {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			continue
		}
		out[date] = ov
	}
	return out
}

// Blocked parses the blocked-period blob. Spans with end <= start are
// dropped.
func (m *Master) Blocked() []BlockedPeriod {
	if len(m.BlockedRaw) == 0 {
		return nil
	}
	var in []BlockedPeriod
	if err := json.Unmarshal(m.BlockedRaw, &in); err != nil {
		return nil
	}
	out := in[:0]
	for _, bp := range in {
		if !bp.End.After(bp.Start) {
			continue
		}
		out = append(out, bp)
	}
	return out
}

type CreateMasterRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description" binding:"max=2000"`
}

// UpdateMasterRequest carries full replacements: omitted fields clear rather
// than keep. Setting status to inactive hides the master from booking and
// availability without touching existing appointments.
type UpdateMasterRequest struct {
	Name        string       `json:"name" binding:"required,max=255"`
	Description string       `json:"description" binding:"max=2000"`
	Status      MasterStatus `json:"status" binding:"required,oneof=active inactive"`
}

type UpdateMasterScheduleRequest struct {
	Schedule  map[string]DayHours     `json:"schedule"`
	Overrides map[string]DateOverride `json:"overrides"`
	Blocked   []BlockedPeriod         `json:"blocked_periods"`
}
