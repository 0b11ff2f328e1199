package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusDone      AppointmentStatus = "done"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// CanTransitionTo enumerates the appointment lifecycle. Done and Cancelled
// are terminal; cancellation is a status flip, never a row deletion.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case AppointmentStatusPending:
		return next == AppointmentStatusConfirmed || next == AppointmentStatusCancelled
	case AppointmentStatusConfirmed:
		return next == AppointmentStatusDone || next == AppointmentStatusCancelled
	default:
		return false
	}
}

type AppointmentOrigin string

const (
	OriginPublic AppointmentOrigin = "public"
	OriginStaff  AppointmentOrigin = "staff"
)

// Appointment is a committed [StartTime, EndTime) span for one master.
// Non-cancelled appointments for the same master never overlap, buffer
// included; the store enforces that with an exclusion constraint over the
// buffered span.
type Appointment struct {
	Base
	BusinessID    uuid.UUID         `db:"business_id" json:"business_id"`
	MasterID      uuid.UUID         `db:"master_id" json:"master_id"`
	ClientName    string            `db:"client_name" json:"client_name"`
	ClientPhone   string            `db:"client_phone" json:"client_phone"`
	StartTime     time.Time         `db:"start_time" json:"start_time"`
	EndTime       time.Time         `db:"end_time" json:"end_time"`
	BufferMinutes int               `db:"buffer_minutes" json:"buffer_minutes"`
	Status        AppointmentStatus `db:"status" json:"status"`
	Origin        AppointmentOrigin `db:"origin" json:"origin"`
	Notes         string            `db:"notes" json:"notes,omitempty"`
	CancelReason  *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	SeriesID      *uuid.UUID        `db:"series_id" json:"series_id,omitempty"`
}

type RecurrenceFreq string

const (
	RecurrenceDaily    RecurrenceFreq = "daily"
	RecurrenceWeekly   RecurrenceFreq = "weekly"
	RecurrenceBiweekly RecurrenceFreq = "biweekly"
	RecurrenceMonthly  RecurrenceFreq = "monthly"
)

// RecurrencePattern bounds a series by count or until-date, whichever comes
// first.
type RecurrencePattern struct {
	Freq  RecurrenceFreq `json:"freq" binding:"required,oneof=daily weekly biweekly monthly"`
	Count int            `json:"count" binding:"omitempty,min=1,max=52"`
	Until string         `json:"until" binding:"omitempty,datetime=2006-01-02"`
}

type CreateAppointmentRequest struct {
	MasterID        uuid.UUID `json:"master_id" binding:"required"`
	ServiceIDs      []string  `json:"service_ids" binding:"omitempty,min=1,dive,uuid"`
	ClientName      string    `json:"client_name" binding:"required,max=255"`
	ClientPhone     string    `json:"client_phone" binding:"required,max=32"`
	StartLocal      string    `json:"start_local" binding:"required"` // "2006-01-02T15:04" in tenant zone
	DurationMinutes int       `json:"duration_minutes" binding:"omitempty,min=5,max=480"`
	Notes           string    `json:"notes" binding:"max=1000"`
}

type CreateSeriesRequest struct {
	CreateAppointmentRequest
	Recurrence RecurrencePattern `json:"recurrence" binding:"required"`
}

type UpdateAppointmentStatusRequest struct {
	Status       AppointmentStatus `json:"status" binding:"required,oneof=pending confirmed done cancelled"`
	CancelReason string            `json:"cancel_reason" binding:"max=1000"`
}

type AppointmentFilters struct {
	MasterID uuid.UUID
	Status   AppointmentStatus
	From     time.Time
	To       time.Time
}

// SeriesOutcome reports one occurrence of an expanded recurring series. A
// skipped occurrence carries the conflict reason; the rest of the series is
// unaffected.
type SeriesOutcome struct {
	StartTime   time.Time    `json:"start_time"`
	Appointment *Appointment `json:"appointment,omitempty"`
	Skipped     bool         `json:"skipped"`
	Reason      string       `json:"reason,omitempty"`
}
