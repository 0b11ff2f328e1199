package model

import (
	"time"

	"github.com/google/uuid"
)

type ChangeRequestType string

const (
	ChangeRequestReschedule ChangeRequestType = "RESCHEDULE"
	ChangeRequestCancel     ChangeRequestType = "CANCEL"
)

type ChangeRequestStatus string

const (
	ChangeRequestPending   ChangeRequestStatus = "PENDING"
	ChangeRequestApproved  ChangeRequestStatus = "APPROVED"
	ChangeRequestRejected  ChangeRequestStatus = "REJECTED"
	ChangeRequestWithdrawn ChangeRequestStatus = "WITHDRAWN"
)

// IsTerminal reports whether the request can no longer change state.
func (s ChangeRequestStatus) IsTerminal() bool {
	return s != ChangeRequestPending
}

// ChangeRequest is a client-initiated reschedule or cancellation proposal
// against one appointment, created through a capability token and decided by
// the master/tenant.
type ChangeRequest struct {
	Base
	AppointmentID uuid.UUID           `db:"appointment_id" json:"appointment_id"`
	BusinessID    uuid.UUID           `db:"business_id" json:"business_id"`
	Type          ChangeRequestType   `db:"type" json:"type"`
	Status        ChangeRequestStatus `db:"status" json:"status"`
	NewStartTime  *time.Time          `db:"new_start_time" json:"new_start_time,omitempty"`
	NewEndTime    *time.Time          `db:"new_end_time" json:"new_end_time,omitempty"`
	ClientNote    string              `db:"client_note" json:"client_note,omitempty"`
	DecisionNote  *string             `db:"decision_note" json:"decision_note,omitempty"`
	DecidedAt     *time.Time          `db:"decided_at" json:"decided_at,omitempty"`
}

type CreateChangeRequestRequest struct {
	Type          ChangeRequestType `json:"type" binding:"required,oneof=RESCHEDULE CANCEL"`
	NewStartLocal string            `json:"new_start_local" binding:"required_if=Type RESCHEDULE"`
	ClientNote    string            `json:"client_note" binding:"max=1000"`
}

type DecideChangeRequestRequest struct {
	Approve      bool   `json:"approve"`
	DecisionNote string `json:"decision_note" binding:"max=1000"`
}
