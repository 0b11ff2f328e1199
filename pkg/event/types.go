package event

import (
	"time"

	"github.com/google/uuid"
)

// Type names the notification-worthy facts the core emits. Delivery
// (push, Telegram, email) belongs to the external dispatcher consuming the
// broker; the core only records that the fact happened.
type Type string

const (
	TypeAppointmentBooked      Type = "appointment.booked"
	TypeAppointmentConfirmed   Type = "appointment.confirmed"
	TypeAppointmentCancelled   Type = "appointment.cancelled"
	TypeAppointmentRescheduled Type = "appointment.rescheduled"
	TypeChangeRequestCreated   Type = "change_request.created"
	TypeChangeRequestDecided   Type = "change_request.decided"
)

// AppointmentEvent is the payload shared by all appointment.* events.
type AppointmentEvent struct {
	BusinessID    uuid.UUID `json:"business_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	MasterID      uuid.UUID `json:"master_id"`
	ClientName    string    `json:"client_name"`
	StartTime     time.Time `json:"start_time"`
}

// ChangeRequestEvent is the payload for change_request.* events.
type ChangeRequestEvent struct {
	BusinessID      uuid.UUID `json:"business_id"`
	AppointmentID   uuid.UUID `json:"appointment_id"`
	ChangeRequestID uuid.UUID `json:"change_request_id"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
}
