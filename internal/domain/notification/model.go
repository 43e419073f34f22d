package notification

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies what a notification is about.
type Type string

const (
	TypeNewAppointment       Type = "NEW_APPOINTMENT"
	TypeAppointmentConfirmed Type = "APPOINTMENT_CONFIRMED"
	TypeAppointmentCancelled Type = "APPOINTMENT_CANCELLED"
	TypeAppointmentReminder  Type = "APPOINTMENT_REMINDER"
)

// Notification is one entry in a user's notification feed.
type Notification struct {
	ID        uuid.UUID              `db:"id" json:"id"`
	UserID    uuid.UUID              `db:"user_id" json:"user_id"`
	Type      Type                   `db:"type" json:"type"`
	Title     string                 `db:"title" json:"title"`
	Message   string                 `db:"message" json:"message"`
	Read      bool                   `db:"read" json:"read"`
	Data      map[string]interface{} `db:"data" json:"data,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}
