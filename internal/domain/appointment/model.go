package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
	StatusNoShow    Status = "NO_SHOW"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return Status(s), true
	}
	return "", false
}

// Appointment is a booked time slot. EndTime is always StartTime plus
// the service duration; it is recomputed whenever the start time or
// service changes.
type Appointment struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ClientID   uuid.UUID `db:"client_id" json:"client_id"`
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`
	ServiceID  uuid.UUID `db:"service_id" json:"service_id"`
	StartTime  time.Time `db:"start_time" json:"start_time"`
	EndTime    time.Time `db:"end_time" json:"end_time"`
	Status     Status    `db:"status" json:"status"`
	Notes      *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Overlaps applies the half-open interval rule: [aStart, aEnd) and
// [bStart, bEnd) overlap iff aStart < bEnd && bStart < aEnd. Intervals
// that merely touch do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
