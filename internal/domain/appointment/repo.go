package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows an appointment listing. Zero-value fields are ignored.
type Filter struct {
	ClientID   *uuid.UUID
	ProviderID *uuid.UUID
	ServiceID  *uuid.UUID
	Status     *Status
	Date       *time.Time
	From       *time.Time
	To         *time.Time
	Upcoming   bool
}

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error)
	// ExistsOverlapping reports whether a non-cancelled appointment of
	// the provider overlaps [start, end). excludeID, when not Nil, is
	// left out of the check.
	ExistsOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error)
	CountByService(ctx context.Context, serviceID uuid.UUID) (int, error)
}
