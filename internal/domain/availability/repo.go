package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Availability) error
	GetByID(ctx context.Context, id uuid.UUID) (*Availability, error)
	Update(ctx context.Context, a *Availability) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProvider(ctx context.Context, providerID uuid.UUID, recurring *bool, limit, offset int) ([]*Availability, int, error)
	// ListForDate returns recurring entries matching the date's weekday
	// plus non-recurring entries for the exact date.
	ListForDate(ctx context.Context, providerID uuid.UUID, date time.Time) ([]*Availability, error)
}
