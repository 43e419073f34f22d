package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Service is a bookable offering owned by a provider. Its duration
// determines the end time of every appointment booked for it.
type Service struct {
	ID              uuid.UUID `db:"id" json:"id"`
	ProviderID      uuid.UUID `db:"provider_id" json:"provider_id"`
	Name            string    `db:"name" json:"name"`
	Description     *string   `db:"description" json:"description,omitempty"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Price           float64   `db:"price" json:"price"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Duration returns the service length as a time.Duration.
func (s *Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}
