package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows a service listing.
type Filter struct {
	ProviderID *uuid.UUID
	Active     *bool
}

type Repository interface {
	Create(ctx context.Context, s *Service) error
	GetByID(ctx context.Context, id uuid.UUID) (*Service, error)
	Update(ctx context.Context, s *Service) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Service, int, error)
}
