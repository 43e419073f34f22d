package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voidsystems/appointment-service/internal/platform/apperr"
	"github.com/voidsystems/appointment-service/internal/platform/auth"
)

// ProviderDirectory verifies that a provider account exists.
type ProviderDirectory interface {
	ProviderExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// BookingCounter reports how many appointments reference a service.
type BookingCounter interface {
	CountByService(ctx context.Context, serviceID uuid.UUID) (int, error)
}

// Manager implements the service catalog operations.
type Manager struct {
	services  Repository
	providers ProviderDirectory
	bookings  BookingCounter
	logger    zerolog.Logger
}

func NewManager(services Repository, providers ProviderDirectory, bookings BookingCounter, logger zerolog.Logger) *Manager {
	return &Manager{services: services, providers: providers, bookings: bookings, logger: logger}
}

type CreateInput struct {
	ProviderID      uuid.UUID `json:"provider_id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	Price           float64   `json:"price"`
}

type UpdateInput struct {
	Name            *string  `json:"name,omitempty"`
	Description     *string  `json:"description,omitempty"`
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
	Price           *float64 `json:"price,omitempty"`
}

func validateFields(name string, durationMinutes int, price float64) error {
	if name == "" {
		return apperr.BadRequest("service name is required")
	}
	if durationMinutes <= 0 {
		return apperr.BadRequest("duration_minutes must be positive")
	}
	if price < 0 {
		return apperr.BadRequest("price cannot be negative")
	}
	return nil
}

// Create adds a service to a provider's catalog. Providers may only
// create services for themselves; admins may create for any provider.
func (m *Manager) Create(ctx context.Context, actor auth.Identity, in CreateInput) (*Service, error) {
	if in.ProviderID == uuid.Nil {
		if actor.Role == auth.RoleProvider {
			in.ProviderID = actor.UserID
		} else {
			return nil, apperr.BadRequest("provider_id is required")
		}
	}
	if !actor.CanActFor(in.ProviderID) {
		return nil, apperr.Forbidden("you can only manage your own services")
	}
	if err := validateFields(in.Name, in.DurationMinutes, in.Price); err != nil {
		return nil, err
	}

	ok, err := m.providers.ProviderExists(ctx, in.ProviderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !ok {
		return nil, apperr.NotFound("provider not found")
	}

	svc := &Service{
		ProviderID:      in.ProviderID,
		Name:            in.Name,
		Description:     in.Description,
		DurationMinutes: in.DurationMinutes,
		Price:           in.Price,
		Active:          true,
	}
	if err := m.services.Create(ctx, svc); err != nil {
		return nil, apperr.Internal(err)
	}

	m.logger.Info().Str("service_id", svc.ID.String()).Str("provider_id", svc.ProviderID.String()).Msg("service created")
	return svc, nil
}

func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Service, error) {
	svc, err := m.services.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("service not found")
		}
		return nil, apperr.Internal(err)
	}
	return svc, nil
}

func (m *Manager) List(ctx context.Context, f Filter, limit, offset int) ([]*Service, int, error) {
	items, total, err := m.services.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

// Update applies a partial update to a service. Owner or admin only.
func (m *Manager) Update(ctx context.Context, actor auth.Identity, id uuid.UUID, in UpdateInput) (*Service, error) {
	svc, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActFor(svc.ProviderID) {
		return nil, apperr.Forbidden("you can only manage your own services")
	}

	if in.Name != nil {
		svc.Name = *in.Name
	}
	if in.Description != nil {
		svc.Description = in.Description
	}
	if in.DurationMinutes != nil {
		svc.DurationMinutes = *in.DurationMinutes
	}
	if in.Price != nil {
		svc.Price = *in.Price
	}
	if err := validateFields(svc.Name, svc.DurationMinutes, svc.Price); err != nil {
		return nil, err
	}

	if err := m.services.Update(ctx, svc); err != nil {
		return nil, apperr.Internal(err)
	}
	return svc, nil
}

// Delete removes a service. Blocked while appointments still reference
// it; deactivate instead to stop new bookings.
func (m *Manager) Delete(ctx context.Context, actor auth.Identity, id uuid.UUID) error {
	svc, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanActFor(svc.ProviderID) {
		return apperr.Forbidden("you can only manage your own services")
	}

	count, err := m.bookings.CountByService(ctx, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if count > 0 {
		return apperr.BadRequest("cannot delete a service with existing appointments; deactivate it instead")
	}

	if err := m.services.Delete(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// SetActive toggles whether the service accepts new bookings.
func (m *Manager) SetActive(ctx context.Context, actor auth.Identity, id uuid.UUID, active bool) (*Service, error) {
	svc, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActFor(svc.ProviderID) {
		return nil, apperr.Forbidden("you can only manage your own services")
	}

	svc.Active = active
	if err := m.services.Update(ctx, svc); err != nil {
		return nil, apperr.Internal(err)
	}
	return svc, nil
}
