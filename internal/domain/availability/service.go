package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voidsystems/appointment-service/internal/platform/apperr"
	"github.com/voidsystems/appointment-service/internal/platform/auth"
)

// ProviderDirectory verifies that a provider account exists.
type ProviderDirectory interface {
	ProviderExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service manages provider availability windows and resolves which
// windows apply on a given date.
type Service struct {
	avail     Repository
	providers ProviderDirectory
	logger    zerolog.Logger
}

func NewService(avail Repository, providers ProviderDirectory, logger zerolog.Logger) *Service {
	return &Service{avail: avail, providers: providers, logger: logger}
}

type CreateInput struct {
	Recurring    bool    `json:"recurring"`
	DayOfWeek    *int    `json:"day_of_week,omitempty"`
	SpecificDate *string `json:"specific_date,omitempty"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
}

type UpdateInput struct {
	Recurring    *bool   `json:"recurring,omitempty"`
	DayOfWeek    *int    `json:"day_of_week,omitempty"`
	SpecificDate *string `json:"specific_date,omitempty"`
	StartTime    *string `json:"start_time,omitempty"`
	EndTime      *string `json:"end_time,omitempty"`
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// Create adds an availability window to a provider's calendar.
// Providers manage only their own calendar; admins manage any.
func (s *Service) Create(ctx context.Context, actor auth.Identity, providerID uuid.UUID, in CreateInput) (*Availability, error) {
	if !actor.CanActFor(providerID) {
		return nil, apperr.Forbidden("you can only manage your own availability")
	}

	ok, err := s.providers.ProviderExists(ctx, providerID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !ok {
		return nil, apperr.NotFound("provider not found")
	}

	a := &Availability{ProviderID: providerID, Recurring: in.Recurring}
	if in.DayOfWeek != nil {
		wd := time.Weekday(*in.DayOfWeek)
		a.DayOfWeek = &wd
	}
	if in.SpecificDate != nil {
		date, err := parseDate(*in.SpecificDate)
		if err != nil {
			return nil, apperr.BadRequest("specific_date must be formatted YYYY-MM-DD")
		}
		a.SpecificDate = &date
	}
	if a.StartTime, err = ParseTimeOfDay(in.StartTime); err != nil {
		return nil, apperr.BadRequest("%s", err.Error())
	}
	if a.EndTime, err = ParseTimeOfDay(in.EndTime); err != nil {
		return nil, apperr.BadRequest("%s", err.Error())
	}

	if err := a.Validate(); err != nil {
		return nil, apperr.BadRequest("%s", err.Error())
	}

	if err := s.avail.Create(ctx, a); err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.Info().
		Str("availability_id", a.ID.String()).
		Str("provider_id", providerID.String()).
		Bool("recurring", a.Recurring).
		Msg("availability created")
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Availability, error) {
	a, err := s.avail.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("availability not found")
		}
		return nil, apperr.Internal(err)
	}
	return a, nil
}

func (s *Service) ListByProvider(ctx context.Context, providerID uuid.UUID, recurring *bool, limit, offset int) ([]*Availability, int, error) {
	items, total, err := s.avail.ListByProvider(ctx, providerID, recurring, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

// Update applies a partial update. Flipping the recurring flag clears
// the field belonging to the other form before validation.
func (s *Service) Update(ctx context.Context, actor auth.Identity, id uuid.UUID, in UpdateInput) (*Availability, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActFor(a.ProviderID) {
		return nil, apperr.Forbidden("you can only manage your own availability")
	}

	if in.Recurring != nil {
		a.Recurring = *in.Recurring
		if a.Recurring {
			a.SpecificDate = nil
		} else {
			a.DayOfWeek = nil
		}
	}
	if in.DayOfWeek != nil {
		wd := time.Weekday(*in.DayOfWeek)
		a.DayOfWeek = &wd
	}
	if in.SpecificDate != nil {
		date, err := parseDate(*in.SpecificDate)
		if err != nil {
			return nil, apperr.BadRequest("specific_date must be formatted YYYY-MM-DD")
		}
		a.SpecificDate = &date
	}
	if in.StartTime != nil {
		if a.StartTime, err = ParseTimeOfDay(*in.StartTime); err != nil {
			return nil, apperr.BadRequest("%s", err.Error())
		}
	}
	if in.EndTime != nil {
		if a.EndTime, err = ParseTimeOfDay(*in.EndTime); err != nil {
			return nil, apperr.BadRequest("%s", err.Error())
		}
	}

	if err := a.Validate(); err != nil {
		return nil, apperr.BadRequest("%s", err.Error())
	}

	if err := s.avail.Update(ctx, a); err != nil {
		return nil, apperr.Internal(err)
	}
	return a, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Identity, id uuid.UUID) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanActFor(a.ProviderID) {
		return apperr.Forbidden("you can only manage your own availability")
	}
	if err := s.avail.Delete(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// WindowsFor returns the provider's bookable windows on the given date:
// recurring windows matching the weekday plus windows for the exact
// date. Windows are not merged.
func (s *Service) WindowsFor(ctx context.Context, providerID uuid.UUID, date time.Time) ([]TimeWindow, error) {
	items, err := s.avail.ListForDate(ctx, providerID, date)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	windows := make([]TimeWindow, 0, len(items))
	for _, a := range items {
		windows = append(windows, a.Window())
	}
	return windows, nil
}
