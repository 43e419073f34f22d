package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voidsystems/appointment-service/internal/domain/availability"
	"github.com/voidsystems/appointment-service/internal/domain/catalog"
	"github.com/voidsystems/appointment-service/internal/platform/apperr"
	"github.com/voidsystems/appointment-service/internal/platform/auth"
)

// Catalog looks up bookable services.
type Catalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.Service, error)
}

// Calendar resolves a provider's bookable windows on a date.
type Calendar interface {
	WindowsFor(ctx context.Context, providerID uuid.UUID, date time.Time) ([]availability.TimeWindow, error)
}

// Directory verifies that the booked parties exist.
type Directory interface {
	ClientExists(ctx context.Context, id uuid.UUID) (bool, error)
	ProviderExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Notifier delivers appointment lifecycle notifications. Delivery is
// best effort; failures must never fail the booking.
type Notifier interface {
	AppointmentCreated(ctx context.Context, appt *Appointment) error
	AppointmentConfirmed(ctx context.Context, appt *Appointment) error
	AppointmentCancelled(ctx context.Context, appt *Appointment) error
}

// Transactor runs a function inside a single database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements booking, rescheduling and the status lifecycle.
type Service struct {
	appts    Repository
	services Catalog
	calendar Calendar
	users    Directory
	notifier Notifier
	tx       Transactor
	logger   zerolog.Logger
}

func NewService(appts Repository, services Catalog, calendar Calendar, users Directory, notifier Notifier, tx Transactor, logger zerolog.Logger) *Service {
	return &Service{
		appts:    appts,
		services: services,
		calendar: calendar,
		users:    users,
		notifier: notifier,
		tx:       tx,
		logger:   logger,
	}
}

type CreateInput struct {
	ClientID   uuid.UUID `json:"client_id"`
	ProviderID uuid.UUID `json:"provider_id"`
	ServiceID  uuid.UUID `json:"service_id"`
	StartTime  time.Time `json:"start_time"`
	Notes      *string   `json:"notes,omitempty"`
}

type UpdateInput struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	ServiceID *uuid.UUID `json:"service_id,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

// Create books a new appointment. The slot check and the insert run in
// one transaction; the exclusion constraint backstops concurrent
// bookings that race past the check.
func (s *Service) Create(ctx context.Context, actor auth.Identity, in CreateInput) (*Appointment, error) {
	if in.ClientID == uuid.Nil || in.ProviderID == uuid.Nil || in.ServiceID == uuid.Nil || in.StartTime.IsZero() {
		return nil, apperr.BadRequest("client_id, provider_id, service_id and start_time are required")
	}
	if !actor.CanActFor(in.ClientID) {
		return nil, apperr.Forbidden("appointments can only be booked by the client or an admin")
	}

	if ok, err := s.users.ClientExists(ctx, in.ClientID); err != nil {
		return nil, apperr.Internal(err)
	} else if !ok {
		return nil, apperr.NotFound("client not found")
	}
	if ok, err := s.users.ProviderExists(ctx, in.ProviderID); err != nil {
		return nil, apperr.Internal(err)
	} else if !ok {
		return nil, apperr.NotFound("provider not found")
	}

	svc, err := s.lookupService(ctx, in.ServiceID, in.ProviderID)
	if err != nil {
		return nil, err
	}

	appt := &Appointment{
		ClientID:   in.ClientID,
		ProviderID: in.ProviderID,
		ServiceID:  in.ServiceID,
		StartTime:  in.StartTime,
		EndTime:    in.StartTime.Add(svc.Duration()),
		Status:     StatusPending,
		Notes:      in.Notes,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		available, err := s.slotAvailable(ctx, appt.ProviderID, appt.StartTime, appt.EndTime, uuid.Nil)
		if err != nil {
			return err
		}
		if !available {
			return apperr.BadRequest("the selected time slot is not available")
		}
		return s.appts.Create(ctx, appt)
	})
	if err != nil {
		return nil, s.bookingErr(err)
	}

	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("provider_id", appt.ProviderID.String()).
		Time("start_time", appt.StartTime).
		Msg("appointment booked")
	s.notifyAsync("appointment created", appt, s.notifier.AppointmentCreated)
	return appt, nil
}

// Get returns an appointment to its client, its provider or an admin.
func (s *Service) Get(ctx context.Context, actor auth.Identity, id uuid.UUID) (*Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if PartyOf(actor, appt) == PartyNone {
		return nil, apperr.Forbidden("you do not have access to this appointment")
	}
	return appt, nil
}

// List returns appointments matching the filter. Clients and providers
// may only list their own; the unfiltered listing is admin only.
func (s *Service) List(ctx context.Context, actor auth.Identity, f Filter, limit, offset int) ([]*Appointment, int, error) {
	allowed := actor.IsAdmin() ||
		(f.ClientID != nil && actor.Is(*f.ClientID)) ||
		(f.ProviderID != nil && actor.Is(*f.ProviderID))
	if !allowed {
		return nil, 0, apperr.Forbidden("you can only list your own appointments")
	}

	items, total, err := s.appts.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

// Update reschedules an appointment or changes its service or notes.
// Changing the start time or service recomputes the end time and
// re-runs the slot check, ignoring the appointment's own slot.
func (s *Service) Update(ctx context.Context, actor auth.Identity, id uuid.UUID, in UpdateInput) (*Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if PartyOf(actor, appt) == PartyNone {
		return nil, apperr.Forbidden("you do not have access to this appointment")
	}

	var svc *catalog.Service
	reslot := false
	if in.ServiceID != nil && *in.ServiceID != appt.ServiceID {
		svc, err = s.lookupService(ctx, *in.ServiceID, appt.ProviderID)
		if err != nil {
			return nil, err
		}
		appt.ServiceID = *in.ServiceID
		reslot = true
	}
	if in.StartTime != nil && !in.StartTime.Equal(appt.StartTime) {
		appt.StartTime = *in.StartTime
		reslot = true
	}
	if in.Notes != nil {
		appt.Notes = in.Notes
	}

	if reslot {
		if svc == nil {
			if svc, err = s.lookupService(ctx, appt.ServiceID, appt.ProviderID); err != nil {
				return nil, err
			}
		}
		appt.EndTime = appt.StartTime.Add(svc.Duration())
		err = s.tx.WithTx(ctx, func(ctx context.Context) error {
			available, err := s.slotAvailable(ctx, appt.ProviderID, appt.StartTime, appt.EndTime, appt.ID)
			if err != nil {
				return err
			}
			if !available {
				return apperr.BadRequest("the selected time slot is not available")
			}
			return s.appts.Update(ctx, appt)
		})
	} else {
		err = s.appts.Update(ctx, appt)
	}
	if err != nil {
		return nil, s.bookingErr(err)
	}
	return appt, nil
}

// UpdateStatus moves an appointment through its lifecycle after the
// transition policy approves the change for the caller.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Identity, id uuid.UUID, target Status) (*Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := ValidateTransition(PartyOf(actor, appt), appt.Status, target); err != nil {
		return nil, err
	}

	previous := appt.Status
	appt.Status = target
	if err := s.appts.Update(ctx, appt); err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("from", string(previous)).
		Str("to", string(target)).
		Msg("appointment status changed")

	switch target {
	case StatusConfirmed:
		s.notifyAsync("appointment confirmed", appt, s.notifier.AppointmentConfirmed)
	case StatusCancelled:
		s.notifyAsync("appointment cancelled", appt, s.notifier.AppointmentCancelled)
	}
	return appt, nil
}

// Delete removes an appointment record. Only pending or cancelled
// appointments may be deleted; completed history is kept.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id uuid.UUID) error {
	appt, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if PartyOf(actor, appt) == PartyNone {
		return apperr.Forbidden("you do not have access to this appointment")
	}
	if appt.Status != StatusPending && appt.Status != StatusCancelled {
		return apperr.BadRequest("only pending or cancelled appointments can be deleted")
	}
	if err := s.appts.Delete(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// CheckSlot reports whether the provider could accept a booking over
// [start, end) without changing anything.
func (s *Service) CheckSlot(ctx context.Context, providerID uuid.UUID, start, end time.Time) (bool, error) {
	if providerID == uuid.Nil || start.IsZero() || end.IsZero() {
		return false, apperr.BadRequest("provider_id, start and end are required")
	}
	if !start.Before(end) {
		return false, apperr.BadRequest("start must be before end")
	}
	available, err := s.slotAvailable(ctx, providerID, start, end, uuid.Nil)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return available, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.appts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("appointment not found")
		}
		return nil, apperr.Internal(err)
	}
	return appt, nil
}

func (s *Service) lookupService(ctx context.Context, serviceID, providerID uuid.UUID) (*catalog.Service, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, apperr.NotFound("service not found")
		}
		return nil, apperr.Internal(err)
	}
	if svc.ProviderID != providerID {
		return nil, apperr.BadRequest("the service does not belong to the provider")
	}
	if !svc.Active {
		return nil, apperr.BadRequest("the service is not currently accepting bookings")
	}
	return svc, nil
}

// slotAvailable checks availability coverage and then the overlap rule.
// A slot crossing midnight exceeds every window and is never available.
func (s *Service) slotAvailable(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	windows, err := s.calendar.WindowsFor(ctx, providerID, start)
	if err != nil {
		return false, err
	}
	duration := int(end.Sub(start) / time.Minute)
	if !availability.Covers(windows, availability.ClockOf(start), duration) {
		return false, nil
	}

	overlap, err := s.appts.ExistsOverlapping(ctx, providerID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return !overlap, nil
}

// bookingErr maps the exclusion constraint violation onto the same
// client-facing error as a failed slot check.
func (s *Service) bookingErr(err error) error {
	if errors.Is(err, ErrSlotTaken) {
		return apperr.BadRequest("the selected time slot is not available")
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(err)
}

// notifyAsync delivers a notification outside the request path. Errors
// are logged and never surfaced to the caller.
func (s *Service) notifyAsync(event string, appt *Appointment, deliver func(context.Context, *Appointment) error) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := deliver(ctx, appt); err != nil {
			s.logger.Warn().
				Err(err).
				Str("event", event).
				Str("appointment_id", appt.ID.String()).
				Msg("notification delivery failed")
		}
	}()
}
