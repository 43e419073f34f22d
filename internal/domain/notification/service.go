package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voidsystems/appointment-service/internal/domain/appointment"
	"github.com/voidsystems/appointment-service/internal/platform/apperr"
	"github.com/voidsystems/appointment-service/internal/platform/auth"
)

const messageTimeLayout = "Mon, 02 Jan 2006 at 15:04"

// Service manages per-user notification feeds and acts as the
// notifier for appointment lifecycle events.
type Service struct {
	notifs Repository
	logger zerolog.Logger
}

func NewService(notifs Repository, logger zerolog.Logger) *Service {
	return &Service{notifs: notifs, logger: logger}
}

// List returns the caller's own feed, optionally unread entries only.
func (s *Service) List(ctx context.Context, actor auth.Identity, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	items, total, err := s.notifs.ListByUser(ctx, actor.UserID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

// CountUnread returns how many unread notifications the caller has.
func (s *Service) CountUnread(ctx context.Context, actor auth.Identity) (int, error) {
	count, err := s.notifs.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return count, nil
}

// MarkRead marks one notification as read. Owner or admin only.
func (s *Service) MarkRead(ctx context.Context, actor auth.Identity, id uuid.UUID) (*Notification, error) {
	n, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !n.Read {
		if err := s.notifs.MarkRead(ctx, id); err != nil {
			return nil, apperr.Internal(err)
		}
		n.Read = true
	}
	return n, nil
}

// MarkAllRead marks the caller's whole feed as read.
func (s *Service) MarkAllRead(ctx context.Context, actor auth.Identity) error {
	if err := s.notifs.MarkAllRead(ctx, actor.UserID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Delete removes one notification. Owner or admin only.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id uuid.UUID) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.notifs.Delete(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) owned(ctx context.Context, actor auth.Identity, id uuid.UUID) (*Notification, error) {
	n, err := s.notifs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("notification not found")
		}
		return nil, apperr.Internal(err)
	}
	if !actor.CanActFor(n.UserID) {
		return nil, apperr.Forbidden("you do not have access to this notification")
	}
	return n, nil
}

// AppointmentCreated notifies the provider about a new booking.
func (s *Service) AppointmentCreated(ctx context.Context, appt *appointment.Appointment) error {
	return s.deliver(ctx, appt.ProviderID, TypeNewAppointment, "New Appointment",
		fmt.Sprintf("A new appointment has been booked for %s.", formatWhen(appt.StartTime)), appt)
}

// AppointmentConfirmed notifies the client that the provider confirmed.
func (s *Service) AppointmentConfirmed(ctx context.Context, appt *appointment.Appointment) error {
	return s.deliver(ctx, appt.ClientID, TypeAppointmentConfirmed, "Appointment Confirmed",
		fmt.Sprintf("Your appointment on %s has been confirmed.", formatWhen(appt.StartTime)), appt)
}

// AppointmentCancelled notifies both parties about a cancellation.
func (s *Service) AppointmentCancelled(ctx context.Context, appt *appointment.Appointment) error {
	message := fmt.Sprintf("The appointment on %s has been cancelled.", formatWhen(appt.StartTime))
	clientErr := s.deliver(ctx, appt.ClientID, TypeAppointmentCancelled, "Appointment Cancelled", message, appt)
	providerErr := s.deliver(ctx, appt.ProviderID, TypeAppointmentCancelled, "Appointment Cancelled", message, appt)
	return errors.Join(clientErr, providerErr)
}

// AppointmentReminder notifies the client ahead of a confirmed slot.
func (s *Service) AppointmentReminder(ctx context.Context, appt *appointment.Appointment) error {
	return s.deliver(ctx, appt.ClientID, TypeAppointmentReminder, "Appointment Reminder",
		fmt.Sprintf("Reminder: you have an appointment on %s.", formatWhen(appt.StartTime)), appt)
}

func (s *Service) deliver(ctx context.Context, userID uuid.UUID, t Type, title, message string, appt *appointment.Appointment) error {
	n := &Notification{
		UserID:  userID,
		Type:    t,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"appointment_id": appt.ID.String(),
			"start_time":     appt.StartTime.Format(time.RFC3339),
		},
	}
	if err := s.notifs.Create(ctx, n); err != nil {
		return fmt.Errorf("deliver %s to %s: %w", t, userID, err)
	}
	s.logger.Debug().
		Str("user_id", userID.String()).
		Str("type", string(t)).
		Msg("notification delivered")
	return nil
}

func formatWhen(t time.Time) string {
	return t.Format(messageTimeLayout)
}
