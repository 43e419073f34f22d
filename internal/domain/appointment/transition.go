package appointment

import (
	"github.com/voidsystems/appointment-service/internal/platform/apperr"
	"github.com/voidsystems/appointment-service/internal/platform/auth"
)

// Party is the caller's relationship to an appointment.
type Party int

const (
	PartyNone Party = iota
	PartyClient
	PartyProvider
	PartyAdmin
)

// PartyOf resolves the caller's relationship to an appointment.
func PartyOf(actor auth.Identity, appt *Appointment) Party {
	switch {
	case actor.IsAdmin():
		return PartyAdmin
	case actor.Is(appt.ClientID):
		return PartyClient
	case actor.Is(appt.ProviderID):
		return PartyProvider
	default:
		return PartyNone
	}
}

// ValidateTransition is the single policy decision for status changes.
// Clients may only cancel their pending or confirmed appointments.
// Providers confirm pending appointments, cancel pending or confirmed
// ones, and close out confirmed ones as completed or no-show. Admins
// may force any transition. CANCELLED, COMPLETED and NO_SHOW are
// terminal for everyone else.
func ValidateTransition(party Party, current, target Status) error {
	switch party {
	case PartyAdmin:
		return nil

	case PartyClient:
		if target != StatusCancelled {
			return apperr.Forbidden("clients can only cancel appointments")
		}
		if current != StatusPending && current != StatusConfirmed {
			return apperr.BadRequest("clients can only cancel pending or confirmed appointments")
		}
		return nil

	case PartyProvider:
		switch target {
		case StatusConfirmed:
			if current != StatusPending {
				return apperr.BadRequest("only pending appointments can be confirmed")
			}
		case StatusCancelled:
			if current != StatusPending && current != StatusConfirmed {
				return apperr.BadRequest("only pending or confirmed appointments can be cancelled")
			}
		case StatusCompleted:
			if current != StatusConfirmed {
				return apperr.BadRequest("only confirmed appointments can be marked as completed")
			}
		case StatusNoShow:
			if current != StatusConfirmed {
				return apperr.BadRequest("only confirmed appointments can be marked as no-show")
			}
		default:
			return apperr.BadRequest("invalid status transition")
		}
		return nil

	default:
		return apperr.Forbidden("you do not have access to this appointment")
	}
}
