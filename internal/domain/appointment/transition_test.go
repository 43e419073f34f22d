package appointment

import (
	"testing"

	"github.com/google/uuid"

	"github.com/voidsystems/appointment-service/internal/platform/apperr"
	"github.com/voidsystems/appointment-service/internal/platform/auth"
)

func TestPartyOf(t *testing.T) {
	clientID := uuid.New()
	providerID := uuid.New()
	appt := &Appointment{ClientID: clientID, ProviderID: providerID}

	tests := []struct {
		name  string
		actor auth.Identity
		want  Party
	}{
		{"client of the appointment", auth.Identity{UserID: clientID, Role: auth.RoleClient}, PartyClient},
		{"provider of the appointment", auth.Identity{UserID: providerID, Role: auth.RoleProvider}, PartyProvider},
		{"any admin", auth.Identity{UserID: uuid.New(), Role: auth.RoleAdmin}, PartyAdmin},
		{"unrelated client", auth.Identity{UserID: uuid.New(), Role: auth.RoleClient}, PartyNone},
		{"unrelated provider", auth.Identity{UserID: uuid.New(), Role: auth.RoleProvider}, PartyNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PartyOf(tt.actor, appt); got != tt.want {
				t.Errorf("PartyOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateTransition(t *testing.T) {
	ok := apperr.Kind(-1) // sentinel for "no error"

	tests := []struct {
		name    string
		party   Party
		current Status
		target  Status
		want    apperr.Kind
	}{
		// Clients may only cancel, and only before completion.
		{"client cancels pending", PartyClient, StatusPending, StatusCancelled, ok},
		{"client cancels confirmed", PartyClient, StatusConfirmed, StatusCancelled, ok},
		{"client cancels completed", PartyClient, StatusCompleted, StatusCancelled, apperr.KindBadRequest},
		{"client cancels cancelled", PartyClient, StatusCancelled, StatusCancelled, apperr.KindBadRequest},
		{"client confirms", PartyClient, StatusPending, StatusConfirmed, apperr.KindForbidden},
		{"client completes", PartyClient, StatusConfirmed, StatusCompleted, apperr.KindForbidden},
		{"client marks no-show", PartyClient, StatusConfirmed, StatusNoShow, apperr.KindForbidden},

		// Providers run the full lifecycle on their side.
		{"provider confirms pending", PartyProvider, StatusPending, StatusConfirmed, ok},
		{"provider confirms confirmed", PartyProvider, StatusConfirmed, StatusConfirmed, apperr.KindBadRequest},
		{"provider confirms cancelled", PartyProvider, StatusCancelled, StatusConfirmed, apperr.KindBadRequest},
		{"provider cancels pending", PartyProvider, StatusPending, StatusCancelled, ok},
		{"provider cancels confirmed", PartyProvider, StatusConfirmed, StatusCancelled, ok},
		{"provider cancels completed", PartyProvider, StatusCompleted, StatusCancelled, apperr.KindBadRequest},
		{"provider completes confirmed", PartyProvider, StatusConfirmed, StatusCompleted, ok},
		{"provider completes pending", PartyProvider, StatusPending, StatusCompleted, apperr.KindBadRequest},
		{"provider no-shows confirmed", PartyProvider, StatusConfirmed, StatusNoShow, ok},
		{"provider no-shows pending", PartyProvider, StatusPending, StatusNoShow, apperr.KindBadRequest},
		{"provider reverts to pending", PartyProvider, StatusConfirmed, StatusPending, apperr.KindBadRequest},

		// Admins may force any transition.
		{"admin confirms cancelled", PartyAdmin, StatusCancelled, StatusConfirmed, ok},
		{"admin reverts completed", PartyAdmin, StatusCompleted, StatusPending, ok},
		{"admin no-shows pending", PartyAdmin, StatusPending, StatusNoShow, ok},

		// Outsiders get nothing.
		{"outsider cancels", PartyNone, StatusPending, StatusCancelled, apperr.KindForbidden},
		{"outsider confirms", PartyNone, StatusPending, StatusConfirmed, apperr.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.party, tt.current, tt.target)
			if tt.want == ok {
				if err != nil {
					t.Errorf("expected transition to be allowed, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected transition to be rejected")
			}
			if got := apperr.KindOf(err); got != tt.want {
				t.Errorf("expected kind %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"PENDING", "CONFIRMED", "CANCELLED", "COMPLETED", "NO_SHOW"} {
		if _, ok := ParseStatus(s); !ok {
			t.Errorf("expected %q to parse", s)
		}
	}
	for _, s := range []string{"", "pending", "DONE", "BOOKED"} {
		if _, ok := ParseStatus(s); ok {
			t.Errorf("expected %q to be rejected", s)
		}
	}
}
