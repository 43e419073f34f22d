package appointment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voidsystems/appointment-service/internal/domain/availability"
	"github.com/voidsystems/appointment-service/internal/domain/catalog"
	"github.com/voidsystems/appointment-service/internal/platform/apperr"
	"github.com/voidsystems/appointment-service/internal/platform/auth"
)

// -- Mock repositories and collaborators --

type mockApptRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockApptRepo) Create(_ context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	copied := *a
	m.appts[a.ID] = &copied
	return nil
}

func (m *mockApptRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockApptRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.appts[a.ID]; !ok {
		return ErrNotFound
	}
	a.UpdatedAt = time.Now()
	copied := *a
	m.appts[a.ID] = &copied
	return nil
}

func (m *mockApptRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.appts, id)
	return nil
}

func (m *mockApptRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		if f.ClientID != nil && a.ClientID != *f.ClientID {
			continue
		}
		if f.ProviderID != nil && a.ProviderID != *f.ProviderID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		result = append(result, a)
	}
	return result, len(result), nil
}

func (m *mockApptRepo) ExistsOverlapping(_ context.Context, providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	for _, a := range m.appts {
		if a.ProviderID != providerID || a.Status == StatusCancelled {
			continue
		}
		if excludeID != uuid.Nil && a.ID == excludeID {
			continue
		}
		if Overlaps(a.StartTime, a.EndTime, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockApptRepo) CountByService(_ context.Context, serviceID uuid.UUID) (int, error) {
	count := 0
	for _, a := range m.appts {
		if a.ServiceID == serviceID {
			count++
		}
	}
	return count, nil
}

type mockCatalog struct {
	services map[uuid.UUID]*catalog.Service
}

func (m *mockCatalog) GetByID(_ context.Context, id uuid.UUID) (*catalog.Service, error) {
	s, ok := m.services[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return s, nil
}

type mockCalendar struct {
	windows []availability.TimeWindow
}

func (m *mockCalendar) WindowsFor(_ context.Context, _ uuid.UUID, _ time.Time) ([]availability.TimeWindow, error) {
	return m.windows, nil
}

type mockDirectory struct {
	clients   map[uuid.UUID]bool
	providers map[uuid.UUID]bool
}

func (m *mockDirectory) ClientExists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.clients[id], nil
}

func (m *mockDirectory) ProviderExists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.providers[id], nil
}

type mockNotifier struct {
	events chan string
	fail   bool
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{events: make(chan string, 8)}
}

func (m *mockNotifier) record(event string) error {
	m.events <- event
	if m.fail {
		return fmt.Errorf("delivery failed")
	}
	return nil
}

func (m *mockNotifier) AppointmentCreated(_ context.Context, _ *Appointment) error {
	return m.record("created")
}

func (m *mockNotifier) AppointmentConfirmed(_ context.Context, _ *Appointment) error {
	return m.record("confirmed")
}

func (m *mockNotifier) AppointmentCancelled(_ context.Context, _ *Appointment) error {
	return m.record("cancelled")
}

func (m *mockNotifier) await(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-m.events:
		if got != want {
			t.Errorf("expected %q notification, got %q", want, got)
		}
	case <-time.After(time.Second):
		t.Errorf("timed out waiting for %q notification", want)
	}
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// -- Test fixture --

type fixture struct {
	svc      *Service
	repo     *mockApptRepo
	notifier *mockNotifier

	clientID   uuid.UUID
	providerID uuid.UUID
	serviceID  uuid.UUID

	client   auth.Identity
	provider auth.Identity
	admin    auth.Identity
}

func newFixture() *fixture {
	f := &fixture{
		repo:       newMockApptRepo(),
		notifier:   newMockNotifier(),
		clientID:   uuid.New(),
		providerID: uuid.New(),
		serviceID:  uuid.New(),
	}
	f.client = auth.Identity{UserID: f.clientID, Role: auth.RoleClient}
	f.provider = auth.Identity{UserID: f.providerID, Role: auth.RoleProvider}
	f.admin = auth.Identity{UserID: uuid.New(), Role: auth.RoleAdmin}

	services := &mockCatalog{services: map[uuid.UUID]*catalog.Service{
		f.serviceID: {
			ID:              f.serviceID,
			ProviderID:      f.providerID,
			Name:            "Consultation",
			DurationMinutes: 30,
			Active:          true,
		},
	}}
	calendar := &mockCalendar{windows: []availability.TimeWindow{
		{Start: availability.NewTimeOfDay(9, 0), End: availability.NewTimeOfDay(17, 0)},
	}}
	directory := &mockDirectory{
		clients:   map[uuid.UUID]bool{f.clientID: true},
		providers: map[uuid.UUID]bool{f.providerID: true},
	}

	f.svc = NewService(f.repo, services, calendar, directory, f.notifier, passthroughTx{}, zerolog.Nop())
	return f
}

func (f *fixture) catalog() *mockCatalog {
	return f.svc.services.(*mockCatalog)
}

// at builds a timestamp on a fixed date inside the fixture's window.
func at(hour, minute int) time.Time {
	return time.Date(2026, 9, 1, hour, minute, 0, 0, time.UTC)
}

// -- Create --

func TestCreateAppointment(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.Create(context.Background(), f.client, CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 0),
	})
	if err != nil {
		t.Fatalf("expected booking to succeed, got %v", err)
	}
	if appt.Status != StatusPending {
		t.Errorf("expected status PENDING, got %s", appt.Status)
	}
	if want := at(10, 30); !appt.EndTime.Equal(want) {
		t.Errorf("expected end time %v, got %v", want, appt.EndTime)
	}
	f.notifier.await(t, "created")
}

func TestCreateAppointment_MissingFields(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), f.client, CreateInput{
		ClientID: f.clientID,
	})
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("expected bad request, got %v", err)
	}
}

func TestCreateAppointment_ForOtherClient(t *testing.T) {
	f := newFixture()
	other := auth.Identity{UserID: uuid.New(), Role: auth.RoleClient}

	_, err := f.svc.Create(context.Background(), other, CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 0),
	})
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("expected forbidden, got %v", err)
	}

	// Admins may book on behalf of any client.
	if _, err := f.svc.Create(context.Background(), f.admin, CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 0),
	}); err != nil {
		t.Errorf("expected admin booking to succeed, got %v", err)
	}
}

func TestCreateAppointment_UnknownParties(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), f.admin, CreateInput{
		ClientID:   uuid.New(),
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 0),
	})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not found for unknown client, got %v", err)
	}
}

func TestCreateAppointment_ServiceChecks(t *testing.T) {
	f := newFixture()

	otherProvider := uuid.New()
	foreignSvc := uuid.New()
	inactiveSvc := uuid.New()
	f.catalog().services[foreignSvc] = &catalog.Service{
		ID: foreignSvc, ProviderID: otherProvider, DurationMinutes: 30, Active: true,
	}
	f.catalog().services[inactiveSvc] = &catalog.Service{
		ID: inactiveSvc, ProviderID: f.providerID, DurationMinutes: 30, Active: false,
	}

	tests := []struct {
		name      string
		serviceID uuid.UUID
		wantKind  apperr.Kind
	}{
		{"unknown service", uuid.New(), apperr.KindNotFound},
		{"service of another provider", foreignSvc, apperr.KindBadRequest},
		{"inactive service", inactiveSvc, apperr.KindBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.client, CreateInput{
				ClientID:   f.clientID,
				ProviderID: f.providerID,
				ServiceID:  tt.serviceID,
				StartTime:  at(10, 0),
			})
			if apperr.KindOf(err) != tt.wantKind {
				t.Errorf("expected kind %v, got %v", tt.wantKind, err)
			}
		})
	}
}

func TestCreateAppointment_OutsideAvailability(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name  string
		start time.Time
	}{
		{"before opening", at(8, 0)},
		{"runs past closing", at(16, 45)},
		{"after closing", at(18, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.client, CreateInput{
				ClientID:   f.clientID,
				ProviderID: f.providerID,
				ServiceID:  f.serviceID,
				StartTime:  tt.start,
			})
			if apperr.KindOf(err) != apperr.KindBadRequest {
				t.Errorf("expected bad request, got %v", err)
			}
		})
	}
}

func TestCreateAppointment_Overlap(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.Create(context.Background(), f.client, CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 0),
	}); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	// 10:15 overlaps the 10:00-10:30 slot.
	_, err := f.svc.Create(context.Background(), f.client, CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 15),
	})
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("expected overlap rejection, got %v", err)
	}

	// Slots are half-open: a booking starting exactly at 10:30 touches
	// but does not overlap.
	if _, err := f.svc.Create(context.Background(), f.client, CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 30),
	}); err != nil {
		t.Errorf("expected back-to-back booking to succeed, got %v", err)
	}
}

func TestCreateAppointment_CancelledSlotReusable(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.Create(context.Background(), f.client, CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 0),
	})
	if err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), f.client, appt.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if _, err := f.svc.Create(context.Background(), f.client, CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 0),
	}); err != nil {
		t.Errorf("expected cancelled slot to be rebookable, got %v", err)
	}
}

func TestCreateAppointment_NotifierFailureIgnored(t *testing.T) {
	f := newFixture()
	f.notifier.fail = true

	_, err := f.svc.Create(context.Background(), f.client, CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 0),
	})
	if err != nil {
		t.Fatalf("expected booking to succeed despite notifier failure, got %v", err)
	}
	f.notifier.await(t, "created")
}

// -- Get / List --

func TestGetAppointment_Access(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.Create(context.Background(), f.client, CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 0),
	})
	if err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	for _, actor := range []auth.Identity{f.client, f.provider, f.admin} {
		if _, err := f.svc.Get(context.Background(), actor, appt.ID); err != nil {
			t.Errorf("expected %s to read the appointment, got %v", actor.Role, err)
		}
	}

	stranger := auth.Identity{UserID: uuid.New(), Role: auth.RoleClient}
	if _, err := f.svc.Get(context.Background(), stranger, appt.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("expected forbidden for unrelated user, got %v", err)
	}

	if _, err := f.svc.Get(context.Background(), f.admin, uuid.New()); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListAppointments_Scoping(t *testing.T) {
	f := newFixture()

	if _, _, err := f.svc.List(context.Background(), f.client, Filter{ClientID: &f.clientID}, 20, 0); err != nil {
		t.Errorf("expected client to list own appointments, got %v", err)
	}
	if _, _, err := f.svc.List(context.Background(), f.provider, Filter{ProviderID: &f.providerID}, 20, 0); err != nil {
		t.Errorf("expected provider to list own appointments, got %v", err)
	}
	if _, _, err := f.svc.List(context.Background(), f.admin, Filter{}, 20, 0); err != nil {
		t.Errorf("expected admin to list all appointments, got %v", err)
	}
	if _, _, err := f.svc.List(context.Background(), f.client, Filter{}, 20, 0); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("expected forbidden for unscoped client listing, got %v", err)
	}
	if _, _, err := f.svc.List(context.Background(), f.client, Filter{ProviderID: &f.providerID}, 20, 0); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("expected forbidden for client listing another's calendar, got %v", err)
	}
}

// -- Update --

func TestUpdateAppointment_Reschedule(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.Create(context.Background(), f.client, CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 0),
	})
	if err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	newStart := at(14, 0)
	updated, err := f.svc.Update(context.Background(), f.client, appt.ID, UpdateInput{StartTime: &newStart})
	if err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}
	if want := at(14, 30); !updated.EndTime.Equal(want) {
		t.Errorf("expected recomputed end time %v, got %v", want, updated.EndTime)
	}

	// The old slot is free again.
	if _, err := f.svc.Create(context.Background(), f.client, CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 0),
	}); err != nil {
		t.Errorf("expected vacated slot to be bookable, got %v", err)
	}

	outside := at(20, 0)
	if _, err := f.svc.Update(context.Background(), f.client, appt.ID, UpdateInput{StartTime: &outside}); apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("expected reschedule outside availability to fail, got %v", err)
	}
}

func TestUpdateAppointment_RescheduleToSameSlot(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.Create(context.Background(), f.client, CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 0),
	})
	if err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	// Shifting within the appointment's own slot must not collide with
	// itself.
	shifted := at(10, 15)
	if _, err := f.svc.Update(context.Background(), f.client, appt.ID, UpdateInput{StartTime: &shifted}); err != nil {
		t.Errorf("expected shift within own slot to succeed, got %v", err)
	}
}

func TestUpdateAppointment_NotesOnly(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.Create(context.Background(), f.client, CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 0),
	})
	if err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	// A notes-only update must not re-validate the service, even if it
	// was deactivated after booking.
	f.catalog().services[f.serviceID].Active = false

	notes := "bring previous records"
	updated, err := f.svc.Update(context.Background(), f.client, appt.ID, UpdateInput{Notes: &notes})
	if err != nil {
		t.Fatalf("notes update failed: %v", err)
	}
	if updated.Notes == nil || *updated.Notes != notes {
		t.Errorf("expected notes to be updated, got %v", updated.Notes)
	}
	if !updated.EndTime.Equal(appt.EndTime) {
		t.Errorf("expected end time unchanged, got %v", updated.EndTime)
	}
}

// -- Status transitions through the service --

func TestUpdateStatus_Lifecycle(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.Create(context.Background(), f.client, CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 0),
	})
	if err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}
	f.notifier.await(t, "created")

	confirmed, err := f.svc.UpdateStatus(context.Background(), f.provider, appt.ID, StatusConfirmed)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", confirmed.Status)
	}
	f.notifier.await(t, "confirmed")

	if _, err := f.svc.UpdateStatus(context.Background(), f.client, appt.ID, StatusCompleted); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("expected client completing to be forbidden, got %v", err)
	}

	cancelled, err := f.svc.UpdateStatus(context.Background(), f.client, appt.ID, StatusCancelled)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}
	f.notifier.await(t, "cancelled")

	// Cancelled is terminal for non-admins.
	if _, err := f.svc.UpdateStatus(context.Background(), f.provider, appt.ID, StatusConfirmed); apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("expected transition out of CANCELLED to fail, got %v", err)
	}
	// Admins may force it.
	if _, err := f.svc.UpdateStatus(context.Background(), f.admin, appt.ID, StatusConfirmed); err != nil {
		t.Errorf("expected admin override to succeed, got %v", err)
	}
}

// -- Delete --

func TestDeleteAppointment(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.Create(context.Background(), f.client, CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 0),
	})
	if err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	if _, err := f.svc.UpdateStatus(context.Background(), f.provider, appt.ID, StatusConfirmed); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if err := f.svc.Delete(context.Background(), f.client, appt.ID); apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("expected delete of confirmed appointment to fail, got %v", err)
	}

	if _, err := f.svc.UpdateStatus(context.Background(), f.client, appt.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if err := f.svc.Delete(context.Background(), f.client, appt.ID); err != nil {
		t.Errorf("expected delete of cancelled appointment to succeed, got %v", err)
	}
	if _, err := f.svc.Get(context.Background(), f.admin, appt.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected appointment to be gone, got %v", err)
	}
}

// -- CheckSlot --

func TestCheckSlot(t *testing.T) {
	f := newFixture()

	available, err := f.svc.CheckSlot(context.Background(), f.providerID, at(10, 0), at(10, 30))
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !available {
		t.Error("expected open slot to be available")
	}

	if _, err := f.svc.Create(context.Background(), f.client, CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.providerID,
		ServiceID:  f.serviceID,
		StartTime:  at(10, 0),
	}); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	available, err = f.svc.CheckSlot(context.Background(), f.providerID, at(10, 0), at(10, 30))
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if available {
		t.Error("expected booked slot to be unavailable")
	}

	if _, err := f.svc.CheckSlot(context.Background(), f.providerID, at(11, 0), at(10, 0)); apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("expected inverted range to be rejected, got %v", err)
	}
	if _, err := f.svc.CheckSlot(context.Background(), uuid.Nil, at(10, 0), at(10, 30)); apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("expected missing provider to be rejected, got %v", err)
	}
}

// -- bookingErr --

func TestBookingErrMapsSlotTaken(t *testing.T) {
	f := newFixture()

	err := f.svc.bookingErr(fmt.Errorf("insert: %w", ErrSlotTaken))
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("expected slot-taken to map to bad request, got %v", err)
	}

	err = f.svc.bookingErr(errors.New("connection reset"))
	if apperr.KindOf(err) != apperr.KindInternal {
		t.Errorf("expected unknown error to map to internal, got %v", err)
	}
}
