package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voidsystems/appointment-service/internal/platform/apperr"
	"github.com/voidsystems/appointment-service/internal/platform/auth"
)

type mockServiceRepo struct {
	services map[uuid.UUID]*Service
}

func newMockServiceRepo() *mockServiceRepo {
	return &mockServiceRepo{services: make(map[uuid.UUID]*Service)}
}

func (m *mockServiceRepo) Create(_ context.Context, s *Service) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	copied := *s
	m.services[s.ID] = &copied
	return nil
}

func (m *mockServiceRepo) GetByID(_ context.Context, id uuid.UUID) (*Service, error) {
	s, ok := m.services[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *mockServiceRepo) Update(_ context.Context, s *Service) error {
	copied := *s
	m.services[s.ID] = &copied
	return nil
}

func (m *mockServiceRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.services, id)
	return nil
}

func (m *mockServiceRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Service, int, error) {
	var result []*Service
	for _, s := range m.services {
		if f.ProviderID != nil && s.ProviderID != *f.ProviderID {
			continue
		}
		if f.Active != nil && s.Active != *f.Active {
			continue
		}
		result = append(result, s)
	}
	return result, len(result), nil
}

type knownProviders map[uuid.UUID]bool

func (k knownProviders) ProviderExists(_ context.Context, id uuid.UUID) (bool, error) {
	return k[id], nil
}

type bookingCounts map[uuid.UUID]int

func (b bookingCounts) CountByService(_ context.Context, serviceID uuid.UUID) (int, error) {
	return b[serviceID], nil
}

type managerFixture struct {
	mgr        *Manager
	bookings   bookingCounts
	providerID uuid.UUID
	provider   auth.Identity
	admin      auth.Identity
}

func newManagerFixture() *managerFixture {
	f := &managerFixture{
		bookings:   bookingCounts{},
		providerID: uuid.New(),
	}
	f.provider = auth.Identity{UserID: f.providerID, Role: auth.RoleProvider}
	f.admin = auth.Identity{UserID: uuid.New(), Role: auth.RoleAdmin}
	f.mgr = NewManager(newMockServiceRepo(), knownProviders{f.providerID: true}, f.bookings, zerolog.Nop())
	return f
}

func TestCreateService(t *testing.T) {
	f := newManagerFixture()

	// Providers omitting provider_id get their own catalog.
	svc, err := f.mgr.Create(context.Background(), f.provider, CreateInput{
		Name:            "Consultation",
		DurationMinutes: 30,
		Price:           50,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if svc.ProviderID != f.providerID {
		t.Errorf("expected provider_id to default to the actor, got %s", svc.ProviderID)
	}
	if !svc.Active {
		t.Error("expected new services to be active")
	}

	// Admins must name the provider explicitly.
	if _, err := f.mgr.Create(context.Background(), f.admin, CreateInput{
		Name:            "Checkup",
		DurationMinutes: 15,
	}); apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("expected missing provider_id to fail for admin, got %v", err)
	}
	if _, err := f.mgr.Create(context.Background(), f.admin, CreateInput{
		ProviderID:      f.providerID,
		Name:            "Checkup",
		DurationMinutes: 15,
	}); err != nil {
		t.Errorf("expected admin create to succeed, got %v", err)
	}
}

func TestCreateService_Validation(t *testing.T) {
	f := newManagerFixture()

	tests := []struct {
		name     string
		actor    auth.Identity
		in       CreateInput
		wantKind apperr.Kind
	}{
		{
			"another provider's catalog",
			auth.Identity{UserID: uuid.New(), Role: auth.RoleProvider},
			CreateInput{ProviderID: f.providerID, Name: "X", DurationMinutes: 30},
			apperr.KindForbidden,
		},
		{
			"unknown provider",
			f.admin,
			CreateInput{ProviderID: uuid.New(), Name: "X", DurationMinutes: 30},
			apperr.KindNotFound,
		},
		{
			"empty name",
			f.provider,
			CreateInput{DurationMinutes: 30},
			apperr.KindBadRequest,
		},
		{
			"zero duration",
			f.provider,
			CreateInput{Name: "X"},
			apperr.KindBadRequest,
		},
		{
			"negative price",
			f.provider,
			CreateInput{Name: "X", DurationMinutes: 30, Price: -1},
			apperr.KindBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.mgr.Create(context.Background(), tt.actor, tt.in)
			if apperr.KindOf(err) != tt.wantKind {
				t.Errorf("expected kind %v, got %v", tt.wantKind, err)
			}
		})
	}
}

func TestUpdateService(t *testing.T) {
	f := newManagerFixture()

	svc, err := f.mgr.Create(context.Background(), f.provider, CreateInput{
		Name:            "Consultation",
		DurationMinutes: 30,
		Price:           50,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	newDuration := 45
	updated, err := f.mgr.Update(context.Background(), f.provider, svc.ID, UpdateInput{DurationMinutes: &newDuration})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.DurationMinutes != 45 {
		t.Errorf("expected duration 45, got %d", updated.DurationMinutes)
	}

	badDuration := 0
	if _, err := f.mgr.Update(context.Background(), f.provider, svc.ID, UpdateInput{DurationMinutes: &badDuration}); apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("expected invalid duration to be rejected, got %v", err)
	}

	stranger := auth.Identity{UserID: uuid.New(), Role: auth.RoleProvider}
	name := "Hijacked"
	if _, err := f.mgr.Update(context.Background(), stranger, svc.ID, UpdateInput{Name: &name}); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestDeleteService_BlockedByBookings(t *testing.T) {
	f := newManagerFixture()

	svc, err := f.mgr.Create(context.Background(), f.provider, CreateInput{
		Name:            "Consultation",
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	f.bookings[svc.ID] = 3
	if err := f.mgr.Delete(context.Background(), f.provider, svc.ID); apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("expected delete with bookings to fail, got %v", err)
	}

	f.bookings[svc.ID] = 0
	if err := f.mgr.Delete(context.Background(), f.provider, svc.ID); err != nil {
		t.Errorf("expected delete without bookings to succeed, got %v", err)
	}
	if _, err := f.mgr.Get(context.Background(), svc.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected service to be gone, got %v", err)
	}
}

func TestSetActive(t *testing.T) {
	f := newManagerFixture()

	svc, err := f.mgr.Create(context.Background(), f.provider, CreateInput{
		Name:            "Consultation",
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	deactivated, err := f.mgr.SetActive(context.Background(), f.provider, svc.ID, false)
	if err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if deactivated.Active {
		t.Error("expected service to be inactive")
	}

	stranger := auth.Identity{UserID: uuid.New(), Role: auth.RoleProvider}
	if _, err := f.mgr.SetActive(context.Background(), stranger, svc.ID, true); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("expected forbidden, got %v", err)
	}

	reactivated, err := f.mgr.SetActive(context.Background(), f.admin, svc.ID, true)
	if err != nil {
		t.Fatalf("admin reactivate failed: %v", err)
	}
	if !reactivated.Active {
		t.Error("expected service to be active again")
	}
}
