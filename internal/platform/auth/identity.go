package auth

import (
	"context"

	"github.com/google/uuid"
)

// Role is the account type carried in the JWT role claim.
type Role string

const (
	RoleClient   Role = "CLIENT"
	RoleProvider Role = "PROVIDER"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleClient, RoleProvider, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Identity is the authenticated caller, threaded explicitly through
// service calls instead of being read from ambient global state.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Is reports whether the identity belongs to the given user.
func (i Identity) Is(userID uuid.UUID) bool {
	return i.UserID == userID
}

// CanActFor reports whether the identity may act on resources owned by
// the given user. Admins may act for anyone.
func (i Identity) CanActFor(ownerID uuid.UUID) bool {
	return i.IsAdmin() || i.UserID == ownerID
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
