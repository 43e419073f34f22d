package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/voidsystems/appointment-service/internal/platform/auth"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	ListByType(ctx context.Context, t auth.Role, limit, offset int) ([]*User, int, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
