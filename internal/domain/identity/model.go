package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/voidsystems/appointment-service/internal/platform/auth"
)

// User is a single account record. The Type field discriminates the
// account kind; role-specific fields are only set for the matching type.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	PhoneNumber  *string   `db:"phone_number" json:"phone_number,omitempty"`
	Type         auth.Role `db:"user_type" json:"user_type"`

	// Provider fields
	Title       *string `db:"title" json:"title,omitempty"`
	Description *string `db:"description" json:"description,omitempty"`

	// Admin fields
	SuperAdmin *bool `db:"super_admin" json:"super_admin,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) IsClient() bool   { return u.Type == auth.RoleClient }
func (u *User) IsProvider() bool { return u.Type == auth.RoleProvider }
func (u *User) IsAdmin() bool    { return u.Type == auth.RoleAdmin }
