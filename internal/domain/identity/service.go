package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voidsystems/appointment-service/internal/platform/apperr"
	"github.com/voidsystems/appointment-service/internal/platform/auth"
)

// Service implements account registration, login and user management.
type Service struct {
	users  Repository
	tokens *auth.TokenIssuer
	logger zerolog.Logger
}

func NewService(users Repository, tokens *auth.TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{users: users, tokens: tokens, logger: logger}
}

type RegisterInput struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	UserType    string  `json:"user_type"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	User      *User  `json:"user"`
}

type UpdateInput struct {
	Email       *string `json:"email,omitempty"`
	Password    *string `json:"password,omitempty"`
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Register creates a client or provider account and returns a token.
// Admin accounts are created through the seed command, never via the API.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, apperr.BadRequest("a valid email is required")
	}
	if in.FirstName == "" || in.LastName == "" {
		return nil, apperr.BadRequest("first name and last name are required")
	}

	role, ok := auth.ParseRole(in.UserType)
	if !ok || role == auth.RoleAdmin {
		return nil, apperr.BadRequest("user_type must be CLIENT or PROVIDER")
	}
	if role != auth.RoleProvider && (in.Title != nil || in.Description != nil) {
		return nil, apperr.BadRequest("title and description are only valid for provider accounts")
	}

	exists, err := s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if exists {
		return nil, apperr.BadRequest("email is already in use")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.BadRequest("%s", err.Error())
	}

	user := &User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		Type:         role,
		Title:        in.Title,
		Description:  in.Description,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Str("user_type", string(role)).Msg("user registered")
	return s.authResponse(user)
}

// Login verifies credentials and returns a token.
func (s *Service) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, apperr.Internal(err)
	}
	if !auth.CheckPassword(user.PasswordHash, creds.Password) {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	return s.authResponse(user)
}

func (s *Service) authResponse(user *User) (*AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID, user.Type, user.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AuthResponse{
		Token:     token,
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
		User:      user,
	}, nil
}

// Get returns a user profile. Provider profiles are visible to any
// authenticated caller; other profiles only to their owner or an admin.
func (s *Service) Get(ctx context.Context, actor auth.Identity, id uuid.UUID) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal(err)
	}
	if !user.IsProvider() && !actor.CanActFor(id) {
		return nil, apperr.Forbidden("you do not have access to this user")
	}
	return user, nil
}

func (s *Service) List(ctx context.Context, actor auth.Identity, limit, offset int) ([]*User, int, error) {
	if !actor.IsAdmin() {
		return nil, 0, apperr.Forbidden("only admins can list users")
	}
	items, total, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) ListClients(ctx context.Context, actor auth.Identity, limit, offset int) ([]*User, int, error) {
	if !actor.IsAdmin() {
		return nil, 0, apperr.Forbidden("only admins can list clients")
	}
	items, total, err := s.users.ListByType(ctx, auth.RoleClient, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) ListProviders(ctx context.Context, limit, offset int) ([]*User, int, error) {
	items, total, err := s.users.ListByType(ctx, auth.RoleProvider, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

// Update applies a partial update to a user profile.
func (s *Service) Update(ctx context.Context, actor auth.Identity, id uuid.UUID, in UpdateInput) (*User, error) {
	if !actor.CanActFor(id) {
		return nil, apperr.Forbidden("you can only update your own profile")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal(err)
	}

	if in.Email != nil && !strings.EqualFold(*in.Email, user.Email) {
		exists, err := s.users.ExistsByEmail(ctx, *in.Email)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if exists {
			return nil, apperr.BadRequest("email is already in use")
		}
		user.Email = *in.Email
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, apperr.BadRequest("%s", err.Error())
		}
		user.PasswordHash = hash
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.PhoneNumber != nil {
		user.PhoneNumber = in.PhoneNumber
	}
	if in.Title != nil || in.Description != nil {
		if !user.IsProvider() {
			return nil, apperr.BadRequest("title and description are only valid for provider accounts")
		}
		if in.Title != nil {
			user.Title = in.Title
		}
		if in.Description != nil {
			user.Description = in.Description
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperr.Internal(err)
	}
	return user, nil
}

// Delete removes a user account. Admin only.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("only admins can delete users")
	}
	if _, err := s.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal(err)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// ClientExists reports whether a client account with the id exists.
func (s *Service) ClientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.existsWithType(ctx, id, auth.RoleClient)
}

// ProviderExists reports whether a provider account with the id exists.
func (s *Service) ProviderExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.existsWithType(ctx, id, auth.RoleProvider)
}

func (s *Service) existsWithType(ctx context.Context, id uuid.UUID, t auth.Role) (bool, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.Type == t, nil
}
