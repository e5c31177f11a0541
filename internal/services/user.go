package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cbt-marketplace/apiserver/internal/auth"
	"github.com/cbt-marketplace/apiserver/internal/events"
	"github.com/cbt-marketplace/apiserver/internal/policy"
	"github.com/cbt-marketplace/apiserver/internal/store"
	"github.com/cbt-marketplace/apiserver/internal/validation"
	"github.com/cbt-marketplace/apiserver/types"
)

const minPasswordLength = 6

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context, filter types.UserFilter, offset, limit int) ([]types.User, int, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	// CreateWithClient atomically creates a user and its empty client profile.
	CreateWithClient(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

// Registration is the input of a self-service sign up.
type Registration struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Avatar   string `json:"avatar"`
}

// UserService encapsulates account use-cases.
type UserService struct {
	users  UserRepository
	policy *policy.Policy
	events events.Publisher
	logger *slog.Logger
}

func NewUserService(users UserRepository, pol *policy.Policy, publisher events.Publisher, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		policy: pol,
		events: publisher,
		logger: logger,
	}
}

// Register creates an active account. Administrators cannot sign up; client
// accounts get an empty client profile.
func (s *UserService) Register(ctx context.Context, reg Registration) (types.User, error) {
	v := validation.Violations{}
	validation.Email("email", reg.Email, v)
	validation.Required("name", reg.Name, v)
	validation.MinLength("password", reg.Password, minPasswordLength, v)
	role, err := types.ParseRole(reg.Role)
	if err != nil {
		v.Add("role", "invalid")
	} else if role == types.RoleAdmin {
		v.Add("role", "not_allowed")
	}
	if err := invalid(v); err != nil {
		return types.User{}, err
	}

	user, err := s.createUser(ctx, types.User{
		Email:    reg.Email,
		Name:     strings.TrimSpace(reg.Name),
		Role:     role,
		Avatar:   strings.TrimSpace(reg.Avatar),
		IsActive: true,
	}, reg.Password)
	if err != nil {
		return types.User{}, err
	}

	events.Emit(ctx, s.events, s.logger, events.New(events.UserRegistered, user.ID, user.ID, map[string]string{
		"role": string(user.Role),
	}))
	return user, nil
}

// CreateAdmin creates a verified administrator account.
func (s *UserService) CreateAdmin(ctx context.Context, email, name, password string) (types.User, error) {
	v := validation.Violations{}
	validation.Email("email", email, v)
	validation.Required("name", name, v)
	validation.MinLength("password", password, minPasswordLength, v)
	if err := invalid(v); err != nil {
		return types.User{}, err
	}

	return s.createUser(ctx, types.User{
		Email:      email,
		Name:       strings.TrimSpace(name),
		Role:       types.RoleAdmin,
		IsActive:   true,
		IsVerified: true,
	}, password)
}

func (s *UserService) createUser(ctx context.Context, user types.User, password string) (types.User, error) {
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hashed
	if user.Role == types.RoleClient {
		return s.users.CreateWithClient(ctx, user)
	}
	return s.users.Create(ctx, user)
}

// Authenticate checks an email/password pair.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return types.User{}, ErrInactiveUser
	}
	return user, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.users.GetByEmail(ctx, email)
}

// UpdateSelf patches the actor's own account.
func (s *UserService) UpdateSelf(ctx context.Context, actor types.User, changes types.UserChanges) (types.User, error) {
	if err := s.policy.Authorize(actor, policy.ActionUpdate, policy.ResourceUser, actor); err != nil {
		return types.User{}, err
	}

	v := validation.Violations{}
	if changes.Email != nil {
		validation.Email("email", *changes.Email, v)
	}
	if changes.Name != nil {
		validation.Required("name", *changes.Name, v)
	}
	if changes.Password != nil {
		validation.MinLength("password", *changes.Password, minPasswordLength, v)
	}
	if err := invalid(v); err != nil {
		return types.User{}, err
	}

	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return types.User{}, err
	}
	changes.Apply(&user)
	if changes.Password != nil {
		if user.PasswordHash, err = auth.HashPassword(*changes.Password); err != nil {
			return types.User{}, fmt.Errorf("hash password: %w", err)
		}
	}
	return s.users.Update(ctx, user)
}

// List returns accounts for administrators.
func (s *UserService) List(ctx context.Context, actor types.User, filter types.UserFilter, offset, limit int) ([]types.User, int, error) {
	if err := s.policy.Authorize(actor, policy.ActionList, policy.ResourceUser, nil); err != nil {
		return nil, 0, err
	}
	offset, limit = page(offset, limit)
	return s.users.List(ctx, filter, offset, limit)
}
