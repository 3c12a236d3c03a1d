package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreqcapital/coreq-migrate/internal/models"
	"github.com/coreqcapital/coreq-migrate/internal/models/dto"
	"github.com/coreqcapital/coreq-migrate/internal/storage"
)

// ErrInvalidCredentials covers both an unknown identifier and a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInactiveUser is returned when a disabled account tries to log in.
var ErrInactiveUser = errors.New("user is inactive")

// Credentials patches and checks staff logins on the target database.
type Credentials struct {
	store  storage.UserStore
	tokens *TokenManager
	cost   int
}

// NewCredentials builds the credential service. tokens may be nil when no login is checked.
func NewCredentials(store storage.UserStore, tokens *TokenManager, bcryptCost int) *Credentials {
	return &Credentials{store: store, tokens: tokens, cost: bcryptCost}
}

// SetPassword replaces the password of user id.
func (c *Credentials) SetPassword(ctx context.Context, id int64, password string) (models.User, error) {
	if strings.TrimSpace(password) == "" {
		return models.User{}, errors.New("password is required")
	}
	hash, err := HashPassword(password, c.cost)
	if err != nil {
		return models.User{}, err
	}
	if err := c.store.UpdatePassword(ctx, id, hash); err != nil {
		return models.User{}, fmt.Errorf("update password for user %d: %w", id, err)
	}
	return c.store.FindByID(ctx, id)
}

// SetEmail replaces the email of user id. A taken address yields storage.ErrAlreadyExists.
func (c *Credentials) SetEmail(ctx context.Context, id int64, email string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return models.User{}, fmt.Errorf("invalid email %q", email)
	}
	if err := c.store.UpdateEmail(ctx, id, email); err != nil {
		return models.User{}, fmt.Errorf("update email for user %d: %w", id, err)
	}
	return c.store.FindByID(ctx, id)
}

// EnsureAdmin creates the admin account or resets its password and reactivates it.
// The bool reports whether the account was created.
func (c *Credentials) EnsureAdmin(ctx context.Context, username, email, password string) (models.User, bool, error) {
	if strings.TrimSpace(password) == "" {
		return models.User{}, false, errors.New("password is required")
	}
	hash, err := HashPassword(password, c.cost)
	if err != nil {
		return models.User{}, false, err
	}
	return c.store.UpsertAdmin(ctx, models.User{
		Username:     strings.TrimSpace(username),
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Role:         models.AdminRole,
		Permissions:  models.DefaultPermissions(models.AdminRole),
		IsActive:     true,
	})
}

// Login checks identifier and password and mints a token for the matching user.
func (c *Credentials) Login(ctx context.Context, identifier, password string) (dto.LoginResponse, error) {
	if c.tokens == nil {
		return dto.LoginResponse{}, errors.New("token manager not configured")
	}
	user, err := c.store.FindByUsernameOrEmail(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, fmt.Errorf("fetch user: %w", err)
	}
	if err := ComparePassword(user.PasswordHash, password); err != nil {
		return dto.LoginResponse{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return dto.LoginResponse{}, ErrInactiveUser
	}
	token, err := c.tokens.Generate(user)
	if err != nil {
		return dto.LoginResponse{}, fmt.Errorf("generate token: %w", err)
	}
	return dto.LoginResponse{Token: token, User: user}, nil
}
