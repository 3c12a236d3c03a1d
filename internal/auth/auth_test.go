package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreqcapital/coreq-migrate/internal/models"
	"github.com/coreqcapital/coreq-migrate/internal/storage"
)

type userStoreStub struct {
	users    map[int64]models.User
	upserted *models.User
}

func newUserStoreStub(users ...models.User) *userStoreStub {
	s := &userStoreStub{users: map[int64]models.User{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *userStoreStub) FindByID(_ context.Context, id int64) (models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *userStoreStub) FindByUsernameOrEmail(_ context.Context, identifier string) (models.User, error) {
	for _, u := range s.users {
		if u.Username == identifier || u.Email == identifier {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (s *userStoreStub) UpdatePassword(_ context.Context, id int64, hash string) error {
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.PasswordHash = hash
	s.users[id] = u
	return nil
}

func (s *userStoreStub) UpdateEmail(_ context.Context, id int64, email string) error {
	for _, u := range s.users {
		if u.Email == email && u.ID != id {
			return storage.ErrAlreadyExists
		}
	}
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Email = email
	s.users[id] = u
	return nil
}

func (s *userStoreStub) UpsertAdmin(_ context.Context, user models.User) (models.User, bool, error) {
	s.upserted = &user
	match := func(same func(models.User) bool) (models.User, bool) {
		for id, u := range s.users {
			if same(u) {
				if u.Email != "" {
					user.Email = u.Email
				}
				user.ID = id
				s.users[id] = user
				return user, true
			}
		}
		return models.User{}, false
	}
	if u, ok := match(func(u models.User) bool { return user.Email != "" && u.Email == user.Email }); ok {
		return u, false, nil
	}
	if u, ok := match(func(u models.User) bool { return u.Username == user.Username }); ok {
		return u, false, nil
	}
	user.ID = int64(len(s.users) + 1)
	s.users[user.ID] = user
	return user, true, nil
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := HashPassword(pw, 4)
	require.NoError(t, err)
	return h
}

func TestHashPassword(t *testing.T) {
	h := mustHash(t, "s3cret")
	assert.True(t, IsHash(h))
	assert.False(t, IsHash("s3cret"))
	assert.NoError(t, ComparePassword(h, "s3cret"))
	assert.ErrorIs(t, ComparePassword(h, "wrong"), ErrInvalidCredentials)

	// out-of-range cost falls back to the default
	h, err := HashPassword("x", 99)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h, "$2a$08$"))
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "coreq-loans", time.Hour)
	token, err := tm.Generate(models.User{ID: 42, Username: "admin", Role: models.AdminRole})
	require.NoError(t, err)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, Claims{UserID: 42, Username: "admin", Role: "admin"}, claims)

	_, err = NewTokenManager("other", "coreq-loans", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = NewTokenManager("secret", "someone-else", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsExpiredAndUnsigned(t *testing.T) {
	tm := NewTokenManager("secret", "coreq-loans", -time.Minute)
	token, err := tm.Generate(models.User{ID: 1})
	require.NoError(t, err)
	_, err = tm.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"iss": "coreq-loans", "sub": "1", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewTokenManager("secret", "coreq-loans", time.Hour).Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCredentials_SetPasswordAndEmail(t *testing.T) {
	store := newUserStoreStub(
		models.User{ID: 1, Username: "admin", Email: "old@coreqcapital.com"},
		models.User{ID: 2, Username: "clerk", Email: "clerk@coreqcapital.com"},
	)
	c := NewCredentials(store, nil, 4)
	ctx := context.Background()

	u, err := c.SetPassword(ctx, 1, "n3w-pass")
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(u.PasswordHash, "n3w-pass"))

	_, err = c.SetPassword(ctx, 9, "n3w-pass")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = c.SetPassword(ctx, 1, " ")
	assert.Error(t, err)

	u, err = c.SetEmail(ctx, 1, " admin@coreqcapital.com ")
	require.NoError(t, err)
	assert.Equal(t, "admin@coreqcapital.com", u.Email)

	_, err = c.SetEmail(ctx, 1, "clerk@coreqcapital.com")
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	_, err = c.SetEmail(ctx, 1, "not-an-email")
	assert.Error(t, err)
}

func TestCredentials_EnsureAdmin(t *testing.T) {
	store := newUserStoreStub()
	c := NewCredentials(store, nil, 4)

	u, created, err := c.EnsureAdmin(context.Background(), "admin", "admin@coreqcapital.com", "pw")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.AdminRole, u.Role)
	assert.True(t, u.IsActive)
	assert.NoError(t, ComparePassword(u.PasswordHash, "pw"))
	assert.ElementsMatch(t, models.DefaultPermissions(models.AdminRole), store.upserted.Permissions)

	_, created, err = c.EnsureAdmin(context.Background(), "admin", "admin@coreqcapital.com", "pw2")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestCredentials_EnsureAdmin_AdoptsMigratedAdmin(t *testing.T) {
	store := newUserStoreStub(models.User{ID: 1, Username: "admin", PasswordHash: "$2a$08$legacy", Role: models.AdminRole})
	c := NewCredentials(store, nil, 4)

	u, created, err := c.EnsureAdmin(context.Background(), "admin", "admin@coreqcapital.com", "pw")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "admin@coreqcapital.com", u.Email)
	assert.True(t, u.IsAdmin())
	assert.True(t, u.IsActive)
	assert.Len(t, store.users, 1)
}

func TestCredentials_Login(t *testing.T) {
	store := newUserStoreStub(
		models.User{ID: 1, Username: "admin", Email: "admin@coreqcapital.com", PasswordHash: mustHash(t, "pw"), Role: models.AdminRole, IsActive: true},
		models.User{ID: 2, Username: "gone", PasswordHash: mustHash(t, "pw"), IsActive: false},
	)
	tm := NewTokenManager("secret", "coreq-loans", time.Hour)
	c := NewCredentials(store, tm, 4)
	ctx := context.Background()

	res, err := c.Login(ctx, "admin@coreqcapital.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.User.ID)
	claims, err := tm.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, models.AdminRole, claims.Role)

	_, err = c.Login(ctx, "admin", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = c.Login(ctx, "nobody", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = c.Login(ctx, "gone", "pw")
	assert.True(t, errors.Is(err, ErrInactiveUser))

	_, err = NewCredentials(store, nil, 4).Login(ctx, "admin", "pw")
	assert.Error(t, err)
}
