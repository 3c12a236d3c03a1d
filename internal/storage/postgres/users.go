package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/coreqcapital/coreq-migrate/internal/models"
	"github.com/coreqcapital/coreq-migrate/internal/storage"
)

const userColumns = `id, username, COALESCE(email, ''), password_hash, role, permissions, is_active, created_at, updated_at`

// FindByID fetches a user by primary key.
func (s *Store) FindByID(ctx context.Context, id int64) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByUsernameOrEmail fetches the first user matching the identifier as username or email.
func (s *Store) FindByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1 ORDER BY id LIMIT 1`
	row := s.pool.QueryRow(ctx, query, identifier)
	return scanUser(row)
}

// UpdatePassword replaces a user's password hash.
func (s *Store) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateEmail replaces a user's email address.
func (s *Store) UpdateEmail(ctx context.Context, id int64, email string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET email = $1, updated_at = NOW() WHERE id = $2`, email, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpsertAdmin finds the admin by email, then by username, and resets its password,
// role and active flag. A missing email is filled in. When neither matches, the admin
// is inserted. The bool reports whether a row was inserted.
func (s *Store) UpsertAdmin(ctx context.Context, user models.User) (models.User, bool, error) {
	perms := user.Permissions
	if perms == nil {
		perms = models.DefaultPermissions(models.AdminRole)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.User{}, false, fmt.Errorf("upsert admin: %w", err)
	}
	defer tx.Rollback(ctx)

	const find = `
		SELECT id FROM users
		WHERE email = $1 OR username = $2
		ORDER BY (email = $1) DESC NULLS LAST, id
		LIMIT 1
		FOR UPDATE`
	var id int64
	err = tx.QueryRow(ctx, find, user.Email, user.Username).Scan(&id)
	inserted := errors.Is(err, pgx.ErrNoRows)
	if err != nil && !inserted {
		return models.User{}, false, fmt.Errorf("upsert admin: find: %w", translate(err))
	}

	var row pgx.Row
	if inserted {
		row = tx.QueryRow(ctx, `
			INSERT INTO users (username, email, password_hash, role, permissions, is_active)
			VALUES ($1, $2, $3, 'admin', $4, TRUE)
			RETURNING `+userColumns, user.Username, nullable(user.Email), user.PasswordHash, perms)
	} else {
		row = tx.QueryRow(ctx, `
			UPDATE users
			SET password_hash = $2,
				role = 'admin',
				permissions = $3,
				is_active = TRUE,
				email = COALESCE(NULLIF(email, ''), $4),
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns, id, user.PasswordHash, perms, nullable(user.Email))
	}
	out, err := scanUser(row)
	if err != nil {
		return models.User{}, false, fmt.Errorf("upsert admin: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.User{}, false, fmt.Errorf("upsert admin: commit: %w", err)
	}
	return out, inserted, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role,
		&user.Permissions, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return models.User{}, translate(err)
	}
	return user, nil
}
