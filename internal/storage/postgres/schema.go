package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// managedTables are created in this order and dropped in reverse.
var managedTables = []string{"users", "borrowers", "collaterals", "loans", "payments", "expenses", "settings"}

func isManaged(table string) bool {
	for _, t := range managedTables {
		if t == table {
			return true
		}
	}
	return table == "migration_runs"
}

var schemaStmts = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'employee' CHECK (role IN ('admin', 'employee')),
		permissions JSONB NOT NULL DEFAULT '[]',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS borrowers (
		id SERIAL PRIMARY KEY,
		full_name TEXT NOT NULL,
		id_number TEXT NOT NULL UNIQUE,
		phone_number TEXT NOT NULL,
		emergency_number TEXT,
		email TEXT,
		location TEXT NOT NULL,
		apartment TEXT,
		house_number TEXT,
		is_student BOOLEAN NOT NULL DEFAULT FALSE,
		institution TEXT,
		registration_number TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS collaterals (
		id SERIAL PRIMARY KEY,
		borrower_id INTEGER NOT NULL REFERENCES borrowers(id) ON DELETE CASCADE,
		category TEXT,
		item_name TEXT NOT NULL,
		model_number TEXT,
		serial_number TEXT,
		item_condition TEXT,
		is_seized BOOLEAN NOT NULL DEFAULT FALSE,
		is_sold BOOLEAN NOT NULL DEFAULT FALSE,
		sold_price NUMERIC(10,2),
		sold_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS loans (
		id SERIAL PRIMARY KEY,
		borrower_id INTEGER NOT NULL REFERENCES borrowers(id) ON DELETE CASCADE,
		collateral_id INTEGER NOT NULL REFERENCES collaterals(id) ON DELETE CASCADE,
		amount_issued NUMERIC(10,2) NOT NULL,
		date_issued TIMESTAMPTZ NOT NULL,
		loan_period INTEGER NOT NULL,
		interest_rate NUMERIC(5,2) NOT NULL,
		due_date TIMESTAMPTZ NOT NULL,
		grace_period_end TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'due', 'pastDue', 'defaulted', 'paid')),
		total_amount NUMERIC(10,2) NOT NULL,
		penalties NUMERIC(10,2) NOT NULL DEFAULT 0,
		is_negotiable BOOLEAN NOT NULL DEFAULT FALSE,
		last_penalty_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS loans_collateral_id_idx ON loans (collateral_id);`,
	`CREATE INDEX IF NOT EXISTS loans_status_idx ON loans (status);`,
	`CREATE TABLE IF NOT EXISTS payments (
		id SERIAL PRIMARY KEY,
		loan_id INTEGER NOT NULL REFERENCES loans(id) ON DELETE CASCADE,
		amount NUMERIC(10,2) NOT NULL,
		payment_date TIMESTAMPTZ NOT NULL,
		note TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id SERIAL PRIMARY KEY,
		category TEXT NOT NULL,
		name TEXT NOT NULL,
		date TIMESTAMPTZ NOT NULL,
		amount NUMERIC(10,2) NOT NULL,
		added_by INTEGER REFERENCES users(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS settings (
		id SERIAL PRIMARY KEY,
		interest_rates JSONB NOT NULL,
		penalty_fee NUMERIC(5,2) NOT NULL DEFAULT 3.00,
		grace_period INTEGER NOT NULL DEFAULT 7,
		loan_threshold NUMERIC(10,2) NOT NULL DEFAULT 12000.00,
		negotiable_threshold NUMERIC(10,2) NOT NULL DEFAULT 50000.00,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS migration_runs (
		id UUID PRIMARY KEY,
		mode TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		migrated INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		all_match BOOLEAN NOT NULL DEFAULT FALSE
	);`,
}

// CreateSchema applies the target DDL. Every statement is idempotent.
func (s *Store) CreateSchema(ctx context.Context) error {
	for _, stmt := range schemaStmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// DropAll removes the managed lending tables. The migration_runs audit trail survives.
func (s *Store) DropAll(ctx context.Context) error {
	for i := len(managedTables) - 1; i >= 0; i-- {
		stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", pgx.Identifier{managedTables[i]}.Sanitize())
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("drop %s: %w", managedTables[i], err)
		}
	}
	return nil
}

// ResetSequences moves each serial past the highest migrated id so the backend's
// own inserts do not collide with legacy ids.
func (s *Store) ResetSequences(ctx context.Context) error {
	for _, table := range managedTables {
		stmt := fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)`,
			table, pgx.Identifier{table}.Sanitize())
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}
	return nil
}
