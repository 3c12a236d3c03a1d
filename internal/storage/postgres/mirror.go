package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/coreqcapital/coreq-migrate/internal/storage"
)

// MirrorSchema holds verbatim copies of the legacy tables.
const MirrorSchema = "legacy"

func mirrorIdent(table string) string {
	return pgx.Identifier{MirrorSchema, table}.Sanitize()
}

// CreateMirrorTable drops and recreates legacy.<table> with the given columns.
func (s *Store) CreateMirrorTable(ctx context.Context, table string, columns []storage.MirrorColumn) error {
	if len(columns) == 0 {
		return fmt.Errorf("mirror %s: no columns", table)
	}
	if _, err := s.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{MirrorSchema}.Sanitize()); err != nil {
		return fmt.Errorf("create mirror schema: %w", err)
	}
	if _, err := s.pool.Exec(ctx, "DROP TABLE IF EXISTS "+mirrorIdent(table)+" CASCADE"); err != nil {
		return fmt.Errorf("drop mirror %s: %w", table, err)
	}

	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		def := pgx.Identifier{c.Name}.Sanitize() + " " + c.Type
		switch {
		case c.PrimaryKey:
			def += " PRIMARY KEY"
		case c.NotNull:
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", mirrorIdent(table), strings.Join(defs, ", "))
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create mirror %s: %w", table, err)
	}
	return nil
}

// InsertMirrorRow copies one legacy row unchanged.
func (s *Store) InsertMirrorRow(ctx context.Context, table string, columns []storage.MirrorColumn, values []any) error {
	if len(values) != len(columns) {
		return fmt.Errorf("mirror %s: %d values for %d columns", table, len(values), len(columns))
	}
	names := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		names[i] = pgx.Identifier{c.Name}.Sanitize()
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		mirrorIdent(table), strings.Join(names, ", "), strings.Join(params, ", "))
	_, err := s.pool.Exec(ctx, stmt, values...)
	return translate(err)
}

// CountMirror returns the row count of legacy.<table>.
func (s *Store) CountMirror(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+mirrorIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count mirror %s: %w", table, err)
	}
	return n, nil
}
