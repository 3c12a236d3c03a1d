// Package migrate moves the legacy tables into the lending schema.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coreqcapital/coreq-migrate/internal/auth"
	"github.com/coreqcapital/coreq-migrate/internal/loan"
	"github.com/coreqcapital/coreq-migrate/internal/logger"
	"github.com/coreqcapital/coreq-migrate/internal/models"
	"github.com/coreqcapital/coreq-migrate/internal/source"
	"github.com/coreqcapital/coreq-migrate/internal/storage"
)

// Legacy table names.
const (
	TableUsers     = "Users"
	TableClients   = "client"
	TableItems     = "ITEMS"
	TableLoans     = "LOANS"
	TablePayments  = "PAYMENT TABLE"
	TableExpenses  = "EXPENDITURE"
	TableDefaulted = "defaulted items"
)

const reportedErrors = 5

// Source is the read side of a migration.
type Source interface {
	Rows(ctx context.Context, table string) (*source.RowSet, error)
	Count(ctx context.Context, table string) (int64, error)
}

// Migrator copies legacy rows into the target store table by table.
type Migrator struct {
	src   Source
	store storage.MigrationStore
	hash  Hasher
	now   func() time.Time
}

// NewMigrator builds a migrator hashing plaintext legacy passwords at bcryptCost.
func NewMigrator(src Source, store storage.MigrationStore, bcryptCost int) *Migrator {
	return &Migrator{
		src:   src,
		store: store,
		hash: func(pw string) (string, error) {
			return auth.HashPassword(pw, bcryptCost)
		},
		now: time.Now,
	}
}

type tableJob struct {
	source string
	target string
	insert func(ctx context.Context, row source.Row) error
}

// jobs run in foreign-key order: parents before children.
func (m *Migrator) jobs(now time.Time) []tableJob {
	return []tableJob{
		{TableUsers, "users", func(ctx context.Context, row source.Row) error {
			u, err := mapUser(row, m.hash)
			if err != nil {
				return err
			}
			return m.store.InsertUser(ctx, u)
		}},
		{TableClients, "borrowers", func(ctx context.Context, row source.Row) error {
			b, err := mapBorrower(row)
			if err != nil {
				return err
			}
			return m.store.InsertBorrower(ctx, b)
		}},
		{TableItems, "collaterals", func(ctx context.Context, row source.Row) error {
			c, err := mapCollateral(row)
			if err != nil {
				return err
			}
			return m.store.InsertCollateral(ctx, c)
		}},
		{TableLoans, "loans", func(ctx context.Context, row source.Row) error {
			l, err := mapLoan(row, now)
			if err != nil {
				return err
			}
			return m.store.InsertLoan(ctx, l)
		}},
		{TablePayments, "payments", func(ctx context.Context, row source.Row) error {
			p, err := mapPayment(row, now)
			if err != nil {
				return err
			}
			return m.store.InsertPayment(ctx, p)
		}},
		{TableExpenses, "expenses", func(ctx context.Context, row source.Row) error {
			e, err := mapExpense(row, now)
			if err != nil {
				return err
			}
			return m.store.InsertExpense(ctx, e)
		}},
	}
}

// Rebuild drops every managed table and recreates the schema.
func (m *Migrator) Rebuild(ctx context.Context) error {
	if err := m.store.DropAll(ctx); err != nil {
		return err
	}
	return m.CreateTables(ctx)
}

// CreateTables applies the target schema.
func (m *Migrator) CreateTables(ctx context.Context) error {
	if err := m.store.CreateSchema(ctx); err != nil {
		return err
	}
	logger.CtxInfo(ctx, "schema created")
	return nil
}

// MigrateData copies every legacy table. Row failures are logged and reported; a table
// that cannot be read does not stop the tables after it.
func (m *Migrator) MigrateData(ctx context.Context) []TableReport {
	now := m.now()
	var reports []TableReport
	for _, job := range m.jobs(now) {
		report := m.runJob(ctx, job)
		reports = append(reports, report)
		if report.Err != nil {
			logger.CtxError(ctx, "could not migrate table", report.Err, slog.String("table", job.source))
			continue
		}
		logger.CtxInfo(ctx, "table migrated",
			slog.String("source", job.source),
			slog.String("target", job.target),
			slog.Int("migrated", report.Migrated),
			slog.Int("total", report.Total))
	}
	return reports
}

func (m *Migrator) runJob(ctx context.Context, job tableJob) TableReport {
	set, err := m.src.Rows(ctx, job.source)
	if err != nil {
		return TableReport{Source: job.source, Target: job.target, Err: err}
	}
	outcomes := make([]Outcome, 0, len(set.Rows))
	for _, row := range set.Rows {
		o := Outcome{Key: text(row.At(0)), Err: job.insert(ctx, row)}
		if o.Err != nil {
			logger.CtxWarn(ctx, "row not migrated",
				slog.String("table", job.source),
				slog.String("key", o.Key),
				slog.String("error", logger.Truncate(o.Err.Error(), MaxErrorLength)))
		}
		outcomes = append(outcomes, o)
	}
	return Fold(job.source, job.target, outcomes)
}

// DefaultSettings are the lending parameters seeded after a full migration.
func DefaultSettings() models.Settings {
	return models.Settings{
		InterestRates:       loan.StandardRates(),
		PenaltyFee:          decimal.RequireFromString("3.00"),
		GracePeriodDays:     int(loan.GracePeriod / (24 * time.Hour)),
		LoanThreshold:       decimal.NewFromInt(12000),
		NegotiableThreshold: decimal.NewFromInt(50000),
	}
}

// Finish seeds default settings and moves the id sequences past the migrated ids.
func (m *Migrator) Finish(ctx context.Context) error {
	if err := m.store.SeedSettings(ctx, DefaultSettings()); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	if err := m.store.ResetSequences(ctx); err != nil {
		return err
	}
	logger.CtxInfo(ctx, "default settings created")
	return nil
}

// LogSummary writes the per-table result lines, including the first failures.
func LogSummary(ctx context.Context, reports []TableReport) {
	for _, r := range reports {
		if r.Err != nil || r.Failed() == 0 {
			continue
		}
		logger.CtxWarn(ctx, "table finished with failures",
			slog.String("table", r.Source),
			slog.Int("failed", r.Failed()),
			slog.Any("first_errors", r.FirstErrors(reportedErrors)))
	}
}
