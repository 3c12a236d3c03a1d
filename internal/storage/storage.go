package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/coreqcapital/coreq-migrate/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures the credential operations used by the patch tool and the ops login.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (models.User, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateEmail(ctx context.Context, id int64, email string) error
	// UpsertAdmin creates the admin identified by email, or reactivates it with a new
	// password. The bool reports whether a row was inserted.
	UpsertAdmin(ctx context.Context, user models.User) (models.User, bool, error)
}

// MigrationStore captures the target-side operations of the migration pipeline.
type MigrationStore interface {
	DropAll(ctx context.Context) error
	CreateSchema(ctx context.Context) error
	InsertUser(ctx context.Context, user models.User) error
	InsertBorrower(ctx context.Context, b models.Borrower) error
	InsertCollateral(ctx context.Context, c models.Collateral) error
	InsertLoan(ctx context.Context, l models.Loan) error
	InsertPayment(ctx context.Context, p models.Payment) error
	InsertExpense(ctx context.Context, e models.Expense) error
	SeedSettings(ctx context.Context, s models.Settings) error
	ResetSequences(ctx context.Context) error
	Count(ctx context.Context, table string) (int64, error)
	RecordRun(ctx context.Context, run models.MigrationRun) error
}

// LoanStatusStore captures the status derivation and rate repair queries.
type LoanStatusStore interface {
	OpenLoans(ctx context.Context) ([]models.Loan, error)
	SetLoanStatus(ctx context.Context, loanID int64, status models.LoanStatus) error
	SeizeCollateral(ctx context.Context, collateralID int64) error
	ApplyDefaultedItem(ctx context.Context, item models.DefaultedItem) (bool, error)
	DefaultLoansForCollateral(ctx context.Context, collateralID int64) (int64, error)
	StatusSummary(ctx context.Context) (map[models.LoanStatus]int64, error)
	NonNegotiableLoans(ctx context.Context) ([]models.Loan, error)
	UpdateLoanPricing(ctx context.Context, loanID int64, rate, total decimal.Decimal) error
}

// MirrorColumn is a column of a verbatim legacy copy, already mapped to a target type.
type MirrorColumn struct {
	Name       string
	Type       string
	PrimaryKey bool
	NotNull    bool
}

// MirrorStore holds verbatim copies of legacy tables in their own schema.
type MirrorStore interface {
	CreateMirrorTable(ctx context.Context, table string, columns []MirrorColumn) error
	InsertMirrorRow(ctx context.Context, table string, columns []MirrorColumn, values []any) error
	CountMirror(ctx context.Context, table string) (int64, error)
}
