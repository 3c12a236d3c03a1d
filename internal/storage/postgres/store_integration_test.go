package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreqcapital/coreq-migrate/internal/models"
	"github.com/coreqcapital/coreq-migrate/internal/storage"
)

// TestStoreIntegration rebuilds the lending schema on a scratch database and walks the
// migrate, status and credential paths. It drops every managed table.
func TestStoreIntegration(t *testing.T) {
	if os.Getenv("RUN_PG_INTEGRATION") != "true" {
		t.Skip("set RUN_PG_INTEGRATION=true to run this integration test")
	}
	loadDotEnv()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	store, err := NewStore(ctx, dbURL)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.DropAll(ctx))
	require.NoError(t, store.CreateSchema(ctx))
	require.NoError(t, store.CreateSchema(ctx), "schema statements must be idempotent")

	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertUser(ctx, models.User{
		ID: 1, Username: "admin", PasswordHash: "$2a$08$abc", Role: models.AdminRole, IsActive: true,
	}))
	require.NoError(t, store.InsertUser(ctx, models.User{
		ID: 2, Username: "root", PasswordHash: "$2a$08$legacy", Role: models.EmployeeRole, IsActive: false,
	}))
	require.NoError(t, store.InsertBorrower(ctx, models.Borrower{
		ID: 10, FullName: "Jane Doe", IDNumber: "10", PhoneNumber: "0700", Location: "Nairobi",
	}))
	err = store.InsertBorrower(ctx, models.Borrower{ID: 11, FullName: "Dup", IDNumber: "10", PhoneNumber: "0", Location: "x"})
	assert.True(t, errors.Is(err, storage.ErrAlreadyExists))

	require.NoError(t, store.InsertCollateral(ctx, models.Collateral{ID: 100, BorrowerID: 10, ItemName: "Laptop"}))
	require.NoError(t, store.InsertLoan(ctx, models.Loan{
		ID: 1000, BorrowerID: 10, CollateralID: 100, AmountIssued: decimal.NewFromInt(1000),
		DateIssued: issued, LoanPeriod: 1, InterestRate: decimal.NewFromInt(25),
		DueDate: issued.AddDate(0, 0, 7), GracePeriodEnd: issued.AddDate(0, 0, 14),
		TotalAmount: decimal.NewFromInt(1250),
	}))
	require.NoError(t, store.InsertPayment(ctx, models.Payment{ID: 5, LoanID: 1000, Amount: decimal.NewFromInt(100), PaymentDate: issued}))
	require.NoError(t, store.InsertExpense(ctx, models.Expense{ID: 7, Category: "Rent", Name: "Rent", Date: issued, Amount: decimal.NewFromInt(50)}))
	require.NoError(t, store.SeedSettings(ctx, models.Settings{
		InterestRates: map[string]int{"1": 20}, PenaltyFee: decimal.NewFromInt(3), GracePeriodDays: 7,
		LoanThreshold: decimal.NewFromInt(12000), NegotiableThreshold: decimal.NewFromInt(50000),
	}))
	require.NoError(t, store.ResetSequences(ctx))

	n, err := store.Count(ctx, "loans")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = store.Count(ctx, "pg_class")
	assert.Error(t, err)

	open, err := store.OpenLoans(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, issued.AddDate(0, 0, 14), open[0].GracePeriodEnd.UTC())

	candidates, err := store.NonNegotiableLoans(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.NoError(t, store.UpdateLoanPricing(ctx, 1000, decimal.NewFromInt(20), decimal.NewFromInt(1200)))
	assert.ErrorIs(t, store.UpdateLoanPricing(ctx, 9999, decimal.Zero, decimal.Zero), storage.ErrNotFound)

	found, err := store.ApplyDefaultedItem(ctx, models.DefaultedItem{ItemID: 100, Sold: true, Amount: decimal.NewNullDecimal(decimal.NewFromInt(800))})
	require.NoError(t, err)
	assert.True(t, found)
	affected, err := store.DefaultLoansForCollateral(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	summary, err := store.StatusSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary[models.StatusDefaulted])
	assert.Len(t, summary, len(models.AllStatuses))
	assert.Zero(t, summary[models.StatusPaid])

	open, err = store.OpenLoans(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	require.NoError(t, store.UpdateEmail(ctx, 1, "admin@example.com"))
	user, err := store.FindByUsernameOrEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.ErrorIs(t, store.UpdatePassword(ctx, 404, "x"), storage.ErrNotFound)

	_, inserted, err := store.UpsertAdmin(ctx, models.User{
		Username: "admin", Email: "admin@example.com", PasswordHash: "$2a$08$new",
		Role: models.AdminRole, Permissions: models.DefaultPermissions(models.AdminRole), IsActive: true,
	})
	require.NoError(t, err)
	assert.False(t, inserted)

	// a migrated user without an email is matched by username and adopts the email
	root, inserted, err := store.UpsertAdmin(ctx, models.User{
		Username: "root", Email: "root@example.com", PasswordHash: "$2a$08$fresh",
	})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, int64(2), root.ID)
	assert.Equal(t, "root@example.com", root.Email)
	assert.Equal(t, models.AdminRole, root.Role)
	assert.True(t, root.IsActive)
	assert.Equal(t, "$2a$08$fresh", root.PasswordHash)

	created, inserted, err := store.UpsertAdmin(ctx, models.User{
		Username: "ops", Email: "ops@example.com", PasswordHash: "$2a$08$ops",
	})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "ops@example.com", created.Email)
	assert.Greater(t, created.ID, int64(2))

	cols := []storage.MirrorColumn{{Name: "ID", Type: "INTEGER", PrimaryKey: true}, {Name: "Name", Type: "TEXT"}}
	require.NoError(t, store.CreateMirrorTable(ctx, "client", cols))
	require.NoError(t, store.InsertMirrorRow(ctx, "client", cols, []any{int64(1), "Jane"}))
	mirrored, err := store.CountMirror(ctx, "client")
	require.NoError(t, err)
	assert.Equal(t, int64(1), mirrored)
}

func loadDotEnv() {
	for _, path := range []string{".env", "../.env", "../../.env", "../../../.env"} {
		_ = godotenv.Overload(path)
	}
}
