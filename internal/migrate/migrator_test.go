package migrate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreqcapital/coreq-migrate/internal/models"
	"github.com/coreqcapital/coreq-migrate/internal/source"
	"github.com/coreqcapital/coreq-migrate/internal/storage"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

type stubSource struct {
	tables  map[string][]source.Row
	columns map[string][]source.Column
	readErr map[string]error
}

func (s *stubSource) Rows(_ context.Context, table string) (*source.RowSet, error) {
	if err := s.readErr[table]; err != nil {
		return nil, err
	}
	rows, ok := s.tables[table]
	if !ok {
		return nil, errors.New("no such table: " + table)
	}
	return &source.RowSet{Table: table, Rows: rows}, nil
}

func (s *stubSource) Count(_ context.Context, table string) (int64, error) {
	rows, ok := s.tables[table]
	if !ok {
		return 0, errors.New("no such table: " + table)
	}
	return int64(len(rows)), nil
}

func (s *stubSource) Tables(context.Context) ([]string, error) {
	var out []string
	for name := range s.columns {
		out = append(out, name)
	}
	return out, nil
}

func (s *stubSource) Columns(_ context.Context, table string) ([]source.Column, error) {
	return s.columns[table], nil
}

type stubStore struct {
	calls      []string
	counts     map[string]int64
	borrowers  map[int64]bool
	settings   *models.Settings
	dupUserIDs map[int64]bool
}

func newStubStore() *stubStore {
	return &stubStore{counts: map[string]int64{}, borrowers: map[int64]bool{}, dupUserIDs: map[int64]bool{}}
}

func (s *stubStore) DropAll(context.Context) error {
	s.calls = append(s.calls, "drop")
	return nil
}

func (s *stubStore) CreateSchema(context.Context) error {
	s.calls = append(s.calls, "create")
	return nil
}

func (s *stubStore) ResetSequences(context.Context) error {
	s.calls = append(s.calls, "reset")
	return nil
}

func (s *stubStore) InsertUser(_ context.Context, u models.User) error {
	if s.dupUserIDs[u.ID] {
		return storage.ErrAlreadyExists
	}
	s.dupUserIDs[u.ID] = true
	s.counts["users"]++
	return nil
}

func (s *stubStore) InsertBorrower(_ context.Context, b models.Borrower) error {
	s.borrowers[b.ID] = true
	s.counts["borrowers"]++
	return nil
}

func (s *stubStore) InsertCollateral(_ context.Context, c models.Collateral) error {
	if !s.borrowers[c.BorrowerID] {
		return errors.New(`insert or update on table "collaterals" violates foreign key constraint "collaterals_borrower_id_fkey"`)
	}
	s.counts["collaterals"]++
	return nil
}

func (s *stubStore) InsertLoan(context.Context, models.Loan) error {
	s.counts["loans"]++
	return nil
}

func (s *stubStore) InsertPayment(context.Context, models.Payment) error {
	s.counts["payments"]++
	return nil
}

func (s *stubStore) InsertExpense(context.Context, models.Expense) error {
	s.counts["expenses"]++
	return nil
}

func (s *stubStore) SeedSettings(_ context.Context, st models.Settings) error {
	s.settings = &st
	return nil
}

func (s *stubStore) Count(_ context.Context, table string) (int64, error) {
	return s.counts[table], nil
}

func (s *stubStore) RecordRun(context.Context, models.MigrationRun) error { return nil }

func legacyFixture() *stubSource {
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &stubSource{tables: map[string][]source.Row{
		TableUsers:    {{int64(1), "admin", "secret"}, {int64(1), "dup", "x"}},
		TableClients:  {{int64(10), "Jane"}, {int64(11), "Brian"}},
		TableItems:    {{int64(100), int64(10), "Laptop"}, {int64(101), int64(99), "Orphan"}},
		TableLoans:    {{int64(1000), int64(10), float64(500), issued, int64(1), int64(100)}},
		TablePayments: {{int64(1), int64(1000), float64(100), issued, nil}},
	}, readErr: map[string]error{TableExpenses: errors.New("table EXPENDITURE not found")}}
}

func TestMigrateData_IsBestEffort(t *testing.T) {
	store := newStubStore()
	m := NewMigrator(legacyFixture(), store, 4)
	m.now = func() time.Time { return fixedNow }

	reports := m.MigrateData(context.Background())
	require.Len(t, reports, 6)

	byTable := map[string]TableReport{}
	for _, r := range reports {
		byTable[r.Source] = r
	}
	assert.Equal(t, 1, byTable[TableUsers].Migrated)
	assert.Equal(t, 1, byTable[TableUsers].Failed())
	assert.Equal(t, 2, byTable[TableClients].Migrated)

	items := byTable[TableItems]
	assert.Equal(t, 1, items.Migrated)
	require.Len(t, items.Failures, 1)
	assert.Equal(t, "101", items.Failures[0].Key)
	for _, msg := range items.FirstErrors(5) {
		assert.LessOrEqual(t, len(msg), MaxErrorLength)
	}

	assert.Equal(t, 1, byTable[TableLoans].Migrated)
	assert.Equal(t, 1, byTable[TablePayments].Migrated)
	assert.Error(t, byTable[TableExpenses].Err)

	migrated, failed := Totals(reports)
	assert.Equal(t, 6, migrated)
	assert.Equal(t, 3, failed)
}

func TestRebuildAndFinish(t *testing.T) {
	store := newStubStore()
	m := NewMigrator(legacyFixture(), store, 4)
	ctx := context.Background()

	require.NoError(t, m.Rebuild(ctx))
	require.NoError(t, m.Finish(ctx))
	assert.Equal(t, []string{"drop", "create", "reset"}, store.calls)

	require.NotNil(t, store.settings)
	assert.Equal(t, map[string]int{"1": 20, "2": 28, "3": 32, "4": 35}, store.settings.InterestRates)
	assert.Equal(t, 7, store.settings.GracePeriodDays)
	assert.Equal(t, "3", store.settings.PenaltyFee.String())
	assert.Equal(t, "12000", store.settings.LoanThreshold.String())
	assert.Equal(t, "50000", store.settings.NegotiableThreshold.String())
}

func TestVerify(t *testing.T) {
	src := legacyFixture()
	store := newStubStore()
	m := NewMigrator(src, store, 4)
	m.MigrateData(context.Background())

	v := Verify(context.Background(), src, store, VerifyPairs)
	require.Len(t, v.Checks, len(VerifyPairs))
	assert.False(t, v.AllMatch())

	byTarget := map[string]CountCheck{}
	for _, c := range v.Checks {
		byTarget[c.Target] = c
	}
	assert.True(t, byTarget["borrowers"].Match())
	assert.False(t, byTarget["users"].Match())
	assert.Error(t, byTarget["expenses"].Err)

	clean := Verify(context.Background(), src, store, []Pair{{TableClients, "borrowers"}, {TableLoans, "loans"}})
	assert.True(t, clean.AllMatch())
}

func TestFold(t *testing.T) {
	long := errors.New(strings.Repeat("x", 300))
	r := Fold("LOANS", "loans", []Outcome{{Key: "1"}, {Key: "2", Err: long}, {Key: "3"}})
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 2, r.Migrated)
	assert.Equal(t, 1, r.Failed())
	errs := r.FirstErrors(5)
	require.Len(t, errs, 1)
	assert.Len(t, errs[0], MaxErrorLength)
	assert.True(t, strings.HasPrefix(errs[0], "2: xxx"))
}
