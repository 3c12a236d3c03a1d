package status

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreqcapital/coreq-migrate/internal/models"
	"github.com/coreqcapital/coreq-migrate/internal/source"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

type repoStub struct {
	loans       []models.Loan
	loansErr    error
	collaterals map[int64]bool
	seized      map[int64]bool
	sold        map[int64]bool
	statuses    map[int64]models.LoanStatus
	setErr      map[int64]error
	pricing     map[int64][2]decimal.Decimal
}

func newRepoStub(loans ...models.Loan) *repoStub {
	r := &repoStub{
		loans:       loans,
		collaterals: map[int64]bool{},
		seized:      map[int64]bool{},
		sold:        map[int64]bool{},
		statuses:    map[int64]models.LoanStatus{},
		setErr:      map[int64]error{},
		pricing:     map[int64][2]decimal.Decimal{},
	}
	for _, l := range loans {
		r.collaterals[l.CollateralID] = true
		r.statuses[l.ID] = l.Status
	}
	return r
}

func (r *repoStub) OpenLoans(context.Context) ([]models.Loan, error) {
	if r.loansErr != nil {
		return nil, r.loansErr
	}
	var open []models.Loan
	for _, l := range r.loans {
		if !r.statuses[l.ID].Terminal() {
			open = append(open, l)
		}
	}
	return open, nil
}

func (r *repoStub) SetLoanStatus(_ context.Context, id int64, s models.LoanStatus) error {
	if err := r.setErr[id]; err != nil {
		return err
	}
	r.statuses[id] = s
	return nil
}

func (r *repoStub) SeizeCollateral(_ context.Context, id int64) error {
	r.seized[id] = true
	return nil
}

func (r *repoStub) ApplyDefaultedItem(_ context.Context, item models.DefaultedItem) (bool, error) {
	if !r.collaterals[item.ItemID] {
		return false, nil
	}
	r.seized[item.ItemID] = true
	r.sold[item.ItemID] = item.Sold
	return true, nil
}

func (r *repoStub) DefaultLoansForCollateral(_ context.Context, collateralID int64) (int64, error) {
	var n int64
	for _, l := range r.loans {
		if l.CollateralID == collateralID {
			r.statuses[l.ID] = models.StatusDefaulted
			n++
		}
	}
	return n, nil
}

func (r *repoStub) StatusSummary(context.Context) (map[models.LoanStatus]int64, error) {
	out := map[models.LoanStatus]int64{}
	for _, s := range r.statuses {
		out[s]++
	}
	return out, nil
}

func (r *repoStub) NonNegotiableLoans(context.Context) ([]models.Loan, error) {
	var out []models.Loan
	for _, l := range r.loans {
		if !l.IsNegotiable {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *repoStub) UpdateLoanPricing(_ context.Context, id int64, rate, total decimal.Decimal) error {
	r.pricing[id] = [2]decimal.Decimal{rate, total}
	return nil
}

type defaultedStub struct {
	rows []source.Row
	err  error
}

func (d defaultedStub) Rows(context.Context, string) (*source.RowSet, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &source.RowSet{Rows: d.rows}, nil
}

func nairobi(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Africa/Nairobi")
	require.NoError(t, err)
	return loc
}

func openLoan(id, collateral int64, due time.Time) models.Loan {
	return models.Loan{
		ID: id, CollateralID: collateral, DueDate: due,
		GracePeriodEnd: due.AddDate(0, 0, 7), Status: models.StatusActive,
	}
}

func TestUpdater_Run(t *testing.T) {
	loc := nairobi(t)
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, loc)

	repo := newRepoStub(
		openLoan(1, 101, now.AddDate(0, 0, 5)),
		openLoan(2, 102, now.Add(3*time.Hour)),
		openLoan(3, 103, now.AddDate(0, 0, -2)),
		openLoan(4, 104, now.AddDate(0, 0, -10)),
		openLoan(5, 105, now.AddDate(0, 0, 10)),
		models.Loan{ID: 6, CollateralID: 106, Status: models.StatusPaid},
	)

	src := defaultedStub{rows: []source.Row{
		{int64(105), nil, nil, nil, nil, true, float64(900), nil},
		{int64(999), nil, nil, nil, nil, false, nil, nil},
	}}
	u := NewUpdater(repo, src, loc)
	u.now = func() time.Time { return now }

	res, err := u.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.FromDefaultedItems)
	assert.Equal(t, 1, res.Active)
	assert.Equal(t, 1, res.Due)
	assert.Equal(t, 1, res.PastDue)
	assert.Equal(t, 1, res.Defaulted)
	assert.Equal(t, 0, res.Failed)

	assert.Equal(t, models.StatusActive, repo.statuses[1])
	assert.Equal(t, models.StatusDue, repo.statuses[2])
	assert.Equal(t, models.StatusPastDue, repo.statuses[3])
	assert.Equal(t, models.StatusDefaulted, repo.statuses[4])
	assert.Equal(t, models.StatusDefaulted, repo.statuses[5])
	assert.Equal(t, models.StatusPaid, repo.statuses[6])

	assert.True(t, repo.seized[104])
	assert.True(t, repo.seized[105])
	assert.True(t, repo.sold[105])
	assert.False(t, repo.seized[103])

	assert.Equal(t, int64(2), res.Summary["defaulted"])
	assert.Equal(t, int64(1), res.Summary["paid"])
}

func TestUpdater_IsIdempotent(t *testing.T) {
	loc := nairobi(t)
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, loc)
	repo := newRepoStub(openLoan(1, 1, now.AddDate(0, 0, 1)), openLoan(2, 2, now.AddDate(0, 0, -1)))
	u := NewUpdater(repo, nil, loc)
	u.now = func() time.Time { return now }

	first, err := u.Run(context.Background())
	require.NoError(t, err)
	snapshot := map[int64]models.LoanStatus{1: repo.statuses[1], 2: repo.statuses[2]}

	second, err := u.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snapshot[1], repo.statuses[1])
	assert.Equal(t, snapshot[2], repo.statuses[2])
	assert.Equal(t, first.Summary, second.Summary)
}

func TestUpdater_RowFailuresContinue(t *testing.T) {
	loc := nairobi(t)
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, loc)
	repo := newRepoStub(openLoan(1, 1, now.AddDate(0, 0, 3)), openLoan(2, 2, now.AddDate(0, 0, 3)))
	repo.setErr[1] = errors.New("connection reset")
	u := NewUpdater(repo, defaultedStub{err: errors.New("no such table")}, loc)
	u.now = func() time.Time { return now }

	res, err := u.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Active)
	assert.Equal(t, models.StatusActive, repo.statuses[2])
}

func TestUpdater_OpenLoansErrorAborts(t *testing.T) {
	repo := newRepoStub()
	repo.loansErr = errors.New("db down")
	_, err := NewUpdater(repo, nil, time.UTC).Run(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestRateFixer_Run(t *testing.T) {
	repo := newRepoStub(
		models.Loan{ID: 1, LoanPeriod: 2, AmountIssued: decimal.NewFromInt(1000), InterestRate: decimal.NewFromInt(20), TotalAmount: decimal.NewFromInt(1200)},
		models.Loan{ID: 2, LoanPeriod: 1, AmountIssued: decimal.NewFromInt(1000), InterestRate: decimal.RequireFromString("20.005"), TotalAmount: decimal.NewFromInt(1200)},
		models.Loan{ID: 3, LoanPeriod: 6, AmountIssued: decimal.NewFromInt(1000), InterestRate: decimal.NewFromInt(10)},
		models.Loan{ID: 4, LoanPeriod: 3, AmountIssued: decimal.NewFromInt(1000), InterestRate: decimal.NewFromInt(50), IsNegotiable: true},
	)
	res, err := NewRateFixer(repo).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Checked)
	assert.Equal(t, 1, res.Updated)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, int64(1), res.Changes[0].LoanID)
	assert.True(t, decimal.NewFromInt(28).Equal(repo.pricing[1][0]))
	assert.True(t, decimal.NewFromInt(1280).Equal(repo.pricing[1][1]))
	assert.NotContains(t, repo.pricing, int64(2))
	assert.NotContains(t, repo.pricing, int64(3))
}
