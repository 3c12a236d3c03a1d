package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coreqcapital/coreq-migrate/internal/models"
	"github.com/coreqcapital/coreq-migrate/internal/storage"
)

// terminalStatuses lists the statuses a derivation pass leaves alone.
func terminalStatuses() []string {
	var out []string
	for _, st := range models.AllStatuses {
		if st.Terminal() {
			out = append(out, string(st))
		}
	}
	return out
}

// OpenLoans returns loans whose status is still derived: everything not terminal.
func (s *Store) OpenLoans(ctx context.Context) ([]models.Loan, error) {
	const query = `
		SELECT id, borrower_id, collateral_id, due_date, grace_period_end, status
		FROM loans
		WHERE status <> ALL($1)
		ORDER BY id`
	rows, err := s.pool.Query(ctx, query, terminalStatuses())
	if err != nil {
		return nil, fmt.Errorf("query open loans: %w", err)
	}
	defer rows.Close()

	var loans []models.Loan
	for rows.Next() {
		var l models.Loan
		var grace *time.Time
		var status string
		if err := rows.Scan(&l.ID, &l.BorrowerID, &l.CollateralID, &l.DueDate, &grace, &status); err != nil {
			return nil, fmt.Errorf("scan open loan: %w", err)
		}
		if grace != nil {
			l.GracePeriodEnd = *grace
		}
		l.Status = models.LoanStatus(status)
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// SetLoanStatus overwrites a loan's derived status.
func (s *Store) SetLoanStatus(ctx context.Context, loanID int64, status models.LoanStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE loans SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), loanID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SeizeCollateral flags a collateral item as seized.
func (s *Store) SeizeCollateral(ctx context.Context, collateralID int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE collaterals SET is_seized = TRUE, updated_at = NOW() WHERE id = $1`, collateralID)
	return translate(err)
}

// ApplyDefaultedItem marks the matching collateral seized and copies the sale details.
// It reports false when no collateral carries the item id.
func (s *Store) ApplyDefaultedItem(ctx context.Context, item models.DefaultedItem) (bool, error) {
	const query = `
		UPDATE collaterals
		SET is_seized = TRUE, is_sold = $1, sold_price = $2, sold_date = $3, updated_at = NOW()
		WHERE id = $4`
	tag, err := s.pool.Exec(ctx, query, item.Sold, item.Amount, item.DateSold, item.ItemID)
	if err != nil {
		return false, translate(err)
	}
	return tag.RowsAffected() > 0, nil
}

// DefaultLoansForCollateral forces every loan secured by the collateral to defaulted.
func (s *Store) DefaultLoansForCollateral(ctx context.Context, collateralID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE loans SET status = 'defaulted', updated_at = NOW() WHERE collateral_id = $1`, collateralID)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

// StatusSummary counts loans per status.
func (s *Store) StatusSummary(ctx context.Context) (map[models.LoanStatus]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM loans GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("summarise statuses: %w", err)
	}
	defer rows.Close()

	out := make(map[models.LoanStatus]int64, len(models.AllStatuses))
	for _, st := range models.AllStatuses {
		out[st] = 0
	}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status summary: %w", err)
		}
		out[models.LoanStatus(status)] = n
	}
	return out, rows.Err()
}

// NonNegotiableLoans returns the loans priced from the standard rate table.
func (s *Store) NonNegotiableLoans(ctx context.Context) ([]models.Loan, error) {
	const query = `
		SELECT id, amount_issued, loan_period, interest_rate, total_amount
		FROM loans
		WHERE is_negotiable = FALSE
		ORDER BY id`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query non-negotiable loans: %w", err)
	}
	defer rows.Close()

	var loans []models.Loan
	for rows.Next() {
		var l models.Loan
		if err := rows.Scan(&l.ID, &l.AmountIssued, &l.LoanPeriod, &l.InterestRate, &l.TotalAmount); err != nil {
			return nil, fmt.Errorf("scan loan pricing: %w", err)
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// UpdateLoanPricing rewrites the rate and total of a loan.
func (s *Store) UpdateLoanPricing(ctx context.Context, loanID int64, rate, total decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx, `UPDATE loans SET interest_rate = $1, total_amount = $2, updated_at = NOW() WHERE id = $3`, rate, total, loanID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
