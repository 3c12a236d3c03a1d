package postgres

import (
	"context"

	"github.com/coreqcapital/coreq-migrate/internal/models"
)

// InsertUser writes a migrated user with its legacy id.
func (s *Store) InsertUser(ctx context.Context, u models.User) error {
	const query = `
		INSERT INTO users (id, username, email, password_hash, role, permissions, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	perms := u.Permissions
	if perms == nil {
		perms = []string{}
	}
	_, err := s.pool.Exec(ctx, query, u.ID, u.Username, nullable(u.Email), u.PasswordHash, u.Role, perms, u.IsActive)
	return translate(err)
}

// InsertBorrower writes a migrated borrower with its legacy id.
func (s *Store) InsertBorrower(ctx context.Context, b models.Borrower) error {
	const query = `
		INSERT INTO borrowers
			(id, full_name, id_number, phone_number, emergency_number, email,
			 location, apartment, house_number, is_student, institution, registration_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.pool.Exec(ctx, query,
		b.ID, b.FullName, b.IDNumber, b.PhoneNumber, nullable(b.EmergencyNumber), nullable(b.Email),
		b.Location, nullable(b.Apartment), nullable(b.HouseNumber), b.IsStudent,
		nullable(b.Institution), nullable(b.RegistrationNumber))
	return translate(err)
}

// InsertCollateral writes a migrated collateral item with its legacy id.
func (s *Store) InsertCollateral(ctx context.Context, c models.Collateral) error {
	const query = `
		INSERT INTO collaterals
			(id, borrower_id, category, item_name, model_number, serial_number, item_condition,
			 is_seized, is_sold, sold_price, sold_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.pool.Exec(ctx, query,
		c.ID, c.BorrowerID, nullable(c.Category), c.ItemName, nullable(c.ModelNumber),
		nullable(c.SerialNumber), nullable(c.ItemCondition), c.IsSeized, c.IsSold, c.SoldPrice, c.SoldDate)
	return translate(err)
}

// InsertLoan writes a migrated loan with its legacy id.
func (s *Store) InsertLoan(ctx context.Context, l models.Loan) error {
	const query = `
		INSERT INTO loans
			(id, borrower_id, collateral_id, amount_issued, date_issued, loan_period,
			 interest_rate, due_date, grace_period_end, total_amount, status, penalties, is_negotiable)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	var grace any
	if !l.GracePeriodEnd.IsZero() {
		grace = l.GracePeriodEnd
	}
	status := l.Status
	if status == "" {
		status = models.StatusActive
	}
	_, err := s.pool.Exec(ctx, query,
		l.ID, l.BorrowerID, l.CollateralID, l.AmountIssued, l.DateIssued, l.LoanPeriod,
		l.InterestRate, l.DueDate, grace, l.TotalAmount, string(status), l.Penalties, l.IsNegotiable)
	return translate(err)
}

// InsertPayment writes a migrated payment with its legacy id.
func (s *Store) InsertPayment(ctx context.Context, p models.Payment) error {
	const query = `
		INSERT INTO payments (id, loan_id, amount, payment_date, note)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := s.pool.Exec(ctx, query, p.ID, p.LoanID, p.Amount, p.PaymentDate, nullable(p.Note))
	return translate(err)
}

// InsertExpense writes a migrated expense with its legacy id.
func (s *Store) InsertExpense(ctx context.Context, e models.Expense) error {
	const query = `
		INSERT INTO expenses (id, category, name, date, amount, added_by)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query, e.ID, e.Category, e.Name, e.Date, e.Amount, e.AddedBy)
	return translate(err)
}

// SeedSettings writes the default lending settings row.
func (s *Store) SeedSettings(ctx context.Context, st models.Settings) error {
	const query = `
		INSERT INTO settings (interest_rates, penalty_fee, grace_period, loan_threshold, negotiable_threshold)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := s.pool.Exec(ctx, query, st.InterestRates, st.PenaltyFee, st.GracePeriodDays, st.LoanThreshold, st.NegotiableThreshold)
	return translate(err)
}

// RecordRun appends an audit row for a migrate invocation.
func (s *Store) RecordRun(ctx context.Context, run models.MigrationRun) error {
	const query = `
		INSERT INTO migration_runs (id, mode, started_at, finished_at, migrated, failed, all_match)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.pool.Exec(ctx, query, run.ID, run.Mode, run.StartedAt, run.FinishedAt, run.Migrated, run.Failed, run.AllMatch)
	return translate(err)
}
