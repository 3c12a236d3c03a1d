package migrate

import (
	"fmt"
	"time"

	"github.com/coreqcapital/coreq-migrate/internal/auth"
	"github.com/coreqcapital/coreq-migrate/internal/loan"
	"github.com/coreqcapital/coreq-migrate/internal/models"
	"github.com/coreqcapital/coreq-migrate/internal/source"
)

// Hasher turns a legacy plaintext password into a stored hash.
type Hasher func(password string) (string, error)

// Users: ID, USERNAME, PASSWORD.
func mapUser(row source.Row, hash Hasher) (models.User, error) {
	id, err := intID(row.At(0))
	if err != nil {
		return models.User{}, fmt.Errorf("user id: %w", err)
	}
	password := textOr(row.At(2), "password")
	if !auth.IsHash(password) {
		if password, err = hash(password); err != nil {
			return models.User{}, err
		}
	}
	return models.User{
		ID:           id,
		Username:     textOr(row.At(1), fmt.Sprintf("user%d", id)),
		PasswordHash: password,
		Role:         models.AdminRole,
		Permissions:  models.DefaultPermissions(models.AdminRole),
		IsActive:     true,
	}, nil
}

// client: ID NUMBER, Name, Phone number, Emergency No, Location, Email, Apartment,
// House Number, Institution, Registration No.
func mapBorrower(row source.Row) (models.Borrower, error) {
	id, err := intID(row.At(0))
	if err != nil {
		return models.Borrower{}, fmt.Errorf("borrower id: %w", err)
	}
	name := text(row.At(1))
	if name == "" {
		return models.Borrower{}, fmt.Errorf("borrower %d: missing name", id)
	}
	institution := text(row.At(8))
	return models.Borrower{
		ID:                 id,
		FullName:           name,
		IDNumber:           text(row.At(0)),
		PhoneNumber:        text(row.At(2)),
		EmergencyNumber:    text(row.At(3)),
		Location:           text(row.At(4)),
		Email:              text(row.At(5)),
		Apartment:          text(row.At(6)),
		HouseNumber:        text(row.At(7)),
		IsStudent:          institution != "",
		Institution:        institution,
		RegistrationNumber: text(row.At(9)),
	}, nil
}

// ITEMS: ITEMID, ID NUMBER, ITEM, SERIAL NO, MODEL NO, CONDITION.
func mapCollateral(row source.Row) (models.Collateral, error) {
	id, err := intID(row.At(0))
	if err != nil {
		return models.Collateral{}, fmt.Errorf("collateral id: %w", err)
	}
	borrowerID, err := intID(row.At(1))
	if err != nil {
		return models.Collateral{}, fmt.Errorf("collateral %d borrower: %w", id, err)
	}
	return models.Collateral{
		ID:            id,
		BorrowerID:    borrowerID,
		ItemName:      textOr(row.At(2), "Unknown"),
		SerialNumber:  text(row.At(3)),
		ModelNumber:   text(row.At(4)),
		ItemCondition: text(row.At(5)),
	}, nil
}

// LOANS: LOANID, ID NUMBER, AMOUNT ISSUED, DATE ISSUED, LOAN PERIOD, ITEM ID.
func mapLoan(row source.Row, now time.Time) (models.Loan, error) {
	id, err := intID(row.At(0))
	if err != nil {
		return models.Loan{}, fmt.Errorf("loan id: %w", err)
	}
	borrowerID, err := intID(row.At(1))
	if err != nil {
		return models.Loan{}, fmt.Errorf("loan %d borrower: %w", id, err)
	}
	collateralID, err := intID(row.At(5))
	if err != nil {
		return models.Loan{}, fmt.Errorf("loan %d collateral: %w", id, err)
	}
	principal, err := money(row.At(2))
	if err != nil {
		return models.Loan{}, fmt.Errorf("loan %d amount: %w", id, err)
	}
	issued := dateOr(row.At(3), now)
	terms := loan.NewTerms(principal, issued, period(row.At(4)))
	return models.Loan{
		ID:             id,
		BorrowerID:     borrowerID,
		CollateralID:   collateralID,
		AmountIssued:   principal,
		DateIssued:     issued,
		LoanPeriod:     terms.PeriodWeeks,
		InterestRate:   terms.InterestRate,
		DueDate:        terms.DueDate,
		GracePeriodEnd: terms.GracePeriodEnd,
		TotalAmount:    terms.TotalAmount,
		Status:         models.StatusActive,
	}, nil
}

// PAYMENT TABLE: PAYMENTID, LOANID, AMOUNT PAID, DATE PAID, COMMENT.
func mapPayment(row source.Row, now time.Time) (models.Payment, error) {
	id, err := intID(row.At(0))
	if err != nil {
		return models.Payment{}, fmt.Errorf("payment id: %w", err)
	}
	loanID, err := intID(row.At(1))
	if err != nil {
		return models.Payment{}, fmt.Errorf("payment %d loan: %w", id, err)
	}
	amount, err := money(row.At(2))
	if err != nil {
		return models.Payment{}, fmt.Errorf("payment %d amount: %w", id, err)
	}
	return models.Payment{
		ID:          id,
		LoanID:      loanID,
		Amount:      amount,
		PaymentDate: dateOr(row.At(3), now),
		Note:        text(row.At(4)),
	}, nil
}

// EXPENDITURE: ID, CATEGORY, DATE, AMOUNT.
func mapExpense(row source.Row, now time.Time) (models.Expense, error) {
	id, err := intID(row.At(0))
	if err != nil {
		return models.Expense{}, fmt.Errorf("expense id: %w", err)
	}
	amount, err := money(row.At(3))
	if err != nil {
		return models.Expense{}, fmt.Errorf("expense %d amount: %w", id, err)
	}
	return models.Expense{
		ID:       id,
		Category: textOr(row.At(1), "General"),
		Name:     textOr(row.At(1), "Expense"),
		Date:     dateOr(row.At(2), now),
		Amount:   amount,
	}, nil
}

// defaulted items: ITEMID at 0, SOLD at 5, AMOUNT at 6, DATE SOLD at 7.
func mapDefaultedItem(row source.Row) (models.DefaultedItem, error) {
	id, err := intID(row.At(0))
	if err != nil {
		return models.DefaultedItem{}, fmt.Errorf("defaulted item id: %w", err)
	}
	return models.DefaultedItem{
		ItemID:   id,
		Sold:     truthy(row.At(5)),
		Amount:   optMoney(row.At(6)),
		DateSold: optDate(row.At(7)),
	}, nil
}

// DefaultedItems maps every row of the legacy defaulted items table. Unreadable rows are
// returned as outcomes so the caller can report them.
func DefaultedItems(set *source.RowSet) ([]models.DefaultedItem, []Outcome) {
	var items []models.DefaultedItem
	var failures []Outcome
	for _, row := range set.Rows {
		item, err := mapDefaultedItem(row)
		if err != nil {
			failures = append(failures, Outcome{Key: text(row.At(0)), Err: err})
			continue
		}
		items = append(items, item)
	}
	return items, failures
}
