package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Borrower is a customer that pawns collateral against loans.
type Borrower struct {
	ID                 int64
	FullName           string
	IDNumber           string
	PhoneNumber        string
	EmergencyNumber    string
	Email              string
	Location           string
	Apartment          string
	HouseNumber        string
	IsStudent          bool
	Institution        string
	RegistrationNumber string
}

// Collateral is a pawned item held against a loan.
type Collateral struct {
	ID            int64
	BorrowerID    int64
	Category      string
	ItemName      string
	ModelNumber   string
	SerialNumber  string
	ItemCondition string
	IsSeized      bool
	IsSold        bool
	SoldPrice     decimal.NullDecimal
	SoldDate      *time.Time
}

// Loan is a single advance secured by one collateral item.
type Loan struct {
	ID             int64
	BorrowerID     int64
	CollateralID   int64
	AmountIssued   decimal.Decimal
	DateIssued     time.Time
	LoanPeriod     int
	InterestRate   decimal.Decimal
	DueDate        time.Time
	GracePeriodEnd time.Time
	Status         LoanStatus
	TotalAmount    decimal.Decimal
	Penalties      decimal.Decimal
	IsNegotiable   bool
}

// Payment is a repayment against a loan.
type Payment struct {
	ID          int64
	LoanID      int64
	Amount      decimal.Decimal
	PaymentDate time.Time
	Note        string
}

// Expense is an operational cost entry.
type Expense struct {
	ID       int64
	Category string
	Name     string
	Date     time.Time
	Amount   decimal.Decimal
	AddedBy  *int64
}

// Settings holds the lending parameters the backend reads at runtime.
type Settings struct {
	InterestRates       map[string]int
	PenaltyFee          decimal.Decimal
	GracePeriodDays     int
	LoanThreshold       decimal.Decimal
	NegotiableThreshold decimal.Decimal
}

// DefaultedItem is a legacy side record marking collateral seized (and possibly sold)
// after non-payment.
type DefaultedItem struct {
	ItemID   int64
	Sold     bool
	Amount   decimal.NullDecimal
	DateSold *time.Time
}
