// Package loan holds the lending rules shared by the migration and the status updater.
package loan

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// GracePeriod is the window after the due date before a loan defaults.
const GracePeriod = 7 * 24 * time.Hour

// DefaultPeriodWeeks is used when the legacy row has no period.
const DefaultPeriodWeeks = 1

var hundred = decimal.NewFromInt(100)

// InterestRate returns the percentage charged for a loan period in weeks.
// Periods below one week are priced as one week; four weeks and longer share the top rate.
func InterestRate(periodWeeks int) decimal.Decimal {
	switch {
	case periodWeeks <= 1:
		return decimal.NewFromInt(20)
	case periodWeeks == 2:
		return decimal.NewFromInt(28)
	case periodWeeks == 3:
		return decimal.NewFromInt(32)
	default:
		return decimal.NewFromInt(35)
	}
}

// StandardRates is the rate table seeded into settings, keyed by period in weeks.
func StandardRates() map[string]int {
	rates := make(map[string]int, 4)
	for weeks := 1; weeks <= 4; weeks++ {
		rates[strconv.Itoa(weeks)] = int(InterestRate(weeks).IntPart())
	}
	return rates
}

// TotalAmount returns principal plus interest, rounded to cents.
func TotalAmount(principal, ratePercent decimal.Decimal) decimal.Decimal {
	interest := principal.Mul(ratePercent).Div(hundred)
	return principal.Add(interest).Round(2)
}

// DueDate is the issue date plus the loan period.
func DueDate(issued time.Time, periodWeeks int) time.Time {
	return issued.AddDate(0, 0, 7*periodWeeks)
}

// GracePeriodEnd is the instant after which an unpaid loan defaults.
func GracePeriodEnd(due time.Time) time.Time {
	return due.AddDate(0, 0, 7)
}

// Terms are the derived pricing and schedule of a loan.
type Terms struct {
	PeriodWeeks    int
	InterestRate   decimal.Decimal
	TotalAmount    decimal.Decimal
	DueDate        time.Time
	GracePeriodEnd time.Time
}

// NewTerms prices a loan and computes its schedule.
func NewTerms(principal decimal.Decimal, issued time.Time, periodWeeks int) Terms {
	if periodWeeks < 1 {
		periodWeeks = DefaultPeriodWeeks
	}
	rate := InterestRate(periodWeeks)
	due := DueDate(issued, periodWeeks)
	return Terms{
		PeriodWeeks:    periodWeeks,
		InterestRate:   rate,
		TotalAmount:    TotalAmount(principal, rate),
		DueDate:        due,
		GracePeriodEnd: GracePeriodEnd(due),
	}
}

// RateDrifted reports whether a stored rate differs from the standard rate by more than 0.01.
func RateDrifted(stored decimal.Decimal, periodWeeks int) bool {
	return stored.Sub(InterestRate(periodWeeks)).Abs().GreaterThan(decimal.RequireFromString("0.01"))
}
