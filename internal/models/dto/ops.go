package dto

import "github.com/shopspring/decimal"

// StatusRefreshResponse summarises one status derivation pass.
type StatusRefreshResponse struct {
	FromDefaultedItems int              `json:"from_defaulted_items"`
	Active             int              `json:"active"`
	Due                int              `json:"due"`
	PastDue            int              `json:"past_due"`
	Defaulted          int              `json:"defaulted"`
	Failed             int              `json:"failed"`
	Summary            map[string]int64 `json:"summary"`
}

// RateChange records one repriced loan.
type RateChange struct {
	LoanID   int64           `json:"loan_id"`
	Period   int             `json:"period"`
	OldRate  decimal.Decimal `json:"old_rate"`
	NewRate  decimal.Decimal `json:"new_rate"`
	OldTotal decimal.Decimal `json:"old_total"`
	NewTotal decimal.Decimal `json:"new_total"`
}

// RateFixResponse summarises an interest-rate repair pass.
type RateFixResponse struct {
	Checked int          `json:"checked"`
	Updated int          `json:"updated"`
	Failed  int          `json:"failed"`
	Changes []RateChange `json:"changes"`
}
