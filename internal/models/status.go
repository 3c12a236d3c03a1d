package models

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	StatusActive    LoanStatus = "active"
	StatusDue       LoanStatus = "due"
	StatusPastDue   LoanStatus = "pastDue"
	StatusDefaulted LoanStatus = "defaulted"
	StatusPaid      LoanStatus = "paid"
)

// AllStatuses lists every storable status in lifecycle order.
var AllStatuses = []LoanStatus{StatusActive, StatusDue, StatusPastDue, StatusDefaulted, StatusPaid}

// Terminal reports whether the derivation pass must leave the status alone.
func (s LoanStatus) Terminal() bool {
	return s == StatusPaid || s == StatusDefaulted
}
