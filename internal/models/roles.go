package models

const (
	AdminRole    = "admin"
	EmployeeRole = "employee"
)

// Permission names understood by the loans backend.
const (
	PermBorrowers   = "borrowers"
	PermCollaterals = "collaterals"
	PermLoans       = "loans"
	PermPayments    = "payments"
	PermExpenses    = "expenses"
	PermReports     = "reports"
	PermSettings    = "settings"
	PermUsers       = "users"
)

// DefaultPermissions returns the permission set granted to a role on creation.
func DefaultPermissions(role string) []string {
	switch role {
	case AdminRole:
		return []string{PermBorrowers, PermCollaterals, PermLoans, PermPayments, PermExpenses, PermReports, PermSettings, PermUsers}
	case EmployeeRole:
		return []string{PermBorrowers, PermCollaterals, PermLoans, PermPayments}
	default:
		return []string{}
	}
}
