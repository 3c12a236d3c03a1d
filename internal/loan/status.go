package loan

import (
	"time"
	// Calendar days are compared in the configured zone; embed the zone database so
	// hosts without one (Windows, where the ODBC source lives) still resolve it.
	_ "time/tzdata"

	"github.com/coreqcapital/coreq-migrate/internal/models"
)

// StatusInput is everything the derivation needs to know about one loan.
type StatusInput struct {
	DueDate        time.Time
	GracePeriodEnd time.Time // zero when the legacy row had none
	// HasDefaultedItem is set when the legacy store recorded the collateral as defaulted.
	HasDefaultedItem bool
}

// Decision is the derived status and whether the collateral must be marked seized.
type Decision struct {
	Status          models.LoanStatus
	SeizeCollateral bool
}

// DeriveStatus evaluates the lifecycle rules against now. Calendar-day comparison
// uses loc; a nil loc means now's own location.
func DeriveStatus(in StatusInput, now time.Time, loc *time.Location) Decision {
	switch {
	case in.HasDefaultedItem:
		return Decision{Status: models.StatusDefaulted, SeizeCollateral: true}
	case !in.GracePeriodEnd.IsZero() && !now.Before(in.GracePeriodEnd):
		return Decision{Status: models.StatusDefaulted, SeizeCollateral: true}
	case !now.Before(in.DueDate):
		return Decision{Status: models.StatusPastDue}
	case sameDay(now, in.DueDate, loc):
		return Decision{Status: models.StatusDue}
	default:
		return Decision{Status: models.StatusActive}
	}
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = a.Location()
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
