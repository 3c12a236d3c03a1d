package migrate

import (
	"context"
	"log/slog"

	"github.com/coreqcapital/coreq-migrate/internal/logger"
)

// Counter returns the row count of a table.
type Counter interface {
	Count(ctx context.Context, table string) (int64, error)
}

// Pair links a legacy table to the target table it is migrated into.
type Pair struct {
	Source string
	Target string
}

// VerifyPairs are the tables the full migration is checked against.
var VerifyPairs = []Pair{
	{TableUsers, "users"},
	{TableClients, "borrowers"},
	{TableItems, "collaterals"},
	{TableLoans, "loans"},
	{TablePayments, "payments"},
	{TableExpenses, "expenses"},
}

// CountCheck is the comparison for one table pair.
type CountCheck struct {
	Pair
	SourceCount int64
	TargetCount int64
	Err         error
}

// Match reports whether both sides were counted and agree.
func (c CountCheck) Match() bool {
	return c.Err == nil && c.SourceCount == c.TargetCount
}

// Verification is the result of a verify pass.
type Verification struct {
	Checks []CountCheck
}

// AllMatch is true only when every pair was counted and matched.
func (v Verification) AllMatch() bool {
	for _, c := range v.Checks {
		if !c.Match() {
			return false
		}
	}
	return true
}

// Verify compares row counts between the legacy store and the target for each pair.
func Verify(ctx context.Context, src, dst Counter, pairs []Pair) Verification {
	var v Verification
	for _, p := range pairs {
		check := CountCheck{Pair: p}
		check.SourceCount, check.Err = src.Count(ctx, p.Source)
		if check.Err == nil {
			check.TargetCount, check.Err = dst.Count(ctx, p.Target)
		}
		v.Checks = append(v.Checks, check)

		switch {
		case check.Err != nil:
			logger.CtxError(ctx, "count failed", check.Err, slog.String("source", p.Source), slog.String("target", p.Target))
		case check.Match():
			logger.CtxInfo(ctx, "counts match",
				slog.String("source", p.Source), slog.String("target", p.Target), slog.Int64("count", check.SourceCount))
		default:
			logger.CtxWarn(ctx, "count mismatch",
				slog.String("source", p.Source), slog.String("target", p.Target),
				slog.Int64("source_count", check.SourceCount), slog.Int64("target_count", check.TargetCount))
		}
	}
	return v
}
