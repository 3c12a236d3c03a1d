package migrate

import (
	"fmt"

	"github.com/coreqcapital/coreq-migrate/internal/logger"
)

// MaxErrorLength caps per-row error messages in reports and logs.
const MaxErrorLength = 100

// Outcome is the result of moving one legacy row.
type Outcome struct {
	Key string
	Err error
}

// TableReport summarises one table of a migration pass.
type TableReport struct {
	Source   string
	Target   string
	Total    int
	Migrated int
	Failures []Outcome
	// Err is set when the table could not be read at all.
	Err error
}

// Failed returns the number of rows that did not make it across.
func (r TableReport) Failed() int {
	return r.Total - r.Migrated
}

// FirstErrors returns up to n truncated failure messages.
func (r TableReport) FirstErrors(n int) []string {
	var out []string
	for _, f := range r.Failures {
		if len(out) == n {
			break
		}
		out = append(out, logger.Truncate(fmt.Sprintf("%s: %v", f.Key, f.Err), MaxErrorLength))
	}
	return out
}

// Fold reduces per-row outcomes into a table report.
func Fold(sourceTable, targetTable string, outcomes []Outcome) TableReport {
	report := TableReport{Source: sourceTable, Target: targetTable, Total: len(outcomes)}
	for _, o := range outcomes {
		if o.Err != nil {
			report.Failures = append(report.Failures, o)
			continue
		}
		report.Migrated++
	}
	return report
}

// Totals sums migrated and failed rows across reports. Unreadable tables count as one failure.
func Totals(reports []TableReport) (migrated, failed int) {
	for _, r := range reports {
		migrated += r.Migrated
		failed += r.Failed()
		if r.Err != nil {
			failed++
		}
	}
	return migrated, failed
}
