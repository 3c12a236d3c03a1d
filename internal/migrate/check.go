package migrate

import (
	"context"
	"io"

	"github.com/coreqcapital/coreq-migrate/internal/source"
)

// SampleSize is how many defaulted items the check report shows.
const SampleSize = 10

// Inspector describes the legacy store and samples its rows.
type Inspector interface {
	Inspect(ctx context.Context) (source.Schema, error)
	Sample(ctx context.Context, table string, n int) (*source.RowSet, error)
}

// CheckReport is the document printed by a structure check.
type CheckReport struct {
	Schema         source.Schema    `yaml:"schema"`
	DefaultedItems []map[string]any `yaml:"defaulted_items_sample,omitempty"`
	SampleError    string           `yaml:"sample_error,omitempty"`
}

// Check inspects the legacy store and writes the report as YAML to w.
func Check(ctx context.Context, src Inspector, w io.Writer) (CheckReport, error) {
	schema, err := src.Inspect(ctx)
	if err != nil {
		return CheckReport{}, err
	}
	report := CheckReport{Schema: schema}
	if set, err := src.Sample(ctx, TableDefaulted, SampleSize); err != nil {
		report.SampleError = err.Error()
	} else {
		report.DefaultedItems = source.SampleDocument(set)
	}
	return report, source.WriteYAML(w, report)
}
