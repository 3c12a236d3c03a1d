package migrate

import (
	"context"
	"log/slog"

	"github.com/coreqcapital/coreq-migrate/internal/logger"
	"github.com/coreqcapital/coreq-migrate/internal/source"
	"github.com/coreqcapital/coreq-migrate/internal/storage"
)

// CatalogSource is a legacy store that can describe itself.
type CatalogSource interface {
	Source
	Tables(ctx context.Context) ([]string, error)
	Columns(ctx context.Context, table string) ([]source.Column, error)
}

type mirrorCounter struct {
	store storage.MirrorStore
}

func (m mirrorCounter) Count(ctx context.Context, table string) (int64, error) {
	return m.store.CountMirror(ctx, table)
}

// Mirror copies every legacy table verbatim into the mirror schema and verifies counts.
// Only listing the legacy tables is fatal; table and row failures are reported.
func Mirror(ctx context.Context, src CatalogSource, dst storage.MirrorStore) ([]TableReport, Verification, error) {
	tables, err := src.Tables(ctx)
	if err != nil {
		return nil, Verification{}, err
	}

	var reports []TableReport
	var pairs []Pair
	for _, table := range tables {
		report := mirrorTable(ctx, src, dst, table)
		reports = append(reports, report)
		if report.Err != nil {
			logger.CtxError(ctx, "could not mirror table", report.Err, slog.String("table", table))
			continue
		}
		pairs = append(pairs, Pair{Source: table, Target: table})
		logger.CtxInfo(ctx, "table mirrored",
			slog.String("table", table), slog.Int("migrated", report.Migrated), slog.Int("total", report.Total))
	}
	return reports, Verify(ctx, src, mirrorCounter{dst}, pairs), nil
}

func mirrorTable(ctx context.Context, src CatalogSource, dst storage.MirrorStore, table string) TableReport {
	failed := func(err error) TableReport {
		return TableReport{Source: table, Target: table, Err: err}
	}
	legacyCols, err := src.Columns(ctx, table)
	if err != nil {
		return failed(err)
	}
	cols := make([]storage.MirrorColumn, len(legacyCols))
	for i, c := range legacyCols {
		cols[i] = MirrorColumn(c)
	}
	if err := dst.CreateMirrorTable(ctx, table, cols); err != nil {
		return failed(err)
	}

	set, err := src.Rows(ctx, table)
	if err != nil {
		return failed(err)
	}
	outcomes := make([]Outcome, 0, len(set.Rows))
	for _, row := range set.Rows {
		values := make([]any, len(cols))
		for i, c := range cols {
			values[i] = mirrorValue(row.At(i), c.Type)
		}
		o := Outcome{Key: text(row.At(0)), Err: dst.InsertMirrorRow(ctx, table, cols, values)}
		if o.Err != nil {
			logger.CtxWarn(ctx, "row not mirrored",
				slog.String("table", table),
				slog.String("error", logger.Truncate(o.Err.Error(), MaxErrorLength)))
		}
		outcomes = append(outcomes, o)
	}
	return Fold(table, table, outcomes)
}
