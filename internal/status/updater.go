// Package status re-derives loan statuses and repairs loan pricing on the target database.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coreqcapital/coreq-migrate/internal/loan"
	"github.com/coreqcapital/coreq-migrate/internal/logger"
	"github.com/coreqcapital/coreq-migrate/internal/migrate"
	"github.com/coreqcapital/coreq-migrate/internal/models"
	"github.com/coreqcapital/coreq-migrate/internal/models/dto"
	"github.com/coreqcapital/coreq-migrate/internal/source"
	"github.com/coreqcapital/coreq-migrate/internal/storage"
)

// DefaultedSource reads the legacy defaulted items table.
type DefaultedSource interface {
	Rows(ctx context.Context, table string) (*source.RowSet, error)
}

// Updater applies the loan lifecycle rules to every open loan.
type Updater struct {
	mu   sync.Mutex
	repo storage.LoanStatusStore
	src  DefaultedSource
	loc  *time.Location
	now  func() time.Time
}

// NewUpdater builds an updater. src may be nil, in which case only the date rules run.
func NewUpdater(repo storage.LoanStatusStore, src DefaultedSource, loc *time.Location) *Updater {
	return &Updater{repo: repo, src: src, loc: loc, now: time.Now}
}

// Run performs one full pass and returns the per-status counts and the final summary.
// Only failing to list open loans or to read the summary aborts the pass.
func (u *Updater) Run(ctx context.Context) (dto.StatusRefreshResponse, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	var res dto.StatusRefreshResponse
	defaulted := u.applyDefaultedItems(ctx, &res)

	loans, err := u.repo.OpenLoans(ctx)
	if err != nil {
		return res, fmt.Errorf("load open loans: %w", err)
	}
	now := u.now()
	for _, l := range loans {
		decision := loan.DeriveStatus(loan.StatusInput{
			DueDate:          l.DueDate,
			GracePeriodEnd:   l.GracePeriodEnd,
			HasDefaultedItem: defaulted[l.CollateralID],
		}, now, u.loc)

		if err := u.apply(ctx, l, decision); err != nil {
			res.Failed++
			logger.CtxError(ctx, "status update failed", err, slog.Int64("loan_id", l.ID))
			continue
		}
		switch decision.Status {
		case models.StatusActive:
			res.Active++
		case models.StatusDue:
			res.Due++
		case models.StatusPastDue:
			res.PastDue++
		case models.StatusDefaulted:
			res.Defaulted++
		}
	}

	summary, err := u.repo.StatusSummary(ctx)
	if err != nil {
		return res, fmt.Errorf("status summary: %w", err)
	}
	res.Summary = make(map[string]int64, len(summary))
	for status, n := range summary {
		res.Summary[string(status)] = n
	}

	logger.CtxInfo(ctx, "loan statuses updated",
		slog.Int("from_defaulted_items", res.FromDefaultedItems),
		slog.Int("active", res.Active),
		slog.Int("due", res.Due),
		slog.Int("past_due", res.PastDue),
		slog.Int("defaulted", res.Defaulted),
		slog.Int("failed", res.Failed),
		slog.Any("summary", res.Summary))
	return res, nil
}

func (u *Updater) apply(ctx context.Context, l models.Loan, d loan.Decision) error {
	if err := u.repo.SetLoanStatus(ctx, l.ID, d.Status); err != nil {
		return err
	}
	if d.SeizeCollateral && l.CollateralID != 0 {
		return u.repo.SeizeCollateral(ctx, l.CollateralID)
	}
	return nil
}

// applyDefaultedItems marks collateral from the legacy defaulted items table seized and
// defaults its loans. It returns the collateral ids that were matched.
func (u *Updater) applyDefaultedItems(ctx context.Context, res *dto.StatusRefreshResponse) map[int64]bool {
	matched := make(map[int64]bool)
	if u.src == nil {
		return matched
	}
	set, err := u.src.Rows(ctx, migrate.TableDefaulted)
	if err != nil {
		logger.CtxError(ctx, "could not read defaulted items", err)
		return matched
	}
	items, failures := migrate.DefaultedItems(set)
	for _, f := range failures {
		res.Failed++
		logger.CtxWarn(ctx, "defaulted item skipped", slog.String("key", f.Key), slog.String("error", f.Err.Error()))
	}
	logger.CtxInfo(ctx, "defaulted items loaded", slog.Int("count", len(items)))

	for _, item := range items {
		found, err := u.repo.ApplyDefaultedItem(ctx, item)
		if err != nil {
			res.Failed++
			logger.CtxError(ctx, "collateral update failed", err, slog.Int64("item_id", item.ItemID))
			continue
		}
		if !found {
			logger.CtxDebug(ctx, "no collateral for defaulted item", slog.Int64("item_id", item.ItemID))
			continue
		}
		matched[item.ItemID] = true
		n, err := u.repo.DefaultLoansForCollateral(ctx, item.ItemID)
		if err != nil {
			res.Failed++
			logger.CtxError(ctx, "loan default failed", err, slog.Int64("item_id", item.ItemID))
			continue
		}
		res.FromDefaultedItems += int(n)
	}
	return matched
}
