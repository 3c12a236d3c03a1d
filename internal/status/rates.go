package status

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coreqcapital/coreq-migrate/internal/loan"
	"github.com/coreqcapital/coreq-migrate/internal/logger"
	"github.com/coreqcapital/coreq-migrate/internal/models/dto"
	"github.com/coreqcapital/coreq-migrate/internal/storage"
)

// maxStandardPeriod is the longest period with its own entry in the rate table.
const maxStandardPeriod = 4

// RateFixer reprices non-negotiable loans whose stored rate drifted from the standard table.
type RateFixer struct {
	repo storage.LoanStatusStore
}

// NewRateFixer builds a fixer.
func NewRateFixer(repo storage.LoanStatusStore) *RateFixer {
	return &RateFixer{repo: repo}
}

// Run rewrites interest rate and total for every drifted loan.
func (f *RateFixer) Run(ctx context.Context) (dto.RateFixResponse, error) {
	loans, err := f.repo.NonNegotiableLoans(ctx)
	if err != nil {
		return dto.RateFixResponse{}, fmt.Errorf("load loans: %w", err)
	}
	res := dto.RateFixResponse{Checked: len(loans), Changes: []dto.RateChange{}}
	for _, l := range loans {
		if l.LoanPeriod < 1 || l.LoanPeriod > maxStandardPeriod {
			continue
		}
		if !loan.RateDrifted(l.InterestRate, l.LoanPeriod) {
			continue
		}
		rate := loan.InterestRate(l.LoanPeriod)
		total := loan.TotalAmount(l.AmountIssued, rate)
		if err := f.repo.UpdateLoanPricing(ctx, l.ID, rate, total); err != nil {
			res.Failed++
			logger.CtxError(ctx, "reprice loan failed", err, slog.Int64("loan_id", l.ID))
			continue
		}
		res.Updated++
		res.Changes = append(res.Changes, dto.RateChange{
			LoanID:   l.ID,
			Period:   l.LoanPeriod,
			OldRate:  l.InterestRate,
			NewRate:  rate,
			OldTotal: l.TotalAmount,
			NewTotal: total,
		})
	}
	logger.CtxInfo(ctx, "loan rates fixed",
		slog.Int("checked", res.Checked), slog.Int("updated", res.Updated), slog.Int("failed", res.Failed))
	return res, nil
}
