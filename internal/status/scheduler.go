package status

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/coreqcapital/coreq-migrate/internal/logger"
	"github.com/coreqcapital/coreq-migrate/internal/models/dto"
)

// Refresher runs one status pass.
type Refresher interface {
	Run(ctx context.Context) (dto.StatusRefreshResponse, error)
}

// Scheduler runs the status refresh on cron schedules.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	schedules []string
	ctx       context.Context
}

// NewScheduler creates a scheduler evaluating schedules in loc. Every run derives its
// context from ctx.
func NewScheduler(ctx context.Context, refresher Refresher, schedules []string, loc *time.Location) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	return &Scheduler{cron: c, refresher: refresher, schedules: schedules, ctx: ctx}
}

// Start registers the refresh job on every schedule and starts the cron loop.
// A schedule that does not parse is logged and skipped; it is an error only when none
// could be registered.
func (s *Scheduler) Start() error {
	registered := 0
	for _, schedule := range s.schedules {
		if _, err := s.cron.AddFunc(schedule, s.RunNow); err != nil {
			logger.Error("failed to schedule status refresh", err, slog.String("schedule", schedule))
			continue
		}
		registered++
		logger.Info("scheduled status refresh", slog.String("schedule", schedule))
	}
	if registered == 0 {
		return errors.New("no valid status schedule")
	}
	s.cron.Start()
	return nil
}

// RunNow performs one refresh tagged with a fresh run id.
func (s *Scheduler) RunNow() {
	ctx := logger.WithRunID(s.ctx, uuid.NewString())
	logger.CtxInfo(ctx, "starting status refresh job")
	if _, err := s.refresher.Run(ctx); err != nil {
		logger.CtxError(ctx, "status refresh job failed", err)
		return
	}
	logger.CtxInfo(ctx, "status refresh job finished")
}

// Entries reports the next activation of each registered schedule.
func (s *Scheduler) Entries() []time.Time {
	var next []time.Time
	for _, e := range s.cron.Entries() {
		next = append(next, e.Next)
	}
	return next
}

// Stop halts the cron loop. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
