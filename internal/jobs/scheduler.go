// Package jobs runs background work on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"gold_mining/internal/logger"
	"gold_mining/internal/service"

	"github.com/robfig/cron/v3"
)

// Reconciler drains queued payouts.
type Reconciler interface {
	ReconcilePending(ctx context.Context) (*service.ReconcileReport, error)
}

// Scheduler retries pending payouts on a schedule.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	payouts  Reconciler
	runs     atomic.Int64
}

// NewScheduler checks schedule (standard cron or a descriptor like
// "@every 5m") and prepares the scheduler. Nothing runs until Start.
func NewScheduler(payouts Reconciler, schedule string) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse reconcile schedule %q: %w", schedule, err)
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		schedule: schedule,
		payouts:  payouts,
	}, nil
}

// Start schedules reconciliation. Runs use ctx, so cancelling it aborts
// an in-flight pass.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule reconcile: %w", err)
	}
	s.cron.Start()
	logger.Info("payout reconciler started", "schedule", s.schedule)
	return nil
}

// RunOnce performs a single reconciliation pass.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.runs.Add(1)
	logger.Debug("[CRON] reconciling pending payouts")
	report, err := s.payouts.ReconcilePending(ctx)
	if err != nil {
		logger.Error("[CRON] reconcile failed", "error", err)
		return
	}
	if report.Processed > 0 {
		logger.Info("[CRON] reconcile pass", "paid", report.Paid, "failed", report.Failed)
	}
}

// Runs reports how many passes have started.
func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}

// Stop waits for a running pass to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("payout reconciler stopped")
}
