// Package scheduler drives the periodic sweeps: one daily pass at a fixed
// wall-clock time and a faster recurring pass for budget alerts and goal
// completions. Time is injected through a Clock so the trigger logic is
// testable without real waiting.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/engine"
)

// Clock abstracts wall-clock access for the run loops.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns the real-time clock.
func SystemClock() Clock { return systemClock{} }

// The scheduler only needs the sweep entry points, not the concrete engine
// types, so fakes slot in for tests.
type (
	TransactionMaterializer interface {
		MaterializeDueTransactions(ctx context.Context, asOf time.Time) (engine.MaterializeResult, error)
	}
	AlertEvaluator interface {
		EvaluateBudgetAlerts(ctx context.Context, asOf time.Time) (engine.AlertResult, error)
	}
	CompletionDetector interface {
		EvaluateGoalCompletions(ctx context.Context, asOf time.Time) (engine.CompletionResult, error)
	}
	ReportSender interface {
		SendMonthlyReports(ctx context.Context, asOf time.Time) (engine.ReportResult, error)
	}
)

// Options tune the two run loops.
type Options struct {
	// DailyRunAt is the offset from local midnight for the daily sweep.
	DailyRunAt time.Duration
	// AlertInterval spaces the recurring alert/goal passes.
	AlertInterval time.Duration
	// MonthlyReports adds the report sweep to the daily run on the first
	// day of each month.
	MonthlyReports bool
	// Clock defaults to the system clock.
	Clock Clock
}

type Scheduler struct {
	materializer TransactionMaterializer
	alerts       AlertEvaluator
	goals        CompletionDetector
	reports      ReportSender
	opts         Options
}

func New(m TransactionMaterializer, a AlertEvaluator, g CompletionDetector, r ReportSender, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.AlertInterval <= 0 {
		opts.AlertInterval = 6 * time.Hour
	}
	return &Scheduler{
		materializer: m,
		alerts:       a,
		goals:        g,
		reports:      r,
		opts:         opts,
	}
}

// Run blocks until ctx is cancelled, driving both loops. The returned error
// is ctx.Err() on shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Scheduler starting",
		"daily_run_at", midnightOffset(s.opts.DailyRunAt),
		"alert_interval", s.opts.AlertInterval,
		"monthly_reports", s.opts.MonthlyReports)

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error { return s.runDailyLoop(ctx) })
	grp.Go(func() error { return s.runAlertLoop(ctx) })
	return grp.Wait()
}

func (s *Scheduler) runDailyLoop(ctx context.Context) error {
	for {
		now := s.opts.Clock.Now()
		next := nextDailyRun(now, s.opts.DailyRunAt)
		slog.InfoContext(ctx, "Next daily sweep scheduled",
			"at", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.opts.Clock.After(next.Sub(now)):
		}

		s.RunDailySweeps(ctx, s.opts.Clock.Now())
	}
}

func (s *Scheduler) runAlertLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.opts.Clock.After(s.opts.AlertInterval):
		}

		s.RunAlertSweeps(ctx, s.opts.Clock.Now())
	}
}

// RunDailySweeps executes the full daily pass: materialize due recurring
// transactions, then re-evaluate alerts and goal completions against the
// fresh data. On the first day of the month it also sends the previous
// month's reports, when enabled.
func (s *Scheduler) RunDailySweeps(ctx context.Context, asOf time.Time) {
	slog.InfoContext(ctx, "Running daily sweeps", "as_of", asOf.Format(time.RFC3339))

	if _, err := s.materializer.MaterializeDueTransactions(ctx, asOf); err != nil {
		slog.ErrorContext(ctx, "Materialization sweep failed", "error", err)
	}

	s.RunAlertSweeps(ctx, asOf)

	if s.opts.MonthlyReports && asOf.Day() == 1 {
		if _, err := s.reports.SendMonthlyReports(ctx, asOf); err != nil {
			slog.ErrorContext(ctx, "Monthly report sweep failed", "error", err)
		}
	}
}

// RunAlertSweeps executes the recurring pass: budget alerts, then goal
// completions.
func (s *Scheduler) RunAlertSweeps(ctx context.Context, asOf time.Time) {
	if _, err := s.alerts.EvaluateBudgetAlerts(ctx, asOf); err != nil {
		slog.ErrorContext(ctx, "Budget alert sweep failed", "error", err)
	}
	if _, err := s.goals.EvaluateGoalCompletions(ctx, asOf); err != nil {
		slog.ErrorContext(ctx, "Goal completion sweep failed", "error", err)
	}
}

// nextDailyRun returns the next occurrence of the daily run time strictly
// after now. A run time earlier today rolls over to tomorrow.
func nextDailyRun(now time.Time, at time.Duration) time.Time {
	next := core.StartOfDay(now).Add(at)
	if !next.After(now) {
		next = core.StartOfDay(now.AddDate(0, 0, 1)).Add(at)
	}
	return next
}

func midnightOffset(at time.Duration) string {
	return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(at).Format("15:04")
}
