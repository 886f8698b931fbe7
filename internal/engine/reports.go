package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/notify"
)

// ReportBuilder assembles and dispatches per-user monthly summaries. The
// scheduler triggers it on the first daily run of each month, covering the
// month that just ended.
type ReportBuilder struct {
	store      ReportStore
	dispatcher notify.Dispatcher
	timeouts   Timeouts
}

func NewReportBuilder(store ReportStore, dispatcher notify.Dispatcher, timeouts Timeouts) *ReportBuilder {
	return &ReportBuilder{store: store, dispatcher: dispatcher, timeouts: timeouts.orDefaults()}
}

// ReportResult summarizes one report sweep.
type ReportResult struct {
	Sent   int
	Errors []error
}

// SendMonthlyReports aggregates each user's activity for the month before
// asOf and dispatches a report. Users with no activity and users without a
// notification address are skipped without error.
func (b *ReportBuilder) SendMonthlyReports(ctx context.Context, asOf time.Time) (ReportResult, error) {
	// Last day of the previous month anchors the summary.
	ref := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, asOf.Location()).AddDate(0, 0, -1)

	usersCtx, cancel := withTimeout(ctx, b.timeouts.Store)
	users, err := b.store.ListUsers(usersCtx)
	cancel()
	if err != nil {
		return ReportResult{}, fmt.Errorf("list users: %w", err)
	}

	slog.InfoContext(ctx, "Building monthly reports",
		"users", len(users),
		"year", ref.Year(),
		"month", int(ref.Month()))

	var result ReportResult
	for _, user := range users {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, ctx.Err())
			return result, nil
		}

		sent, err := b.reportOne(ctx, user, ref)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to send monthly report",
				"user_id", user.ID,
				"error", err)
			result.Errors = append(result.Errors, fmt.Errorf("user %s: %w", user.ID, err))
			continue
		}
		if sent {
			result.Sent++
		}
	}

	slog.InfoContext(ctx, "Monthly report sweep complete",
		"sent", result.Sent,
		"errors", len(result.Errors))

	return result, nil
}

func (b *ReportBuilder) reportOne(ctx context.Context, user core.User, ref time.Time) (bool, error) {
	if user.Email == "" {
		return false, nil
	}

	sumCtx, cancel := withTimeout(ctx, b.timeouts.Store)
	summary, err := b.store.MonthlySummary(sumCtx, user.ID, ref)
	cancel()
	if err != nil {
		return false, fmt.Errorf("aggregate summary: %w", err)
	}
	if summary.IsEmpty() {
		return false, nil
	}

	notifyCtx, cancel := withTimeout(ctx, b.timeouts.Notify)
	res, err := b.dispatcher.SendMonthlyReport(notifyCtx, user, summary)
	cancel()
	if err != nil {
		return false, fmt.Errorf("dispatch report: %w", err)
	}
	if res.Skipped {
		return false, nil
	}

	return true, nil
}
