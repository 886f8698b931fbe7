package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

// Materializer turns recurring-transaction templates into concrete
// transactions on their due date.
type Materializer struct {
	store    TransactionStore
	timeouts Timeouts
}

func NewMaterializer(store TransactionStore, timeouts Timeouts) *Materializer {
	return &Materializer{store: store, timeouts: timeouts.orDefaults()}
}

// MaterializeResult summarizes one materialization sweep.
type MaterializeResult struct {
	Created int
	Errors  []error
}

// MaterializeDueTransactions creates one instance for every recurring
// template whose next due date falls on asOf's calendar day, then advances
// each template's next due date by one frequency step computed from its
// prior due date. Advancing from the prior due date, not from asOf, keeps
// the cadence anchored (a template firing on the 15th keeps firing on the
// 15th even when the sweep runs late in the day).
//
// Failures are isolated per template. When the instance create fails the
// template is not advanced, so the next sweep retries it; when only the
// advance fails, the already-created instance stays and the next sweep may
// duplicate it. Mutation pairs here are not transactional.
func (m *Materializer) MaterializeDueTransactions(ctx context.Context, asOf time.Time) (MaterializeResult, error) {
	window := core.DayWindowOf(asOf)

	findCtx, cancel := withTimeout(ctx, m.timeouts.Store)
	templates, err := m.store.FindDueRecurring(findCtx, window)
	cancel()
	if err != nil {
		return MaterializeResult{}, fmt.Errorf("find due recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Materializing due recurring transactions",
		"due", len(templates),
		"window_from", window.From.Format("2006-01-02"),
	)

	var result MaterializeResult
	for _, tmpl := range templates {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, ctx.Err())
			return result, nil
		}

		if err := m.materializeOne(ctx, tmpl, asOf); err != nil {
			slog.ErrorContext(ctx, "Failed to materialize recurring transaction",
				"transaction_id", tmpl.ID,
				"title", tmpl.Title,
				"error", err)
			result.Errors = append(result.Errors, fmt.Errorf("template %s: %w", tmpl.ID, err))
			continue
		}

		result.Created++
		slog.InfoContext(ctx, "Created transaction from recurring template",
			"transaction_id", tmpl.ID,
			"title", tmpl.Title,
			"amount", tmpl.Amount.String(),
			"frequency", string(tmpl.Frequency))
	}

	slog.InfoContext(ctx, "Materialization sweep complete",
		"created", result.Created,
		"errors", len(result.Errors))

	return result, nil
}

func (m *Materializer) materializeOne(ctx context.Context, tmpl core.Transaction, asOf time.Time) error {
	instance := core.Transaction{
		Title:     tmpl.Title,
		Amount:    tmpl.Amount,
		Type:      tmpl.Type,
		Category:  tmpl.Category,
		Date:      asOf,
		Recurring: true,
		Frequency: tmpl.Frequency,
		// The instance is itself a future template; its own cadence starts
		// from the day it was created.
		NextDueDate: core.Advance(asOf, tmpl.Frequency),
		Note:        tmpl.Note,
		OwnerID:     tmpl.OwnerID,
	}

	createCtx, cancel := withTimeout(ctx, m.timeouts.Store)
	_, err := m.store.CreateTransaction(createCtx, instance)
	cancel()
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}

	base := tmpl.NextDueDate
	if base.IsZero() {
		base = tmpl.Date
	}
	tmpl.NextDueDate = core.Advance(base, tmpl.Frequency)

	saveCtx, cancel := withTimeout(ctx, m.timeouts.Store)
	err = m.store.SaveTransaction(saveCtx, tmpl)
	cancel()
	if err != nil {
		return fmt.Errorf("advance template: %w", err)
	}

	return nil
}
