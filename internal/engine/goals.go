package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/notify"
)

// GoalCompletionDetector sweeps incomplete goals and flips the cached
// completion flag for those whose saved amount has reached the target.
//
// The sweep only ever moves goals from incomplete to complete. A goal whose
// amount later drops below target is un-completed by the edit path, not
// here.
type GoalCompletionDetector struct {
	goals      GoalStore
	users      UserStore
	dispatcher notify.Dispatcher
	timeouts   Timeouts
}

func NewGoalCompletionDetector(goals GoalStore, users UserStore, dispatcher notify.Dispatcher, timeouts Timeouts) *GoalCompletionDetector {
	return &GoalCompletionDetector{
		goals:      goals,
		users:      users,
		dispatcher: dispatcher,
		timeouts:   timeouts.orDefaults(),
	}
}

// CompletionResult summarizes one goal completion sweep.
type CompletionResult struct {
	Completed int
	Errors    []error
}

// EvaluateGoalCompletions marks achieved goals completed and dispatches an
// achievement notification per transition. The persist happens before the
// dispatch and is not rolled back when dispatch fails; the goal stays
// completed and the notification is simply lost.
func (d *GoalCompletionDetector) EvaluateGoalCompletions(ctx context.Context, asOf time.Time) (CompletionResult, error) {
	findCtx, cancel := withTimeout(ctx, d.timeouts.Store)
	goals, err := d.goals.FindIncompleteGoals(findCtx)
	cancel()
	if err != nil {
		return CompletionResult{}, fmt.Errorf("find incomplete goals: %w", err)
	}

	slog.InfoContext(ctx, "Evaluating goal completions", "incomplete", len(goals))

	var result CompletionResult
	for _, goal := range goals {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, ctx.Err())
			return result, nil
		}

		if !goal.Achieved() {
			continue
		}

		completed, err := d.completeOne(ctx, goal)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to complete goal",
				"goal_id", goal.ID,
				"title", goal.Title,
				"error", err)
			result.Errors = append(result.Errors, fmt.Errorf("goal %s: %w", goal.ID, err))
		}
		if completed {
			result.Completed++
		}
	}

	slog.InfoContext(ctx, "Goal completion sweep complete",
		"completed", result.Completed,
		"errors", len(result.Errors))

	return result, nil
}

// completeOne persists the completion flip, then dispatches. The returned
// bool reports whether the flip was persisted, independent of whether the
// notification made it out.
func (d *GoalCompletionDetector) completeOne(ctx context.Context, goal core.Goal) (bool, error) {
	goal.IsCompleted = true

	saveCtx, cancel := withTimeout(ctx, d.timeouts.Store)
	err := d.goals.SaveGoal(saveCtx, goal)
	cancel()
	if err != nil {
		return false, fmt.Errorf("persist completion: %w", err)
	}

	slog.InfoContext(ctx, "Goal completed",
		"goal_id", goal.ID,
		"title", goal.Title,
		"target_amount", goal.TargetAmount.String(),
		"current_amount", goal.CurrentAmount.String())

	userCtx, cancel := withTimeout(ctx, d.timeouts.Store)
	user, err := d.users.FindUser(userCtx, goal.OwnerID)
	cancel()
	if err != nil {
		return true, fmt.Errorf("find owner: %w", err)
	}
	if user.Email == "" {
		slog.DebugContext(ctx, "Goal owner has no notification address, skipping achievement",
			"goal_id", goal.ID,
			"user_id", user.ID)
		return true, nil
	}

	notifyCtx, cancel := withTimeout(ctx, d.timeouts.Notify)
	res, err := d.dispatcher.SendGoalAchievement(notifyCtx, *user, goal)
	cancel()
	if err != nil {
		return true, fmt.Errorf("dispatch achievement: %w", err)
	}
	if res.Skipped {
		slog.DebugContext(ctx, "Goal achievement skipped by dispatcher", "goal_id", goal.ID)
	}

	return true, nil
}
