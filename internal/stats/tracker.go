// Package stats tracks command usage and renders usage reports. Tracking is
// best-effort: a statistics failure never fails the command that triggered
// it.
package stats

import (
	"context"
	"log/slog"
	"time"

	"github.com/japanlife/assistbot/core/logger"
	"github.com/japanlife/assistbot/internal/repository"
)

// Tracker records command executions against the stats repository.
type Tracker struct {
	repo repository.Stats
	now  func() time.Time
}

// NewTracker builds a tracker. The now function defaults to time.Now.
func NewTracker(repo repository.Stats, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{repo: repo, now: now}
}

// Track records one execution of command by the given user. The aggregate
// row bumps its execution count on every call; the unique-user count grows
// only on the first execution by this user. Errors are logged and swallowed.
func (t *Tracker) Track(ctx context.Context, command string, userID int64) {
	if t.repo == nil || command == "" {
		return
	}
	executed, err := t.repo.UserExecuted(ctx, command, userID)
	if err != nil {
		logger.Warn(ctx, "service.stats", "stats.user_check_failed",
			slog.String("command", command),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return
	}

	now := t.now()
	if err := t.repo.IncrementCommand(ctx, command, !executed, now); err != nil {
		logger.Warn(ctx, "service.stats", "stats.increment_failed",
			slog.String("command", command),
			slog.String("err", err.Error()),
		)
		return
	}
	if err := t.repo.RecordExecution(ctx, command, userID, now); err != nil {
		logger.Warn(ctx, "service.stats", "stats.record_failed",
			slog.String("command", command),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}
