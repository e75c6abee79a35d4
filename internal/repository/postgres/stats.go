package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/japanlife/assistbot/internal/domain"
	"github.com/japanlife/assistbot/internal/repository"
)

// StatsRepo persists command statistics counters and per-event rows.
type StatsRepo struct {
	db *sqlx.DB
}

// NewStatsRepo constructs a statistics repository.
func NewStatsRepo(db *sqlx.DB) *StatsRepo {
	return &StatsRepo{db: db}
}

// UserExecuted reports whether the user already has an execution row for the
// command.
func (r *StatsRepo) UserExecuted(ctx context.Context, command string, userID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM command_user_stats WHERE command_name = $1 AND user_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, command, userID); err != nil {
		return false, fmt.Errorf("check user execution: %w", err)
	}
	return exists, nil
}

// IncrementCommand upserts the per-command aggregate row. The counter row is
// created on first use; total_users grows only when newUser is set.
func (r *StatsRepo) IncrementCommand(ctx context.Context, command string, newUser bool, at time.Time) error {
	query := `INSERT INTO command_stats (command_name, execution_count, total_users, last_execution, created_at, updated_at)
		VALUES ($1, 1, 1, $2, $2, $2)
		ON CONFLICT (command_name) DO UPDATE SET
			execution_count = command_stats.execution_count + 1,
			total_users = command_stats.total_users + CASE WHEN $3 THEN 1 ELSE 0 END,
			last_execution = $2,
			updated_at = $2`
	if _, err := r.db.ExecContext(ctx, query, command, at, newUser); err != nil {
		return fmt.Errorf("increment command stats: %w", err)
	}
	return nil
}

// RecordExecution appends the durable per-event row used by trend queries.
func (r *StatsRepo) RecordExecution(ctx context.Context, command string, userID int64, at time.Time) error {
	query := `INSERT INTO command_user_stats (command_name, user_id, executed_at) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, command, userID, at); err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	return nil
}

// CommandStats returns the aggregate row for one command.
func (r *StatsRepo) CommandStats(ctx context.Context, command string) (*domain.CommandStats, error) {
	var stats domain.CommandStats
	query := `SELECT id, command_name, execution_count, total_users, last_execution, created_at, updated_at
		FROM command_stats WHERE command_name = $1`
	if err := r.db.GetContext(ctx, &stats, query, command); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrStatsNotFound
		}
		return nil, fmt.Errorf("get command stats: %w", err)
	}
	return &stats, nil
}

// TotalStats aggregates counters across all commands.
func (r *StatsRepo) TotalStats(ctx context.Context) (*domain.TotalStats, error) {
	var totals domain.TotalStats
	query := `SELECT COALESCE(SUM(execution_count), 0) AS total_executions,
		COALESCE(SUM(total_users), 0) AS total_users,
		COUNT(command_name) AS total_commands
		FROM command_stats`
	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("get total stats: %w", err)
	}
	return &totals, nil
}

// TopCommands returns the most executed commands, busiest first.
func (r *StatsRepo) TopCommands(ctx context.Context, limit int) ([]domain.CommandCount, error) {
	if limit <= 0 {
		limit = 10
	}
	var top []domain.CommandCount
	query := `SELECT command_name, execution_count AS count
		FROM command_stats ORDER BY execution_count DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &top, query, limit); err != nil {
		return nil, fmt.Errorf("get top commands: %w", err)
	}
	return top, nil
}

// UsageTrend returns per-day execution counts for the last N days, derived
// from the per-event rows. Days without executions are absent.
func (r *StatsRepo) UsageTrend(ctx context.Context, days int) ([]domain.DailyCount, error) {
	if days <= 0 {
		days = 7
	}
	var trend []domain.DailyCount
	query := `SELECT DATE_TRUNC('day', executed_at) AS day, COUNT(*) AS count
		FROM command_user_stats
		WHERE executed_at >= NOW() - ($1 * INTERVAL '1 day')
		GROUP BY day ORDER BY day DESC`
	if err := r.db.SelectContext(ctx, &trend, query, days); err != nil {
		return nil, fmt.Errorf("get usage trend: %w", err)
	}
	return trend, nil
}

// UserCommandCounts returns per-command execution counts for one user.
func (r *StatsRepo) UserCommandCounts(ctx context.Context, userID int64) ([]domain.CommandCount, error) {
	var counts []domain.CommandCount
	query := `SELECT command_name, COUNT(*) AS count
		FROM command_user_stats WHERE user_id = $1
		GROUP BY command_name ORDER BY count DESC`
	if err := r.db.SelectContext(ctx, &counts, query, userID); err != nil {
		return nil, fmt.Errorf("get user command counts: %w", err)
	}
	return counts, nil
}
