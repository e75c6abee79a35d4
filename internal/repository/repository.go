// Package repository declares the storage contracts consumed by services and
// the dispatch pipeline. Implementations live in subpackages.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/japanlife/assistbot/internal/domain"
)

// ErrStatsNotFound is returned when a command has no aggregate row yet.
var ErrStatsNotFound = errors.New("command stats not found")

// ErrApplicationNotFound is returned when no application row matches.
var ErrApplicationNotFound = errors.New("application not found")

// Users provides access to persisted user rows.
type Users interface {
	// GetOrCreate resolves a user by telegram id, creating the row on first
	// contact. The second return value reports whether a new row was created.
	GetOrCreate(ctx context.Context, profile domain.Profile) (*domain.User, bool, error)

	// GetByTelegramID returns the user or domain.ErrUserNotFound.
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)

	// StateByTelegramID returns the persisted stage token, empty when the
	// user is unknown or outside any flow.
	StateByTelegramID(ctx context.Context, telegramID int64) (string, error)

	// Save persists mutable fields (profile, role, state, menu, activity).
	Save(ctx context.Context, user *domain.User) error
}

// Applications provides access to purchase application rows.
type Applications interface {
	Create(ctx context.Context, app *domain.Application) error
	Update(ctx context.Context, app *domain.Application) error
	GetByID(ctx context.Context, id int64) (*domain.Application, error)
}

// Stats provides the write and read sides of command statistics.
type Stats interface {
	// UserExecuted reports whether the user has any prior execution row for
	// the command. Used to maintain the distinct-users counter.
	UserExecuted(ctx context.Context, command string, userID int64) (bool, error)

	// IncrementCommand upserts the aggregate counter row: creates it on first
	// use, otherwise bumps execution_count and, when newUser is set,
	// total_users; always refreshes last_execution.
	IncrementCommand(ctx context.Context, command string, newUser bool, at time.Time) error

	// RecordExecution appends the durable per-event row.
	RecordExecution(ctx context.Context, command string, userID int64, at time.Time) error

	CommandStats(ctx context.Context, command string) (*domain.CommandStats, error)
	TotalStats(ctx context.Context) (*domain.TotalStats, error)
	TopCommands(ctx context.Context, limit int) ([]domain.CommandCount, error)
	UsageTrend(ctx context.Context, days int) ([]domain.DailyCount, error)
	UserCommandCounts(ctx context.Context, userID int64) ([]domain.CommandCount, error)
}
