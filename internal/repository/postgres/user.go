package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/japanlife/assistbot/core/logger"
	"github.com/japanlife/assistbot/internal/domain"
)

// UserRepo is the sqlx-backed implementation of repository.Users.
type UserRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewUserRepo constructs a user repository over the given connection pool.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db, now: time.Now}
}

const userColumns = `id, telegram_id, COALESCE(username, '') AS username, first_name,
	COALESCE(last_name, '') AS last_name, role, COALESCE(state, '') AS state, menu,
	created_at, last_activity`

// GetOrCreate resolves the user by telegram id, inserting a fresh row with the
// default role on first contact.
func (r *UserRepo) GetOrCreate(ctx context.Context, profile domain.Profile) (*domain.User, bool, error) {
	user, err := r.GetByTelegramID(ctx, profile.TelegramID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, false, err
	}

	now := r.now()
	created := &domain.User{
		TelegramID:   profile.TelegramID,
		Username:     profile.Username,
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		Role:         domain.RoleDefault,
		Menu:         domain.Menu{MessageIDs: []int{}},
		CreatedAt:    now,
		LastActivity: now,
	}

	query := `INSERT INTO users (telegram_id, username, first_name, last_name, role, state, menu, created_at, last_activity)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, NULL, $6, $7, $7)
		ON CONFLICT (telegram_id) DO NOTHING
		RETURNING id`
	err = r.db.QueryRowxContext(ctx, query,
		created.TelegramID, created.Username, created.FirstName, created.LastName,
		created.Role, created.Menu, now,
	).Scan(&created.ID)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the insert race; the row exists now.
		user, err = r.GetByTelegramID(ctx, profile.TelegramID)
		if err != nil {
			return nil, false, err
		}
		return user, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}

	logger.Info(ctx, "service.users", "user.created",
		slog.Int64("telegram_id", created.TelegramID),
		slog.Int64("user_id", created.ID),
	)
	return created, true, nil
}

// GetByTelegramID returns a user row or domain.ErrUserNotFound.
func (r *UserRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	var user domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`
	if err := r.db.GetContext(ctx, &user, query, telegramID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}
	return &user, nil
}

// StateByTelegramID returns the persisted stage token without materializing
// the whole row. Unknown users yield an empty state, not an error.
func (r *UserRepo) StateByTelegramID(ctx context.Context, telegramID int64) (string, error) {
	var state string
	query := `SELECT COALESCE(state, '') FROM users WHERE telegram_id = $1`
	if err := r.db.GetContext(ctx, &state, query, telegramID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get user state: %w", err)
	}
	return state, nil
}

// Save persists every mutable field of the user row.
func (r *UserRepo) Save(ctx context.Context, user *domain.User) error {
	query := `UPDATE users SET username = NULLIF($2, ''), first_name = $3, last_name = NULLIF($4, ''),
		role = $5, state = NULLIF($6, ''), menu = $7, last_activity = $8
		WHERE telegram_id = $1`
	res, err := r.db.ExecContext(ctx, query,
		user.TelegramID, user.Username, user.FirstName, user.LastName,
		user.Role, user.State, user.Menu, user.LastActivity,
	)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
