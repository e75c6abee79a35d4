package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japanlife/assistbot/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func userRows(t *testing.T) *sqlmock.Rows {
	t.Helper()
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "telegram_id", "username", "first_name", "last_name",
		"role", "state", "menu", "created_at", "last_activity",
	}).AddRow(
		int64(1), int64(42), "tester", "Test", "",
		"default", "", []byte(`{"menu_message_id":9,"messages_ids":[1,2]}`), now, now,
	)
}

func TestGetByTelegramIDScansMenuJSON(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE telegram_id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(userRows(t))

	user, err := repo.GetByTelegramID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, domain.RoleDefault, user.Role)
	assert.Equal(t, 9, user.Menu.MenuMessageID)
	assert.Equal(t, []int{1, 2}, user.Menu.MessageIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByTelegramIDUnknownUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE telegram_id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByTelegramID(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestGetOrCreateReturnsExistingUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE telegram_id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(userRows(t))

	user, created, err := repo.GetOrCreate(context.Background(), domain.Profile{TelegramID: 42})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(42), user.TelegramID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateInsertsNewUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE telegram_id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	user, created, err := repo.GetOrCreate(context.Background(), domain.Profile{
		TelegramID: 42,
		Username:   "tester",
		FirstName:  "Test",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(5), user.ID)
	assert.Equal(t, domain.RoleDefault, user.Role)
	assert.NotNil(t, user.Menu.MessageIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStateByTelegramIDUnknownUserIsEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`SELECT COALESCE\(state, ''\) FROM users`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"state"}))

	state, err := repo.StateByTelegramID(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, state)
}

func TestSaveUpdatesRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`UPDATE users SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &domain.User{TelegramID: 42, FirstName: "Test", Role: domain.RoleDefault}
	require.NoError(t, repo.Save(context.Background(), user))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveUnknownUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`UPDATE users SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), &domain.User{TelegramID: 7})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
