package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japanlife/assistbot/internal/domain"
	"github.com/japanlife/assistbot/internal/repository"
)

type fakeStatsRepo struct {
	executed    map[string]map[int64]bool
	execErr     error
	incErr      error
	increments  []incrementCall
	recorded    []recordCall
	stats       map[string]*domain.CommandStats
	totals      *domain.TotalStats
	top         []domain.CommandCount
	trend       []domain.DailyCount
}

type incrementCall struct {
	command string
	newUser bool
}

type recordCall struct {
	command string
	userID  int64
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{
		executed: make(map[string]map[int64]bool),
		stats:    make(map[string]*domain.CommandStats),
	}
}

func (f *fakeStatsRepo) UserExecuted(_ context.Context, command string, userID int64) (bool, error) {
	if f.execErr != nil {
		return false, f.execErr
	}
	return f.executed[command][userID], nil
}

func (f *fakeStatsRepo) IncrementCommand(_ context.Context, command string, newUser bool, _ time.Time) error {
	if f.incErr != nil {
		return f.incErr
	}
	f.increments = append(f.increments, incrementCall{command: command, newUser: newUser})
	return nil
}

func (f *fakeStatsRepo) RecordExecution(_ context.Context, command string, userID int64, _ time.Time) error {
	f.recorded = append(f.recorded, recordCall{command: command, userID: userID})
	if f.executed[command] == nil {
		f.executed[command] = make(map[int64]bool)
	}
	f.executed[command][userID] = true
	return nil
}

func (f *fakeStatsRepo) CommandStats(_ context.Context, command string) (*domain.CommandStats, error) {
	if s, ok := f.stats[command]; ok {
		return s, nil
	}
	return nil, repository.ErrStatsNotFound
}

func (f *fakeStatsRepo) TotalStats(context.Context) (*domain.TotalStats, error) {
	return f.totals, nil
}

func (f *fakeStatsRepo) TopCommands(context.Context, int) ([]domain.CommandCount, error) {
	return f.top, nil
}

func (f *fakeStatsRepo) UsageTrend(context.Context, int) ([]domain.DailyCount, error) {
	return f.trend, nil
}

func (f *fakeStatsRepo) UserCommandCounts(context.Context, int64) ([]domain.CommandCount, error) {
	return nil, nil
}

func TestTrackCountsUniqueUsersOnce(t *testing.T) {
	repo := newFakeStatsRepo()
	tr := NewTracker(repo, nil)

	tr.Track(context.Background(), "start", 1)
	tr.Track(context.Background(), "start", 1)
	tr.Track(context.Background(), "start", 2)

	require.Len(t, repo.increments, 3)
	assert.True(t, repo.increments[0].newUser)
	assert.False(t, repo.increments[1].newUser)
	assert.True(t, repo.increments[2].newUser)
	assert.Len(t, repo.recorded, 3)
}

func TestTrackSwallowsRepositoryErrors(t *testing.T) {
	repo := newFakeStatsRepo()
	repo.execErr = errors.New("db down")
	tr := NewTracker(repo, nil)

	// Must not panic or propagate.
	tr.Track(context.Background(), "start", 1)
	assert.Empty(t, repo.increments)
	assert.Empty(t, repo.recorded)
}

func TestTrackStopsAfterIncrementFailure(t *testing.T) {
	repo := newFakeStatsRepo()
	repo.incErr = errors.New("db down")
	tr := NewTracker(repo, nil)

	tr.Track(context.Background(), "start", 1)
	assert.Empty(t, repo.recorded)
}

func TestTrackIgnoresEmptyCommand(t *testing.T) {
	repo := newFakeStatsRepo()
	NewTracker(repo, nil).Track(context.Background(), "", 1)
	assert.Empty(t, repo.increments)
}

func TestReporterSummary(t *testing.T) {
	repo := newFakeStatsRepo()
	repo.totals = &domain.TotalStats{TotalExecutions: 42, TotalUsers: 7, TotalCommands: 3}
	repo.top = []domain.CommandCount{{CommandName: "start", Count: 30}}

	text, err := NewReporter(repo).Summary(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "Всего выполнений: 42")
	assert.Contains(t, text, "Уникальных пользователей: 7")
	assert.Contains(t, text, "1. start — 30")
}

func TestReporterCommandUnknown(t *testing.T) {
	text, err := NewReporter(newFakeStatsRepo()).Command(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Contains(t, text, "ещё не выполнялась")
}

func TestReporterCommandKnown(t *testing.T) {
	repo := newFakeStatsRepo()
	repo.stats["start"] = &domain.CommandStats{
		CommandName:    "start",
		ExecutionCount: 10,
		TotalUsers:     4,
		LastExecution:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	text, err := NewReporter(repo).Command(context.Background(), "start")
	require.NoError(t, err)
	assert.Contains(t, text, "Выполнений: 10")
	assert.Contains(t, text, "Пользователей: 4")
	assert.Contains(t, text, "В среднем на пользователя: 2.5")
}
