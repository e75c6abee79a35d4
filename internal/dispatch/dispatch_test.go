package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/japanlife/assistbot/internal/command"
	"github.com/japanlife/assistbot/internal/domain"
	"github.com/japanlife/assistbot/internal/menu"
	"github.com/japanlife/assistbot/internal/permission"
	"github.com/japanlife/assistbot/internal/testutil"
)

type fakeUsers struct {
	user      *domain.User
	created   bool
	saveCalls int
	saved     *domain.User
	saveErr   error
}

func (f *fakeUsers) GetOrCreate(context.Context, domain.Profile) (*domain.User, bool, error) {
	return f.user, f.created, nil
}

func (f *fakeUsers) GetByTelegramID(context.Context, int64) (*domain.User, error) {
	return f.user, nil
}

func (f *fakeUsers) StateByTelegramID(context.Context, int64) (string, error) {
	return f.user.State, nil
}

func (f *fakeUsers) Save(_ context.Context, u *domain.User) error {
	f.saveCalls++
	f.saved = u
	return f.saveErr
}

type captureDeleter struct {
	deleted []string
}

func (c *captureDeleter) Delete(msg tele.Editable) error {
	id, _ := msg.MessageSig()
	c.deleted = append(c.deleted, id)
	return nil
}

type fakeTracker struct {
	tracked []string
}

func (f *fakeTracker) Track(_ context.Context, command string, _ int64) {
	f.tracked = append(f.tracked, command)
}

func newTestDispatcher(users *fakeUsers, tracker *fakeTracker, store *command.Store) *Dispatcher {
	return NewDispatcher(Deps{
		Users:    users,
		Menu:     menu.NewManager(nil),
		Stats:    tracker,
		ArgStore: store,
		Perms:    permission.NewChecker(permission.Any()),
		Now:      func() time.Time { return time.Unix(1700000000, 0) },
	})
}

func testUser() *domain.User {
	return &domain.User{ID: 1, TelegramID: 42, Role: domain.RoleDefault, FirstName: "Test"}
}

func TestIntermediateModeRunsBareHandler(t *testing.T) {
	users := &fakeUsers{user: testUser()}
	tracker := &fakeTracker{}
	d := newTestDispatcher(users, tracker, nil)

	var got *Context
	h := d.Wrap("step", ModeIntermediate, func(_ context.Context, dc *Context) error {
		got = dc
		return nil
	})

	ev := testutil.Message(42, 100, 5, "Toyota")
	require.NoError(t, h(context.Background(), ev))

	require.NotNil(t, got)
	assert.Equal(t, users.user, got.User)
	// Intermediate mode never rewrites state.
	assert.Empty(t, users.saved.State)
	assert.Equal(t, 1, users.saveCalls)
	assert.Empty(t, tracker.tracked)
}

func TestMainModeWritesStateAndSweepsChat(t *testing.T) {
	u := testUser()
	u.Menu.MessageIDs = []int{7, 8}
	users := &fakeUsers{user: u}
	tracker := &fakeTracker{}
	d := newTestDispatcher(users, tracker, nil)

	h := d.Wrap("menu", ModeMain, func(context.Context, *Context) error { return nil })

	ev := testutil.Message(42, 100, 5, "/menu")
	require.NoError(t, h(context.Background(), ev))

	assert.Equal(t, "menu", users.saved.State)
	// Tracked transient messages are drained during the dispatch.
	assert.Empty(t, users.saved.Menu.MessageIDs)
	assert.Equal(t, 1, users.saveCalls)
	assert.Empty(t, tracker.tracked)
}

func TestFinalModeTracksOnSuccess(t *testing.T) {
	users := &fakeUsers{user: testUser()}
	tracker := &fakeTracker{}
	d := newTestDispatcher(users, tracker, nil)

	h := d.Wrap("order", ModeFinal, func(context.Context, *Context) error { return nil })
	require.NoError(t, h(context.Background(), testutil.Message(42, 100, 5, "done")))

	assert.Equal(t, []string{"order"}, tracker.tracked)
	assert.Equal(t, 1, users.saveCalls)
}

func TestFinalModeSkipsTrackingOnHandlerError(t *testing.T) {
	users := &fakeUsers{user: testUser()}
	tracker := &fakeTracker{}
	d := newTestDispatcher(users, tracker, nil)

	boom := errors.New("boom")
	h := d.Wrap("order", ModeFinal, func(context.Context, *Context) error { return boom })

	err := h(context.Background(), testutil.Message(42, 100, 5, "done"))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, tracker.tracked)
	// The user is still persisted exactly once.
	assert.Equal(t, 1, users.saveCalls)
}

func TestWithoutStatsSuppressesTracking(t *testing.T) {
	users := &fakeUsers{user: testUser()}
	tracker := &fakeTracker{}
	d := newTestDispatcher(users, tracker, nil)

	h := d.Wrap("order", ModeFull, func(context.Context, *Context) error { return nil }, WithoutStats())
	require.NoError(t, h(context.Background(), testutil.Message(42, 100, 5, "done")))
	assert.Empty(t, tracker.tracked)
}

func TestPermissionDeniedSkipsHandlerAndTracking(t *testing.T) {
	users := &fakeUsers{user: testUser()}
	tracker := &fakeTracker{}
	d := newTestDispatcher(users, tracker, nil)

	called := false
	h := d.Wrap("admin", ModeFull, func(context.Context, *Context) error {
		called = true
		return nil
	}, WithGate(permission.None()))

	ev := testutil.Message(42, 100, 5, "/admin")
	require.NoError(t, h(context.Background(), ev))

	assert.False(t, called)
	assert.Equal(t, []string{"❌ Нет прав доступа"}, ev.Answers)
	assert.Empty(t, tracker.tracked)
	// State is not rewritten for a denied command.
	assert.Empty(t, users.saved.State)
	assert.Equal(t, 1, users.saveCalls)
}

func TestAdminPassesLocalGate(t *testing.T) {
	u := testUser()
	u.Role = domain.RoleAdmin
	users := &fakeUsers{user: u}
	d := newTestDispatcher(users, &fakeTracker{}, nil)

	called := false
	h := d.Wrap("admin", ModeFinal, func(context.Context, *Context) error {
		called = true
		return nil
	}, WithGate(permission.None()))

	ev := testutil.Message(42, 100, 5, "/admin")
	require.NoError(t, h(context.Background(), ev))
	assert.True(t, called)
	assert.Empty(t, ev.Answers)
}

func TestArgsAreConsumedOnce(t *testing.T) {
	users := &fakeUsers{user: testUser()}
	store := command.NewStore()
	store.Put(100, 5, command.Args{"лимит": int64(10)})
	d := newTestDispatcher(users, &fakeTracker{}, store)

	var got command.Args
	h := d.Wrap("top", ModeFinal, func(_ context.Context, dc *Context) error {
		got = dc.Args
		return nil
	})

	require.NoError(t, h(context.Background(), testutil.Message(42, 100, 5, "/top 10")))
	n, ok := got.Int("лимит")
	require.True(t, ok)
	assert.Equal(t, int64(10), n)
	assert.Zero(t, store.Len())
}

func TestPrivateMessageIsSweptImmediately(t *testing.T) {
	u := testUser()
	u.Menu.MessageIDs = []int{7}
	users := &fakeUsers{user: u}
	del := &captureDeleter{}
	d := NewDispatcher(Deps{
		Users: users,
		Menu:  menu.NewManager(del),
		Now:   func() time.Time { return time.Unix(1700000000, 0) },
	})

	h := d.Wrap("step", ModeIntermediate, func(context.Context, *Context) error { return nil })
	require.NoError(t, h(context.Background(), testutil.Message(42, 100, 5, "text")))

	// The pending prompt and the incoming message are deleted up front.
	assert.Equal(t, []string{"7", "5"}, del.deleted)
	assert.Empty(t, users.saved.Menu.MessageIDs)
}

func TestGroupMessagesAreNotSwept(t *testing.T) {
	u := testUser()
	u.Menu.MessageIDs = []int{7}
	users := &fakeUsers{user: u}
	d := newTestDispatcher(users, &fakeTracker{}, nil)

	h := d.Wrap("stats", ModeFull, func(context.Context, *Context) error { return nil })
	require.NoError(t, h(context.Background(), testutil.GroupMessage(42, -100, 5, "/stats")))

	// Group chats keep their history; the tracked list stays intact.
	assert.Equal(t, []int{7}, users.saved.Menu.MessageIDs)
}

func TestProfileRefreshAndActivityStamp(t *testing.T) {
	u := testUser()
	u.Username = "old"
	users := &fakeUsers{user: u}
	d := newTestDispatcher(users, &fakeTracker{}, nil)

	h := d.Wrap("step", ModeIntermediate, func(context.Context, *Context) error { return nil })

	ev := testutil.Message(42, 100, 5, "hi")
	ev.EvSender.Username = "fresh"
	require.NoError(t, h(context.Background(), ev))

	assert.Equal(t, "fresh", users.saved.Username)
	assert.Equal(t, time.Unix(1700000000, 0), users.saved.LastActivity)
}
