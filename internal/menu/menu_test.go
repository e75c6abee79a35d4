package menu

import (
	"context"
	"errors"
	"testing"

	tele "gopkg.in/telebot.v4"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japanlife/assistbot/internal/domain"
	"github.com/japanlife/assistbot/internal/testutil"
)

type fakeDeleter struct {
	deleted []tele.StoredMessage
	err     error
}

func (f *fakeDeleter) Delete(msg tele.Editable) error {
	if stored, ok := msg.(tele.StoredMessage); ok {
		f.deleted = append(f.deleted, stored)
	}
	return f.err
}

func TestEnsureShapeIsIdempotent(t *testing.T) {
	m := NewManager(nil)
	u := &domain.User{}

	m.EnsureShape(u)
	require.NotNil(t, u.Menu.MessageIDs)

	u.Menu.MessageIDs = append(u.Menu.MessageIDs, 1, 2)
	u.Menu.MenuMessageID = 9
	m.EnsureShape(u)

	assert.Equal(t, []int{1, 2}, u.Menu.MessageIDs)
	assert.Equal(t, 9, u.Menu.MenuMessageID)
}

func TestAppendMessageTracksUntilCleaned(t *testing.T) {
	d := &fakeDeleter{}
	m := NewManager(d)
	u := &domain.User{}
	ctx := context.Background()
	ev := testutil.Message(42, 100, 1, "hi")

	m.AppendMessage(ctx, u, ev, 11, false)
	m.AppendMessage(ctx, u, ev, 12, false)

	assert.Equal(t, []int{11, 12}, u.Menu.MessageIDs)
	assert.Empty(t, d.deleted)
}

func TestAppendMessageAutoCleanSweepsImmediately(t *testing.T) {
	d := &fakeDeleter{}
	m := NewManager(d)
	u := &domain.User{Menu: domain.Menu{MenuMessageID: 9}}
	ctx := context.Background()
	ev := testutil.Message(42, 100, 1, "hi")

	m.AppendMessage(ctx, u, ev, 11, false)
	m.AppendMessage(ctx, u, ev, 12, true)

	// The pending prompt and the new message are both gone, the menu survives.
	require.Len(t, d.deleted, 2)
	assert.Equal(t, tele.StoredMessage{MessageID: "11", ChatID: 100}, d.deleted[0])
	assert.Equal(t, tele.StoredMessage{MessageID: "12", ChatID: 100}, d.deleted[1])
	assert.Empty(t, u.Menu.MessageIDs)
	assert.Equal(t, 9, u.Menu.MenuMessageID)
}

func TestAppendMessageIgnoresGroupChats(t *testing.T) {
	m := NewManager(&fakeDeleter{})
	u := &domain.User{}

	m.AppendMessage(context.Background(), u, testutil.GroupMessage(42, -100, 1, "hi"), 11, false)

	// Group chats keep their history; nothing is tracked.
	assert.Empty(t, u.Menu.MessageIDs)
}

func TestCleanChatDeletesTrackedMessages(t *testing.T) {
	d := &fakeDeleter{}
	m := NewManager(d)
	u := &domain.User{Menu: domain.Menu{MenuMessageID: 9, MessageIDs: []int{1, 2}}}

	m.CleanChat(context.Background(), u, 100, false)

	require.Len(t, d.deleted, 2)
	assert.Equal(t, tele.StoredMessage{MessageID: "1", ChatID: 100}, d.deleted[0])
	assert.Equal(t, tele.StoredMessage{MessageID: "2", ChatID: 100}, d.deleted[1])
	// The menu message survives unless explicitly requested.
	assert.Equal(t, 9, u.Menu.MenuMessageID)
	assert.Empty(t, u.Menu.MessageIDs)
}

func TestCleanChatCanDeleteMenuMessage(t *testing.T) {
	d := &fakeDeleter{}
	m := NewManager(d)
	u := &domain.User{Menu: domain.Menu{MenuMessageID: 9, MessageIDs: []int{1}}}

	m.CleanChat(context.Background(), u, 100, true)

	require.Len(t, d.deleted, 2)
	assert.Zero(t, u.Menu.MenuMessageID)
	assert.Empty(t, u.Menu.MessageIDs)
}

func TestCleanChatDrainsEvenWhenDeletesFail(t *testing.T) {
	d := &fakeDeleter{err: errors.New("message to delete not found")}
	m := NewManager(d)
	u := &domain.User{Menu: domain.Menu{MessageIDs: []int{1, 2, 3}}}

	m.CleanChat(context.Background(), u, 100, false)

	// Failed deletes must not leave stale ids behind.
	assert.Empty(t, u.Menu.MessageIDs)
	assert.Len(t, d.deleted, 3)
}

type fakeQueue struct {
	jobs []func() error
	err  error
}

func (f *fakeQueue) Enqueue(_ context.Context, _, _ string, run func() error) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, run)
	return nil
}

func TestCleanChatRidesAsyncSender(t *testing.T) {
	d := &fakeDeleter{}
	q := &fakeQueue{}
	m := NewManager(d)
	m.SetSender(q)
	u := &domain.User{Menu: domain.Menu{MessageIDs: []int{1, 2}}}

	m.CleanChat(context.Background(), u, 100, false)

	// The list drains immediately; deletion happens on the sender workers.
	assert.Empty(t, u.Menu.MessageIDs)
	assert.Empty(t, d.deleted)
	require.Len(t, q.jobs, 2)
	for _, run := range q.jobs {
		require.NoError(t, run())
	}
	assert.Len(t, d.deleted, 2)
}

func TestCleanChatFallsBackWhenQueueRejects(t *testing.T) {
	d := &fakeDeleter{}
	m := NewManager(d)
	m.SetSender(&fakeQueue{err: errors.New("telegram sender: queue full")})
	u := &domain.User{Menu: domain.Menu{MessageIDs: []int{1}}}

	m.CleanChat(context.Background(), u, 100, false)

	// A saturated queue falls back to a synchronous delete.
	assert.Len(t, d.deleted, 1)
	assert.Empty(t, u.Menu.MessageIDs)
}

func TestCleanChatWithoutTransportStillDrains(t *testing.T) {
	m := NewManager(nil)
	u := &domain.User{Menu: domain.Menu{MessageIDs: []int{1}}}

	m.CleanChat(context.Background(), u, 100, false)
	assert.Empty(t, u.Menu.MessageIDs)
}
