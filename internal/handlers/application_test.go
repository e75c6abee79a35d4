package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/japanlife/assistbot/internal/dispatch"
	"github.com/japanlife/assistbot/internal/domain"
	"github.com/japanlife/assistbot/internal/flow"
	"github.com/japanlife/assistbot/internal/menu"
	"github.com/japanlife/assistbot/internal/repository"
	"github.com/japanlife/assistbot/internal/testutil"
)

type fakeApps struct {
	created []*domain.Application
	updated []*domain.Application
}

func (f *fakeApps) Create(_ context.Context, app *domain.Application) error {
	app.ID = int64(len(f.created) + 1)
	f.created = append(f.created, app)
	return nil
}

func (f *fakeApps) Update(_ context.Context, app *domain.Application) error {
	f.updated = append(f.updated, app)
	return nil
}

func (f *fakeApps) GetByID(_ context.Context, id int64) (*domain.Application, error) {
	for _, a := range f.created {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, repository.ErrApplicationNotFound
}

func newApplicationHandler(apps repository.Applications) *Application {
	return NewApplication(menu.NewManager(nil), flow.NewScratch(), apps, nil)
}

func flowContext(user *domain.User, ev *testutil.FakeEvent) *dispatch.Context {
	return &dispatch.Context{Event: ev, User: user}
}

func TestApplicationFlowStages(t *testing.T) {
	f := ApplicationFlow()
	assert.Equal(t, "application", f.Main.Name())
	assert.Equal(t, "application:back", f.Back.Name())
	assert.Equal(t, "application:name", f.Stage("name").Name())
	assert.Equal(t, "application:number", f.Stage("number").Name())
	assert.Equal(t, "application:description", f.Stage("description").Name())
}

func TestBeginMovesUserIntoFirstStage(t *testing.T) {
	h := newApplicationHandler(&fakeApps{})
	user := &domain.User{ID: 1, TelegramID: 42}
	ev := testutil.Callback(42, 100, 5, "application")

	require.NoError(t, h.Begin(context.Background(), flowContext(user, ev)))
	assert.Equal(t, "application:name", user.State)
	require.Len(t, ev.Replies, 1)
	// The prompt is tracked for later sweeping.
	assert.Len(t, user.Menu.MessageIDs, 1)
}

func TestFullFlowCreatesApplication(t *testing.T) {
	apps := &fakeApps{}
	h := newApplicationHandler(apps)
	user := &domain.User{ID: 1, TelegramID: 42}
	ctx := context.Background()

	require.NoError(t, h.Begin(ctx, flowContext(user, testutil.Callback(42, 100, 5, "application"))))

	ev := testutil.Message(42, 100, 6, "Toyota Prius")
	require.NoError(t, h.CarModel(ctx, flowContext(user, ev)))
	assert.Equal(t, "application:number", user.State)

	ev = testutil.Message(42, 100, 7, "+7 900 000-00-00")
	require.NoError(t, h.Phone(ctx, flowContext(user, ev)))
	assert.Equal(t, "application:description", user.State)

	ev = testutil.Message(42, 100, 8, "2020 год, до 2 млн")
	require.NoError(t, h.Finish(ctx, flowContext(user, ev)))

	require.Len(t, apps.created, 1)
	app := apps.created[0]
	assert.Equal(t, int64(1), app.UserID)
	assert.Equal(t, domain.StatusNew, app.Status)
	assert.Equal(t, "Toyota Prius", app.CarModel)
	assert.Equal(t, "+7 900 000-00-00", app.Phone)
	assert.Equal(t, "2020 год, до 2 млн", app.Comments)

	// The flow is closed: state reset, scratch drained.
	assert.Empty(t, user.State)
	_, ok := h.Scratch.Get(user.ID, scratchCarModel)
	assert.False(t, ok)
	require.Len(t, ev.Replies, 1)
	assert.Contains(t, ev.Replies[0], "Заявка №1 принята")
}

func TestPhoneRejectsGarbage(t *testing.T) {
	h := newApplicationHandler(&fakeApps{})
	user := &domain.User{ID: 1, State: "application:number"}

	ev := testutil.Message(42, 100, 7, "позвоните сами")
	require.NoError(t, h.Phone(context.Background(), flowContext(user, ev)))

	// The user stays on the same stage until a valid number arrives.
	assert.Equal(t, "application:number", user.State)
	require.Len(t, ev.Replies, 1)
	assert.Contains(t, ev.Replies[0], "Не похоже на номер телефона")
}

func TestCancelResetsFlow(t *testing.T) {
	h := newApplicationHandler(&fakeApps{})
	user := &domain.User{ID: 1, State: "application:number"}
	h.Scratch.Set(user.ID, scratchCarModel, "Toyota")

	ev := testutil.Callback(42, 100, 5, "application:back")
	require.NoError(t, h.Cancel(context.Background(), flowContext(user, ev)))

	assert.Empty(t, user.State)
	_, ok := h.Scratch.Get(user.ID, scratchCarModel)
	assert.False(t, ok)
	assert.Equal(t, []string{"Заявка отменена"}, ev.Answers)
}

type recordDeleter struct {
	deleted []string
}

func (r *recordDeleter) Delete(msg tele.Editable) error {
	id, _ := msg.MessageSig()
	r.deleted = append(r.deleted, id)
	return nil
}

func TestStartShowRemembersMenuMessage(t *testing.T) {
	h := NewStart(menu.NewManager(nil))
	user := &domain.User{ID: 1, TelegramID: 42, FirstName: "Иван"}

	ev := testutil.Message(42, 100, 5, "/start")
	dc := &dispatch.Context{Event: ev, User: user, IsNewUser: true}
	require.NoError(t, h.Show(context.Background(), dc))

	require.Len(t, ev.Replies, 1)
	assert.Contains(t, ev.Replies[0], "Иван")
	assert.NotZero(t, user.Menu.MenuMessageID)
}

func TestStartShowReplacesPreviousMenuMessage(t *testing.T) {
	del := &recordDeleter{}
	h := NewStart(menu.NewManager(del))
	user := &domain.User{
		ID:         1,
		TelegramID: 42,
		Menu:       domain.Menu{MenuMessageID: 555, MessageIDs: []int{7}},
	}

	ev := testutil.Message(42, 100, 5, "/menu")
	require.NoError(t, h.Show(context.Background(), &dispatch.Context{Event: ev, User: user}))

	// The old menu message and the transient tail are gone before the new
	// menu arrives; the chat never holds two menus.
	assert.Equal(t, []string{"7", "555"}, del.deleted)
	require.Len(t, ev.Replies, 1)
	assert.NotZero(t, user.Menu.MenuMessageID)
	assert.NotEqual(t, 555, user.Menu.MenuMessageID)
	assert.Empty(t, user.Menu.MessageIDs)
}
