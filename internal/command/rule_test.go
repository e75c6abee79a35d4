package command

import (
	"context"
	"testing"

	tele "gopkg.in/telebot.v4"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japanlife/assistbot/internal/domain"
	"github.com/japanlife/assistbot/internal/testutil"
)

type fakeUsers struct {
	users map[int64]*domain.User
}

func (f *fakeUsers) GetByTelegramID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func TestRuleMatchParsesAndStoresArgs(t *testing.T) {
	store := NewStore()
	rule := NewRule("pay", store, nil,
		Argument{Name: "сумма", Types: []Type{Decimal}},
		Argument{Name: "комментарий", Types: []Type{String}, Optional: true},
	)

	ev := testutil.Message(1, 10, 5, "/pay 99,90 аванс")
	require.True(t, rule.Match(context.Background(), ev, ""))

	args, ok := store.Consume(10, 5)
	require.True(t, ok)

	amount, ok := args.Float("сумма")
	require.True(t, ok)
	assert.InDelta(t, 99.9, amount, 1e-9)

	comment, ok := args.String("комментарий")
	require.True(t, ok)
	assert.Equal(t, "аванс", comment)
	assert.Empty(t, ev.Replies)
}

func TestRuleMatchRejectsOtherCommands(t *testing.T) {
	rule := NewRule("pay", NewStore(), nil)

	assert.False(t, rule.Match(context.Background(), testutil.Message(1, 10, 5, "/stats"), ""))
	assert.False(t, rule.Match(context.Background(), testutil.Message(1, 10, 5, "hello"), ""))
	assert.False(t, rule.Match(context.Background(), testutil.Callback(1, 10, 5, "pay"), ""))
	// Prefix match is exact, not substring.
	assert.False(t, rule.Match(context.Background(), testutil.Message(1, 10, 5, "/payout 5"), ""))
}

func TestRuleMissingRequiredArgumentSendsUsage(t *testing.T) {
	store := NewStore()
	rule := NewRule("pay", store, nil,
		Argument{Name: "сумма", Types: []Type{Decimal}},
	)

	ev := testutil.Message(1, 10, 5, "/pay")
	assert.False(t, rule.Match(context.Background(), ev, ""))

	require.Len(t, ev.Replies, 1)
	assert.Contains(t, ev.Replies[0], "❌ Аргумент сумма не указан")
	assert.Contains(t, ev.Replies[0], "💡 Использование:")
	assert.Contains(t, ev.Replies[0], "/pay сумма<дробь>")

	_, ok := store.Consume(10, 5)
	assert.False(t, ok)
}

func TestRuleSurplusTokensSendUsage(t *testing.T) {
	rule := NewRule("ban", NewStore(), nil,
		Argument{Name: "причина", Types: []Type{String}},
	)

	ev := testutil.Message(1, 10, 5, "/ban спам и ещё что-то")
	assert.False(t, rule.Match(context.Background(), ev, ""))
	require.Len(t, ev.Replies, 1)
	assert.Contains(t, ev.Replies[0], "Указано слишком много аргументов")
}

func TestRuleTypeMismatchSendsUsage(t *testing.T) {
	rule := NewRule("top", NewStore(), nil,
		Argument{Name: "лимит", Types: []Type{Int}},
	)

	ev := testutil.Message(1, 10, 5, "/top десять")
	assert.False(t, rule.Match(context.Background(), ev, ""))
	require.Len(t, ev.Replies, 1)
	assert.Contains(t, ev.Replies[0], "должен быть одного из типов: число")
}

func TestRuleOptionalArgumentMayBeOmitted(t *testing.T) {
	store := NewStore()
	rule := NewRule("top", store, nil,
		Argument{Name: "лимит", Types: []Type{Int}, Optional: true},
	)

	ev := testutil.Message(1, 10, 5, "/top")
	require.True(t, rule.Match(context.Background(), ev, ""))

	args, ok := store.Consume(10, 5)
	require.True(t, ok)
	assert.False(t, args.Present("лимит"))
}

func TestRuleReplyArgumentResolvesUser(t *testing.T) {
	store := NewStore()
	target := &domain.User{ID: 7, TelegramID: 777, Username: "target"}
	users := &fakeUsers{users: map[int64]*domain.User{777: target}}

	rule := NewRule("promote", store, users,
		Argument{Name: "пользователь", FromReply: true},
	)

	ev := testutil.Message(1, 10, 5, "/promote")
	ev.EvReplyTo = &tele.Message{Sender: &tele.User{ID: 777}}
	require.True(t, rule.Match(context.Background(), ev, ""))

	args, ok := store.Consume(10, 5)
	require.True(t, ok)
	got, ok := args.User("пользователь")
	require.True(t, ok)
	assert.Equal(t, target, got)
}

func TestRuleReplyArgumentRequiresReply(t *testing.T) {
	rule := NewRule("promote", NewStore(), &fakeUsers{},
		Argument{Name: "пользователь", FromReply: true},
	)

	ev := testutil.Message(1, 10, 5, "/promote")
	assert.False(t, rule.Match(context.Background(), ev, ""))
	require.Len(t, ev.Replies, 1)
	assert.Contains(t, ev.Replies[0], "должен быть указан через reply сообщение")
}
