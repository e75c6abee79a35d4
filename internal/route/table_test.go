package route

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japanlife/assistbot/internal/event"
	"github.com/japanlife/assistbot/internal/stage"
	"github.com/japanlife/assistbot/internal/testutil"
)

func always() Matcher {
	return MatcherFunc(func(context.Context, event.Event, string) bool { return true })
}

func never() Matcher {
	return MatcherFunc(func(context.Context, event.Event, string) bool { return false })
}

func named(hits *[]string, name string) HandlerFunc {
	return func(context.Context, event.Event) error {
		*hits = append(*hits, name)
		return nil
	}
}

func TestFirstMatchingBindingWins(t *testing.T) {
	table := NewTable(nil)
	var hits []string

	table.Add(
		Binding{Kind: event.KindMessage, Name: "skip", Match: never(), Handle: named(&hits, "skip")},
		Binding{Kind: event.KindMessage, Name: "first", Match: always(), Handle: named(&hits, "first")},
		Binding{Kind: event.KindMessage, Name: "second", Match: always(), Handle: named(&hits, "second")},
	)

	ev := testutil.Message(1, 10, 5, "hello")
	require.NoError(t, table.serve(context.Background(), ev, "", table.messages))
	assert.Equal(t, []string{"first"}, hits)
}

func TestBindingsSplitByKind(t *testing.T) {
	table := NewTable(nil)
	var hits []string

	table.Add(
		Binding{Kind: event.KindMessage, Name: "msg", Match: always(), Handle: named(&hits, "msg")},
		Binding{Kind: event.KindCallback, Name: "cb", Match: always(), Handle: named(&hits, "cb")},
	)

	require.Len(t, table.messages, 1)
	require.Len(t, table.queries, 1)

	cb := testutil.Callback(1, 10, 5, "cb")
	require.NoError(t, table.serve(context.Background(), cb, "", table.queries))
	assert.Equal(t, []string{"cb"}, hits)
}

func TestInvalidBindingsAreSkipped(t *testing.T) {
	table := NewTable(nil)
	table.Add(
		Binding{Kind: event.KindMessage, Name: "no-handler", Match: always()},
		Binding{Kind: event.KindMessage, Name: "no-matcher", Handle: named(new([]string), "x")},
	)
	assert.Empty(t, table.messages)
}

func TestUnmatchedEventIsIgnored(t *testing.T) {
	table := NewTable(nil)
	table.Add(Binding{Kind: event.KindMessage, Name: "skip", Match: never(), Handle: named(new([]string), "skip")})

	ev := testutil.Message(1, 10, 5, "hello")
	assert.NoError(t, table.serve(context.Background(), ev, "", table.messages))
}

func TestMatcherCombinators(t *testing.T) {
	ctx := context.Background()

	private := testutil.Message(1, 10, 5, " /Start ")
	group := testutil.GroupMessage(1, -10, 5, "/start")

	assert.True(t, Text("/start", "/menu").Match(ctx, private, ""))
	assert.True(t, Text("/start").Match(ctx, group, ""))
	assert.False(t, Text("/menu").Match(ctx, group, ""))

	assert.True(t, Private().Match(ctx, private, ""))
	assert.False(t, Private().Match(ctx, group, ""))
	assert.True(t, Group().Match(ctx, group, ""))

	assert.True(t, And(Private(), Text("/start")).Match(ctx, private, ""))
	assert.False(t, And(Group(), Text("/start")).Match(ctx, private, ""))

	st := stage.New("order:name")
	assert.True(t, Stage(st).Match(ctx, testutil.Message(1, 10, 5, "x"), "order:name"))
	assert.False(t, Stage(st).Match(ctx, testutil.Message(1, 10, 5, "x"), "other"))
}
