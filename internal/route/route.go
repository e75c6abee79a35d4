// Package route binds match rules to wrapped handlers and drives incoming
// updates through them. It replaces per-endpoint registration with a single
// ordered table per update kind: the first matching binding wins.
package route

import (
	"context"
	"strings"

	"github.com/japanlife/assistbot/internal/event"
	"github.com/japanlife/assistbot/internal/stage"
)

// Matcher decides whether a binding should handle the event. The state
// argument carries the user's persisted stage token for message events.
type Matcher interface {
	Match(ctx context.Context, ev event.Event, state string) bool
}

// MatcherFunc adapts a function to the Matcher interface.
type MatcherFunc func(ctx context.Context, ev event.Event, state string) bool

// Match implements Matcher.
func (f MatcherFunc) Match(ctx context.Context, ev event.Event, state string) bool {
	return f(ctx, ev, state)
}

// HandlerFunc is a fully wrapped handler ready to process an event.
type HandlerFunc func(ctx context.Context, ev event.Event) error

// Binding ties a match rule to a handler for one update kind.
type Binding struct {
	Kind   event.Kind
	Name   string
	Match  Matcher
	Handle HandlerFunc
}

// Text matches a message whose full text equals one of the variants,
// case-insensitively.
func Text(variants ...string) Matcher {
	lowered := make([]string, len(variants))
	for i, v := range variants {
		lowered[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return MatcherFunc(func(_ context.Context, ev event.Event, _ string) bool {
		if ev.Kind() != event.KindMessage {
			return false
		}
		text := strings.ToLower(strings.TrimSpace(ev.Text()))
		for _, v := range lowered {
			if text == v {
				return true
			}
		}
		return false
	})
}

// Private matches events from one-to-one chats.
func Private() Matcher {
	return MatcherFunc(func(_ context.Context, ev event.Event, _ string) bool {
		return event.IsPrivate(ev)
	})
}

// Group matches events from group chats.
func Group() Matcher {
	return MatcherFunc(func(_ context.Context, ev event.Event, _ string) bool {
		return event.IsGroup(ev)
	})
}

// Stage adapts a stage token into a match rule.
func Stage(st stage.Stage) Matcher {
	return MatcherFunc(func(_ context.Context, ev event.Event, state string) bool {
		return st.Match(ev, state)
	})
}

// And combines matchers; all must pass.
func And(ms ...Matcher) Matcher {
	return MatcherFunc(func(ctx context.Context, ev event.Event, state string) bool {
		for _, m := range ms {
			if m == nil || !m.Match(ctx, ev, state) {
				return false
			}
		}
		return true
	})
}
