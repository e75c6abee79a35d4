package route

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/japanlife/assistbot/core/logger"
	tghelpers "github.com/japanlife/assistbot/core/telegram/helpers"
	"github.com/japanlife/assistbot/internal/event"
)

// StateSource resolves the persisted stage token of a user. Message bindings
// need it to evaluate stage match rules.
type StateSource interface {
	StateByTelegramID(ctx context.Context, telegramID int64) (string, error)
}

// Table is the ordered binding table for one bot instance.
type Table struct {
	states   StateSource
	messages []Binding
	queries  []Binding
}

// NewTable constructs an empty binding table.
func NewTable(states StateSource) *Table {
	return &Table{states: states}
}

// Add appends bindings, keeping registration order within each kind.
func (t *Table) Add(bindings ...Binding) {
	for _, b := range bindings {
		if b.Match == nil || b.Handle == nil {
			logger.Warn(context.Background(), "tg.wire", "route.bind.skip",
				slog.String("name", b.Name),
			)
			continue
		}
		switch b.Kind {
		case event.KindCallback:
			t.queries = append(t.queries, b)
		default:
			t.messages = append(t.messages, b)
		}
	}
}

// MessageHandler returns the telebot handler driving text updates through the
// message bindings. Updates that match no binding are ignored.
func (t *Table) MessageHandler() tele.HandlerFunc {
	return func(c tele.Context) error {
		ev, ok := event.FromContext(c)
		if !ok {
			return nil
		}
		ctx := tghelpers.BuildContext(c)

		state := ""
		if t.states != nil {
			var err error
			state, err = t.states.StateByTelegramID(ctx, ev.Sender().ID)
			if err != nil {
				logger.Warn(ctx, "tg", "route.state.lookup_failed",
					slog.Int64("user_id", ev.Sender().ID),
					slog.String("err", err.Error()),
				)
			}
		}

		return t.serve(ctx, ev, state, t.messages)
	}
}

// CallbackHandler returns the telebot handler driving callback updates.
// Handlers answer the callback themselves; anything left unanswered is
// acknowledged afterwards so buttons never keep spinning. The event adapter
// guarantees a single answerCallbackQuery per query.
func (t *Table) CallbackHandler() tele.HandlerFunc {
	return func(c tele.Context) error {
		ev, ok := event.FromContext(c)
		if !ok {
			return nil
		}
		ctx := tghelpers.BuildContext(c)
		err := t.serve(ctx, ev, "", t.queries)
		event.Ack(ev)
		return err
	}
}

func (t *Table) serve(ctx context.Context, ev event.Event, state string, bindings []Binding) error {
	for _, b := range bindings {
		if !b.Match.Match(ctx, ev, state) {
			continue
		}
		if logger.ShouldSampleDebug() {
			logger.Debug(ctx, "tg", "route.match",
				slog.String("binding", b.Name),
				slog.String("kind", ev.Kind().String()),
				slog.String("state", state),
			)
		}
		return b.Handle(ctx, ev)
	}
	return nil
}
