// Package dispatch wraps handler bodies with the shared execution pipeline:
// user resolution, permission gating, state writes, argument injection, chat
// cleanup, usage tracking and the completion log. Handlers receive a fully
// populated Context and never touch the pipeline concerns themselves.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/japanlife/assistbot/core/logger"
	"github.com/japanlife/assistbot/internal/command"
	"github.com/japanlife/assistbot/internal/domain"
	"github.com/japanlife/assistbot/internal/event"
	"github.com/japanlife/assistbot/internal/menu"
	"github.com/japanlife/assistbot/internal/permission"
	"github.com/japanlife/assistbot/internal/repository"
	"github.com/japanlife/assistbot/internal/route"
)

const deniedReply = "❌ Нет прав доступа"

// Tracker records a successful command execution.
type Tracker interface {
	Track(ctx context.Context, command string, userID int64)
}

// Context carries everything a handler body needs.
type Context struct {
	Event event.Event
	User  *domain.User
	// IsNewUser is set when the user row was created by this very update.
	IsNewUser bool
	// Args holds the parsed command arguments, nil when the handler has no
	// command rule.
	Args command.Args
}

// Handler is a dispatch-aware handler body.
type Handler func(ctx context.Context, dc *Context) error

// Deps are the collaborators shared by every wrapped handler.
type Deps struct {
	Users    repository.Users
	Menu     *menu.Manager
	Stats    Tracker
	ArgStore *command.Store
	Perms    *permission.Checker
	Now      func() time.Time
}

// Dispatcher builds wrapped handlers over a shared dependency set.
type Dispatcher struct {
	deps Deps
}

// NewDispatcher constructs a dispatcher. Perms defaults to an open checker
// and Now to time.Now.
func NewDispatcher(deps Deps) *Dispatcher {
	if deps.Perms == nil {
		deps.Perms = permission.NewChecker(nil)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Dispatcher{deps: deps}
}

type options struct {
	gate      permission.Gate
	trackStat bool
}

// Option tweaks a single wrapped handler.
type Option func(*options)

// WithGate guards the handler with a local permission gate.
func WithGate(g permission.Gate) Option {
	return func(o *options) { o.gate = g }
}

// WithoutStats suppresses usage tracking for the handler.
func WithoutStats() Option {
	return func(o *options) { o.trackStat = false }
}

// Wrap builds the route handler for a body. The title doubles as the state
// token for state-writing modes and as the command name in statistics.
func (d *Dispatcher) Wrap(title string, mode Mode, h Handler, opts ...Option) route.HandlerFunc {
	o := options{trackStat: true}
	for _, opt := range opts {
		opt(&o)
	}
	b := mode.behavior()

	return func(ctx context.Context, ev event.Event) error {
		start := d.deps.Now()
		ctx = logger.WithHandler(ctx, title)

		dc, err := d.buildContext(ctx, ev)
		if err != nil {
			logger.Error(ctx, "dispatch", "dispatch.user_resolve_failed",
				slog.String("handler", title),
				slog.String("err", err.Error()),
			)
			return err
		}

		denied := !d.deps.Perms.Check(dc.User, o.gate)
		var handlerErr error

		if !denied {
			if b.writeState {
				dc.User.State = title
			}
			handlerErr = h(ctx, dc)
		} else {
			if err := ev.Answer(deniedReply); err != nil {
				logger.Warn(ctx, "dispatch", "dispatch.denied_reply_failed",
					slog.String("handler", title),
					slog.String("err", err.Error()),
				)
			}
		}

		d.teardown(ctx, dc, b)

		if b.logTrack && !denied {
			d.logAndTrack(ctx, title, dc, start, handlerErr, o.trackStat)
		}
		if denied {
			logger.Info(ctx, "dispatch", "dispatch.denied",
				slog.String("handler", title),
				slog.String("user", dc.User.DisplayName()),
			)
			return nil
		}
		return handlerErr
	}
}

// buildContext resolves the user and consumes pending command arguments.
func (d *Dispatcher) buildContext(ctx context.Context, ev event.Event) (*Context, error) {
	sender := ev.Sender()
	user, created, err := d.deps.Users.GetOrCreate(ctx, domain.Profile{
		TelegramID: sender.ID,
		Username:   sender.Username,
		FirstName:  sender.FirstName,
		LastName:   sender.LastName,
	})
	if err != nil {
		return nil, err
	}

	d.refreshProfile(user, sender)
	user.LastActivity = d.deps.Now()
	d.deps.Menu.EnsureShape(user)

	// Private chat messages are swept right away together with any pending
	// prompts, keeping only the menu message in the chat. The manager itself
	// ignores group chats.
	if ev.Kind() == event.KindMessage {
		d.deps.Menu.AppendMessage(ctx, user, ev, ev.MessageID(), true)
	}

	dc := &Context{Event: ev, User: user, IsNewUser: created}
	if d.deps.ArgStore != nil {
		if args, ok := d.deps.ArgStore.Consume(ev.Chat().ID, ev.MessageID()); ok {
			dc.Args = args
		}
	}
	return dc, nil
}

func (d *Dispatcher) refreshProfile(user *domain.User, sender *tele.User) {
	if sender.Username != "" {
		user.Username = sender.Username
	}
	if sender.FirstName != "" {
		user.FirstName = sender.FirstName
	}
	user.LastName = sender.LastName
}

// teardown sweeps the chat for menu-level modes and persists the user. The
// user row is saved exactly once per update, here.
func (d *Dispatcher) teardown(ctx context.Context, dc *Context, b behavior) {
	if b.cleanChat && event.IsPrivate(dc.Event) {
		d.deps.Menu.CleanChat(ctx, dc.User, dc.Event.Chat().ID, false)
	}
	if err := d.deps.Users.Save(ctx, dc.User); err != nil {
		logger.Error(ctx, "dispatch", "dispatch.user_save_failed",
			slog.Int64("user_id", dc.User.TelegramID),
			slog.String("err", err.Error()),
		)
	}
}

func (d *Dispatcher) logAndTrack(ctx context.Context, title string, dc *Context, start time.Time, handlerErr error, trackStat bool) {
	elapsed := logger.RoundMS(d.deps.Now().Sub(start))
	attrs := []slog.Attr{
		slog.String("handler", title),
		slog.String("user", dc.User.DisplayName()),
		slog.String("status", logger.Status(handlerErr)),
		slog.Duration("took", elapsed),
	}
	if handlerErr != nil {
		attrs = append(attrs, slog.String("err", handlerErr.Error()))
		logger.Error(ctx, "dispatch", "dispatch.done", attrs...)
		return
	}
	logger.Info(ctx, "dispatch", "dispatch.done", attrs...)

	if trackStat && d.deps.Stats != nil {
		d.deps.Stats.Track(ctx, title, dc.User.ID)
	}
}
