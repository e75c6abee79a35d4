package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/japanlife/assistbot/core/logger"
	"github.com/japanlife/assistbot/internal/domain"
	"github.com/japanlife/assistbot/internal/event"
)

// UserLookup resolves the replied-to sender as a domain user for
// reply-sourced arguments.
type UserLookup interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
}

// Rule validates a slash command against declared arguments. It implements
// route.Matcher: a failed validation replies with a usage message and
// reports no match, so the handler body never runs on malformed input.
type Rule struct {
	Command   string
	Prefix    string
	GroupOnly bool
	Args      []Argument

	store *Store
	users UserLookup
}

// NewRule constructs a command rule. The store receives parsed arguments on
// successful validation; users may be nil when no argument is reply-sourced.
func NewRule(command string, store *Store, users UserLookup, args ...Argument) *Rule {
	return &Rule{
		Command: command,
		Prefix:  "/",
		Args:    args,
		store:   store,
		users:   users,
	}
}

// Full returns the command literal with its prefix.
func (r *Rule) Full() string {
	return r.Prefix + r.Command
}

// Match implements route.Matcher. Parsed arguments are stashed in the store
// under the (chat, message) key on success.
func (r *Rule) Match(ctx context.Context, ev event.Event, _ string) bool {
	if ev.Kind() != event.KindMessage {
		return false
	}
	if r.GroupOnly && !event.IsGroup(ev) {
		return false
	}

	text := ev.Text()
	if text == "" || !strings.HasPrefix(text, r.Prefix) {
		return false
	}
	parts := strings.Fields(text)
	if len(parts) == 0 || parts[0] != r.Full() {
		return false
	}

	parsed, err := r.parse(ctx, ev, parts[1:])
	if err != nil {
		r.sendUsage(ctx, ev, err.Error())
		return false
	}

	r.store.Put(ev.Chat().ID, ev.MessageID(), parsed)
	return true
}

func (r *Rule) parse(ctx context.Context, ev event.Event, tokens []string) (Args, error) {
	parsed := make(Args, len(r.Args))

	var positional []Argument
	for _, arg := range r.Args {
		if !arg.FromReply {
			positional = append(positional, arg)
			continue
		}
		value, err := r.resolveReplyArg(ctx, ev, arg)
		if err != nil {
			return nil, err
		}
		parsed[arg.Name] = value
	}

	idx := 0
	for _, arg := range positional {
		if idx >= len(tokens) {
			if !arg.Optional {
				return nil, fmt.Errorf("Аргумент %s не указан", arg.Name)
			}
			parsed[arg.Name] = nil
			continue
		}
		value, ok := validate(tokens[idx], arg.Types)
		if !ok {
			return nil, fmt.Errorf("Аргумент %s должен быть одного из типов: %s",
				arg.Name, typeNames(arg.Types))
		}
		parsed[arg.Name] = value
		idx++
	}

	if idx < len(tokens) {
		return nil, errors.New("Указано слишком много аргументов")
	}
	return parsed, nil
}

func (r *Rule) resolveReplyArg(ctx context.Context, ev event.Event, arg Argument) (any, error) {
	reply := ev.ReplyTo()
	if reply == nil || reply.Sender == nil {
		if arg.Optional {
			return nil, nil
		}
		return nil, fmt.Errorf("Аргумент %s должен быть указан через reply сообщение", arg.Name)
	}
	if r.users == nil {
		return nil, fmt.Errorf("Аргумент %s недоступен", arg.Name)
	}
	user, err := r.users.GetByTelegramID(ctx, reply.Sender.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			if arg.Optional {
				return nil, nil
			}
			return nil, fmt.Errorf("Пользователь из reply сообщения не найден")
		}
		return nil, fmt.Errorf("Аргумент %s недоступен", arg.Name)
	}
	return user, nil
}

func validate(raw string, types []Type) (any, bool) {
	if len(types) == 0 {
		return raw, true
	}
	for _, t := range types {
		if t.Parse == nil {
			continue
		}
		if value, ok := t.Parse(raw); ok {
			return value, true
		}
	}
	return nil, false
}

func typeNames(types []Type) string {
	if len(types) == 0 {
		return "любой"
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

// Usage synthesizes the human readable invocation template from the
// declared arguments.
func (r *Rule) Usage() string {
	var b strings.Builder
	b.WriteString(r.Full())
	for _, arg := range r.Args {
		b.WriteByte(' ')
		b.WriteString(arg.Name)
		if len(arg.Types) > 0 {
			b.WriteString("<" + arg.Types[0].Name + ">")
		}
		if arg.Optional {
			b.WriteString(" (опционально)")
		}
	}
	return b.String()
}

func (r *Rule) sendUsage(ctx context.Context, ev event.Event, reason string) {
	instruction := fmt.Sprintf("❌ %s\n\n💡 Использование:\n%s", reason, r.Usage())
	if _, err := ev.Reply(instruction); err != nil {
		logger.Warn(ctx, "tg", "command.usage.send_failed",
			slog.String("command", r.Full()),
			slog.String("err", err.Error()),
		)
	}
}
