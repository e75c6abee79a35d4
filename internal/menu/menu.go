// Package menu maintains the per-user menu message lifecycle: one pinned
// menu message plus a tail of transient messages that get swept from the
// chat when a menu-level command runs.
package menu

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/japanlife/assistbot/core/logger"
	"github.com/japanlife/assistbot/internal/domain"
	"github.com/japanlife/assistbot/internal/event"
)

// Deleter removes a message from a chat. *tele.Bot satisfies it.
type Deleter interface {
	Delete(msg tele.Editable) error
}

// Enqueuer schedules an outbound call on the async sender queue.
// *sender.Dispatcher satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, action, endpoint string, run func() error) error
}

// Manager mutates the menu block of a user in memory. Persistence is the
// caller's concern: the dispatch teardown saves the user exactly once.
type Manager struct {
	deleter Deleter
	sender  Enqueuer
}

// NewManager builds a manager over the given deleter. The deleter may be
// wired later via SetDeleter when the bot instance is not yet available.
func NewManager(deleter Deleter) *Manager {
	return &Manager{deleter: deleter}
}

// SetDeleter installs the transport used to remove messages.
func (m *Manager) SetDeleter(d Deleter) {
	m.deleter = d
}

// SetSender installs the async queue deletions are dispatched through. With
// no sender the manager deletes synchronously.
func (m *Manager) SetSender(s Enqueuer) {
	m.sender = s
}

// EnsureShape normalizes the menu block so every field is usable. Calling
// it on an already shaped menu changes nothing.
func (m *Manager) EnsureShape(u *domain.User) {
	if u == nil {
		return
	}
	if u.Menu.MessageIDs == nil {
		u.Menu.MessageIDs = []int{}
	}
}

// MenuMessageID returns the tracked menu message id, zero when none.
func (m *Manager) MenuMessageID(u *domain.User) int {
	if u == nil {
		return 0
	}
	return u.Menu.MenuMessageID
}

// SetMenuMessageID records the message currently serving as the menu.
func (m *Manager) SetMenuMessageID(u *domain.User, messageID int) {
	if u == nil {
		return
	}
	m.EnsureShape(u)
	u.Menu.MenuMessageID = messageID
}

// AppendMessage tracks a transient message. Only private chats are tracked;
// group chats keep their history. With autoClean the whole transient tail,
// the new message included, is swept from the chat right away; without it
// the id waits for the next CleanChat.
func (m *Manager) AppendMessage(ctx context.Context, u *domain.User, ev event.Event, messageID int, autoClean bool) {
	if u == nil || ev == nil || !event.IsPrivate(ev) {
		return
	}
	m.EnsureShape(u)
	u.Menu.MessageIDs = append(u.Menu.MessageIDs, messageID)
	if autoClean {
		m.CleanChat(ctx, u, ev.Chat().ID, false)
	}
}

// CleanChat deletes every tracked transient message and, when requested,
// the menu message itself. The tracked lists are drained unconditionally:
// a failed delete must not leave a stale id behind to fail again forever.
func (m *Manager) CleanChat(ctx context.Context, u *domain.User, chatID int64, deleteMenuMessage bool) {
	if u == nil {
		return
	}
	m.EnsureShape(u)

	ids := u.Menu.MessageIDs
	if deleteMenuMessage && u.Menu.MenuMessageID != 0 {
		ids = append(ids, u.Menu.MenuMessageID)
		u.Menu.MenuMessageID = 0
	}
	u.Menu.MessageIDs = []int{}

	for _, id := range ids {
		m.delete(ctx, chatID, id)
	}
}

func (m *Manager) delete(ctx context.Context, chatID int64, messageID int) {
	if m.deleter == nil {
		logger.Warn(ctx, "service.menu", "menu.delete.no_transport",
			slog.Int64("chat_id", chatID),
			slog.Int("message_id", messageID),
		)
		return
	}
	stored := tele.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    chatID,
	}
	run := func() error { return m.deleter.Delete(stored) }

	// Deletions ride the async sender when one is wired; its retry loop
	// already backs off on flood errors. A saturated queue falls back to a
	// synchronous delete so the sweep still happens.
	if m.sender != nil {
		if err := m.sender.Enqueue(ctx, "menu.delete", "deleteMessage", run); err == nil {
			return
		}
		logger.Warn(ctx, "service.menu", "menu.delete.queue_fallback",
			slog.Int64("chat_id", chatID),
			slog.Int("message_id", messageID),
		)
	}

	err := run()
	if err == nil {
		return
	}

	var flood *tele.FloodError
	if errors.As(err, &flood) {
		logger.Warn(ctx, "service.menu", "menu.delete.rate_limited",
			slog.Int64("chat_id", chatID),
			slog.Int("message_id", messageID),
			slog.Int("retry_after", flood.RetryAfter),
		)
		return
	}
	// Typically the message is already gone; not worth more than debug.
	logger.Debug(ctx, "service.menu", "menu.delete.failed",
		slog.Int64("chat_id", chatID),
		slog.Int("message_id", messageID),
		slog.String("err", err.Error()),
	)
}
