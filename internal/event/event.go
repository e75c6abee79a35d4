// Package event wraps incoming Telegram updates in a tagged variant type so
// the dispatch pipeline and match rules can treat messages and callback
// presses uniformly without probing the raw update shape.
package event

import (
	tele "gopkg.in/telebot.v4"

	"github.com/japanlife/assistbot/core/telegram/callbacks"
)

// Kind tags the concrete update shape behind an Event.
type Kind int

const (
	// KindMessage is a plain chat message.
	KindMessage Kind = iota
	// KindCallback is an inline keyboard button press.
	KindCallback
)

// String returns the log-friendly name of the kind.
func (k Kind) String() string {
	if k == KindCallback {
		return "callback_query"
	}
	return "message"
}

// Event is the common capability surface over the two update shapes.
type Event interface {
	Kind() Kind
	Sender() *tele.User
	Chat() *tele.Chat
	// MessageID is the id of the originating message (for callbacks, the
	// message the keyboard is attached to).
	MessageID() int
	// Text returns the message text; empty for callback events.
	Text() string
	// CallbackKey returns the callback action key; empty for messages.
	CallbackKey() string
	// CallbackPayload returns the data after the action key, if any.
	CallbackPayload() string
	// ReplyTo returns the replied-to message, if the event is a reply.
	ReplyTo() *tele.Message
	// Reply sends a message back into the originating chat.
	Reply(text string, opts ...any) (*tele.Message, error)
	// Answer notifies the user: a callback toast for callbacks, a plain
	// reply for messages.
	Answer(text string) error
	// Tele exposes the underlying telebot context for handler bodies.
	Tele() tele.Context
}

// FromContext builds an Event from a telebot context. The boolean is false
// when neither sender nor chat can be extracted; such updates are dropped
// before any side effect happens.
func FromContext(c tele.Context) (Event, bool) {
	if c == nil || c.Sender() == nil || c.Chat() == nil {
		return nil, false
	}
	if cb := c.Callback(); cb != nil {
		return &callbackEvent{c: c, cb: cb}, true
	}
	if c.Message() == nil {
		return nil, false
	}
	return &messageEvent{c: c}, true
}

// IsPrivate reports whether the event originates from a one-to-one chat.
func IsPrivate(ev Event) bool {
	chat := ev.Chat()
	return chat != nil && chat.Type == tele.ChatPrivate
}

// IsGroup reports whether the event originates from a group chat.
func IsGroup(ev Event) bool {
	chat := ev.Chat()
	return chat != nil && (chat.Type == tele.ChatGroup || chat.Type == tele.ChatSuperGroup)
}

type messageEvent struct {
	c tele.Context
}

func (e *messageEvent) Kind() Kind { return KindMessage }

func (e *messageEvent) Sender() *tele.User { return e.c.Sender() }

func (e *messageEvent) Chat() *tele.Chat { return e.c.Chat() }

func (e *messageEvent) MessageID() int { return e.c.Message().ID }

func (e *messageEvent) Text() string { return e.c.Text() }

func (e *messageEvent) CallbackKey() string { return "" }

func (e *messageEvent) CallbackPayload() string { return "" }

func (e *messageEvent) Tele() tele.Context { return e.c }

func (e *messageEvent) ReplyTo() *tele.Message {
	return e.c.Message().ReplyTo
}

func (e *messageEvent) Reply(text string, opts ...any) (*tele.Message, error) {
	return e.c.Bot().Send(e.c.Chat(), text, opts...)
}

func (e *messageEvent) Answer(text string) error {
	_, err := e.Reply(text)
	return err
}

type callbackEvent struct {
	c  tele.Context
	cb *tele.Callback

	// answered guards against a second answerCallbackQuery for the same
	// query id, which the Bot API rejects.
	answered bool
}

func (e *callbackEvent) Kind() Kind { return KindCallback }

func (e *callbackEvent) Sender() *tele.User { return e.c.Sender() }

func (e *callbackEvent) Chat() *tele.Chat { return e.c.Chat() }

func (e *callbackEvent) Text() string { return "" }

func (e *callbackEvent) Tele() tele.Context { return e.c }

func (e *callbackEvent) MessageID() int {
	if e.cb.Message != nil {
		return e.cb.Message.ID
	}
	return 0
}

func (e *callbackEvent) CallbackKey() string {
	key, _ := parseCallbackData(e.cb)
	return key
}

func (e *callbackEvent) CallbackPayload() string {
	_, payload := parseCallbackData(e.cb)
	return payload
}

func (e *callbackEvent) ReplyTo() *tele.Message { return nil }

func (e *callbackEvent) Reply(text string, opts ...any) (*tele.Message, error) {
	return e.c.Bot().Send(e.c.Chat(), text, opts...)
}

func (e *callbackEvent) Answer(text string) error {
	if e.answered {
		return nil
	}
	e.answered = true
	return e.c.Respond(&tele.CallbackResponse{Text: text})
}

// Ack acknowledges a callback that no handler answered, so the button stops
// spinning. Message events and already answered callbacks are left alone.
func Ack(ev Event) {
	if cb, ok := ev.(*callbackEvent); ok {
		_ = cb.Answer("")
	}
}

// parseCallbackData splits telebot's \f<unique>|<payload> encoding.
func parseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return callbacks.ParseCallbackData(cb)
}
