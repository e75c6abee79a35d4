// Package testutil provides shared fakes for handler and pipeline tests.
package testutil

import (
	tele "gopkg.in/telebot.v4"

	"github.com/japanlife/assistbot/internal/event"
)

// FakeEvent is a scriptable event.Event implementation.
type FakeEvent struct {
	EvKind    event.Kind
	EvSender  *tele.User
	EvChat    *tele.Chat
	EvMsgID   int
	EvText    string
	EvCbKey   string
	EvCbData  string
	EvReplyTo *tele.Message

	// ReplyErr, when set, fails every Reply call.
	ReplyErr error

	// Replies collects the texts sent through Reply.
	Replies []string
	// Answers collects the texts sent through Answer.
	Answers []string

	nextMsgID int
}

// Message builds a private-chat message event.
func Message(userID int64, chatID int64, msgID int, text string) *FakeEvent {
	return &FakeEvent{
		EvKind:   event.KindMessage,
		EvSender: &tele.User{ID: userID, FirstName: "Test"},
		EvChat:   &tele.Chat{ID: chatID, Type: tele.ChatPrivate},
		EvMsgID:  msgID,
		EvText:   text,
	}
}

// GroupMessage builds a group-chat message event.
func GroupMessage(userID int64, chatID int64, msgID int, text string) *FakeEvent {
	ev := Message(userID, chatID, msgID, text)
	ev.EvChat.Type = tele.ChatGroup
	return ev
}

// Callback builds a private-chat callback event.
func Callback(userID int64, chatID int64, msgID int, key string) *FakeEvent {
	return &FakeEvent{
		EvKind:   event.KindCallback,
		EvSender: &tele.User{ID: userID, FirstName: "Test"},
		EvChat:   &tele.Chat{ID: chatID, Type: tele.ChatPrivate},
		EvMsgID:  msgID,
		EvCbKey:  key,
	}
}

func (f *FakeEvent) Kind() event.Kind { return f.EvKind }

func (f *FakeEvent) Sender() *tele.User { return f.EvSender }

func (f *FakeEvent) Chat() *tele.Chat { return f.EvChat }

func (f *FakeEvent) MessageID() int { return f.EvMsgID }

func (f *FakeEvent) Text() string { return f.EvText }

func (f *FakeEvent) CallbackKey() string { return f.EvCbKey }

func (f *FakeEvent) CallbackPayload() string { return f.EvCbData }

func (f *FakeEvent) ReplyTo() *tele.Message { return f.EvReplyTo }

func (f *FakeEvent) Tele() tele.Context { return nil }

// Reply records the text and returns a message with a fresh id.
func (f *FakeEvent) Reply(text string, _ ...any) (*tele.Message, error) {
	if f.ReplyErr != nil {
		return nil, f.ReplyErr
	}
	f.Replies = append(f.Replies, text)
	f.nextMsgID++
	return &tele.Message{ID: 1000 + f.nextMsgID, Chat: f.EvChat}, nil
}

// Answer records the notification text.
func (f *FakeEvent) Answer(text string) error {
	f.Answers = append(f.Answers, text)
	return nil
}
