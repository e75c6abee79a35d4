// Package handlers contains the bot-facing handler bodies. Every body runs
// inside the dispatch pipeline and receives a populated dispatch.Context;
// pipeline concerns (permissions, state writes, cleanup, stats) never appear
// here.
package handlers

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/japanlife/assistbot/core/telegram/keyboard"
	"github.com/japanlife/assistbot/internal/dispatch"
	"github.com/japanlife/assistbot/internal/menu"
)

const mainMenuText = `👋 Добро пожаловать в Japan Life!

Поможем подобрать и привезти автомобиль из Японии.
Выберите действие:`

// Start renders the main menu for /start, /menu and the "start" callback.
type Start struct {
	Menu *menu.Manager
}

// NewStart builds the main menu handler.
func NewStart(m *menu.Manager) *Start {
	return &Start{Menu: m}
}

func mainMenuMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "🚗 Оставить заявку", Unique: "application"}},
		[]keyboard.InlineBtn{{Text: "ℹ️ О нас", Unique: "about"}},
	)
}

// Show sends the menu message and remembers its id so later menu commands
// can keep the chat tidy. A previous menu message is deleted together with
// the transient tail so the chat never holds two menus.
func (h *Start) Show(ctx context.Context, dc *dispatch.Context) error {
	greeting := mainMenuText
	if dc.IsNewUser {
		greeting = fmt.Sprintf("👋 Рады знакомству, %s!\n\n%s", dc.User.FirstName, mainMenuText)
	}

	h.Menu.CleanChat(ctx, dc.User, dc.Event.Chat().ID, true)

	msg, err := dc.Event.Reply(greeting, mainMenuMarkup())
	if err != nil {
		return fmt.Errorf("send main menu: %w", err)
	}
	h.Menu.SetMenuMessageID(dc.User, msg.ID)
	return nil
}

const aboutText = `ℹ️ Japan Life — подбор и доставка автомобилей с аукционов Японии.

Мы сопровождаем сделку от ставки на аукционе до выдачи автомобиля.
Оставьте заявку, и менеджер свяжется с вами.`

// About renders the company card.
func (h *Start) About(ctx context.Context, dc *dispatch.Context) error {
	msg, err := dc.Event.Reply(aboutText, keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "⬅️ В меню", Unique: "start"}},
	))
	if err != nil {
		return fmt.Errorf("send about: %w", err)
	}
	h.Menu.AppendMessage(ctx, dc.User, dc.Event, msg.ID, false)
	return nil
}
