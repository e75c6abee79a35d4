package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/japanlife/assistbot/core/logger"
	"github.com/japanlife/assistbot/core/telegram/keyboard"
	"github.com/japanlife/assistbot/internal/crm"
	"github.com/japanlife/assistbot/internal/dispatch"
	"github.com/japanlife/assistbot/internal/domain"
	"github.com/japanlife/assistbot/internal/flow"
	"github.com/japanlife/assistbot/internal/menu"
	"github.com/japanlife/assistbot/internal/repository"
	"github.com/japanlife/assistbot/internal/stage"
)

const (
	scratchCarModel = "application.car_model"
	scratchPhone    = "application.phone"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{6,19}$`)

// ApplicationFlow returns the stage set of the purchase application flow.
func ApplicationFlow() *stage.Flow {
	return stage.NewFlow("application", "name", "number", "description")
}

// Application drives the multi-step purchase application conversation.
type Application struct {
	Flow    *stage.Flow
	Menu    *menu.Manager
	Scratch *flow.Scratch
	Apps    repository.Applications
	CRM     *crm.Client
}

// NewApplication builds the application flow handler. crmClient may be nil
// when the integration is not configured.
func NewApplication(m *menu.Manager, scratch *flow.Scratch, apps repository.Applications, crmClient *crm.Client) *Application {
	return &Application{
		Flow:    ApplicationFlow(),
		Menu:    m,
		Scratch: scratch,
		Apps:    apps,
		CRM:     crmClient,
	}
}

// Begin opens the flow: asks for the car model and moves the user into the
// first question stage.
func (h *Application) Begin(ctx context.Context, dc *dispatch.Context) error {
	h.Scratch.Clear(dc.User.ID)
	dc.User.State = h.Flow.Stage("name").Name()

	msg, err := dc.Event.Reply(
		"🚗 Какой автомобиль вас интересует?\nНапишите марку и модель, например: Toyota Prius.",
		cancelMarkup(),
	)
	if err != nil {
		return fmt.Errorf("ask car model: %w", err)
	}
	h.Menu.AppendMessage(ctx, dc.User, dc.Event, msg.ID, false)
	return nil
}

// CarModel stores the requested car and asks for the phone number.
func (h *Application) CarModel(ctx context.Context, dc *dispatch.Context) error {
	model := strings.TrimSpace(dc.Event.Text())
	if model == "" {
		return h.prompt(ctx, dc, "Напишите марку и модель автомобиля текстом.")
	}

	h.Scratch.Set(dc.User.ID, scratchCarModel, model)
	dc.User.State = h.Flow.Stage("number").Name()
	return h.prompt(ctx, dc, "📞 Оставьте номер телефона для связи, например: +7 900 000-00-00.")
}

// Phone validates and stores the contact number, then asks for details.
func (h *Application) Phone(ctx context.Context, dc *dispatch.Context) error {
	phone := strings.TrimSpace(dc.Event.Text())
	if !phonePattern.MatchString(phone) {
		return h.prompt(ctx, dc, "❌ Не похоже на номер телефона. Попробуйте ещё раз, например: +7 900 000-00-00.")
	}

	h.Scratch.Set(dc.User.ID, scratchPhone, phone)
	dc.User.State = h.Flow.Stage("description").Name()
	return h.prompt(ctx, dc, "📝 Расскажите о пожеланиях: год, бюджет, комплектация. Если нечего добавить, напишите «нет».")
}

// Finish persists the application, pushes a CRM lead and closes the flow.
func (h *Application) Finish(ctx context.Context, dc *dispatch.Context) error {
	model, _ := h.Scratch.GetString(dc.User.ID, scratchCarModel)
	phone, _ := h.Scratch.GetString(dc.User.ID, scratchPhone)
	comments := strings.TrimSpace(dc.Event.Text())

	app := &domain.Application{
		UserID:   dc.User.ID,
		Status:   domain.StatusNew,
		CarModel: model,
		Phone:    phone,
		Comments: comments,
	}
	if err := h.Apps.Create(ctx, app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}

	if h.CRM != nil {
		leadID, err := h.CRM.CreateLead(ctx, dc.User, app)
		if err != nil {
			// The application row is already saved; the lead can be re-sent
			// by hand from the admin side.
			logger.Warn(ctx, "crm.bitrix", "crm.lead.failed",
				slog.Int64("application_id", app.ID),
				slog.String("err", err.Error()),
			)
		} else {
			app.BitrixLeadID = sql.NullInt64{Int64: leadID, Valid: true}
			if err := h.Apps.Update(ctx, app); err != nil {
				logger.Warn(ctx, "crm.bitrix", "application.lead_link_failed",
					slog.Int64("application_id", app.ID),
					slog.String("err", err.Error()),
				)
			}
		}
	}

	h.Scratch.Clear(dc.User.ID)
	dc.User.State = ""

	msg, err := dc.Event.Reply(fmt.Sprintf(
		"✅ Заявка №%d принята!\n\nМенеджер свяжется с вами по номеру %s.",
		app.ID, phone,
	), keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "⬅️ В меню", Unique: "start"}},
	))
	if err != nil {
		return fmt.Errorf("confirm application: %w", err)
	}
	h.Menu.AppendMessage(ctx, dc.User, dc.Event, msg.ID, false)
	return nil
}

// Cancel abandons the flow and returns the user to an idle state.
func (h *Application) Cancel(_ context.Context, dc *dispatch.Context) error {
	h.Scratch.Clear(dc.User.ID)
	dc.User.State = ""
	return dc.Event.Answer("Заявка отменена")
}

func (h *Application) prompt(ctx context.Context, dc *dispatch.Context, text string) error {
	msg, err := dc.Event.Reply(text, cancelMarkup())
	if err != nil {
		return fmt.Errorf("send prompt: %w", err)
	}
	h.Menu.AppendMessage(ctx, dc.User, dc.Event, msg.ID, false)
	return nil
}

func cancelMarkup() *tele.ReplyMarkup {
	return keyboard.SingleCancelMarkup("application:back", "cancel", "❌ Отмена")
}
