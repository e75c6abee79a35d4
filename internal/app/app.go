// Package app wires configuration, storage, services and handlers into a
// runnable bot.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/japanlife/assistbot/core/bootstrap"
	coretelegram "github.com/japanlife/assistbot/core/telegram"
	"github.com/japanlife/assistbot/core/telegram/commands"
	"github.com/japanlife/assistbot/internal/command"
	"github.com/japanlife/assistbot/internal/crm"
	"github.com/japanlife/assistbot/internal/dispatch"
	"github.com/japanlife/assistbot/internal/event"
	"github.com/japanlife/assistbot/internal/flow"
	"github.com/japanlife/assistbot/internal/handlers"
	"github.com/japanlife/assistbot/internal/menu"
	"github.com/japanlife/assistbot/internal/permission"
	"github.com/japanlife/assistbot/internal/repository/postgres"
	"github.com/japanlife/assistbot/internal/route"
	"github.com/japanlife/assistbot/internal/stage"
	"github.com/japanlife/assistbot/internal/stats"
)

// App holds the assembled bot.
type App struct {
	cfg   *Config
	db    *sqlx.DB
	menu  *menu.Manager
	table *route.Table
}

// Bootstrap initializes infrastructure and assembles the handler table.
func Bootstrap(cfg *Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	users := postgres.NewUserRepo(res.DB)
	apps := postgres.NewApplicationRepo(res.DB)
	statsRepo := postgres.NewStatsRepo(res.DB)

	menuMgr := menu.NewManager(nil)
	tracker := stats.NewTracker(statsRepo, nil)
	reporter := stats.NewReporter(statsRepo)
	scratch := flow.NewScratch()
	argStore := command.NewStore()
	crmClient := crm.NewClient(cfg.Bitrix)

	d := dispatch.NewDispatcher(dispatch.Deps{
		Users:    users,
		Menu:     menuMgr,
		Stats:    tracker,
		ArgStore: argStore,
		Perms:    permission.NewChecker(permission.Any()),
	})

	start := handlers.NewStart(menuMgr)
	application := handlers.NewApplication(menuMgr, scratch, apps, crmClient)
	admin := handlers.NewAdmin(reporter)

	table := route.NewTable(users)
	addMessageRoutes(table, d, argStore, users, start, application, admin)
	addCallbackRoutes(table, d, start, application)

	return &App{
		cfg:   cfg,
		db:    res.DB,
		menu:  menuMgr,
		table: table,
	}, nil
}

func addMessageRoutes(table *route.Table, d *dispatch.Dispatcher, argStore *command.Store, users *postgres.UserRepo, start *handlers.Start, application *handlers.Application, admin *handlers.Admin) {
	adminOnly := dispatch.WithGate(permission.None())
	appFlow := application.Flow

	cmdstat := command.NewRule("cmdstat", argStore, users, command.Argument{
		Name:  "команда",
		Types: []command.Type{command.String},
	})

	table.Add(
		route.Binding{
			Kind:   event.KindMessage,
			Name:   "start",
			Match:  route.And(route.Private(), route.Text("/start", "/menu")),
			Handle: d.Wrap("start", dispatch.ModeFull, start.Show),
		},
		route.Binding{
			Kind:   event.KindMessage,
			Name:   "stats",
			Match:  route.Text("/stats"),
			Handle: d.Wrap("stats", dispatch.ModeFinal, admin.Stats, adminOnly),
		},
		route.Binding{
			Kind:   event.KindMessage,
			Name:   "stats_detailed",
			Match:  route.Text("/stats_detailed"),
			Handle: d.Wrap("stats_detailed", dispatch.ModeFinal, admin.StatsDetailed, adminOnly),
		},
		route.Binding{
			Kind:   event.KindMessage,
			Name:   "cmdstat",
			Match:  cmdstat,
			Handle: d.Wrap("cmdstat", dispatch.ModeFinal, admin.CommandStats, adminOnly),
		},
		route.Binding{
			Kind:   event.KindMessage,
			Name:   "info",
			Match:  route.Text("/info"),
			Handle: d.Wrap("info", dispatch.ModeFinal, admin.Info, adminOnly),
		},
		route.Binding{
			Kind:   event.KindMessage,
			Name:   "application.car_model",
			Match:  route.Stage(appFlow.Stage("name")),
			Handle: d.Wrap(appFlow.Stage("name").Name(), dispatch.ModeIntermediate, application.CarModel),
		},
		route.Binding{
			Kind:   event.KindMessage,
			Name:   "application.phone",
			Match:  route.Stage(appFlow.Stage("number")),
			Handle: d.Wrap(appFlow.Stage("number").Name(), dispatch.ModeIntermediate, application.Phone),
		},
		route.Binding{
			Kind:   event.KindMessage,
			Name:   "application.finish",
			Match:  route.Stage(appFlow.Stage("description")),
			Handle: d.Wrap("application", dispatch.ModeFinal, application.Finish),
		},
	)
}

func addCallbackRoutes(table *route.Table, d *dispatch.Dispatcher, start *handlers.Start, application *handlers.Application) {
	appFlow := application.Flow

	table.Add(
		route.Binding{
			Kind:   event.KindCallback,
			Name:   "start",
			Match:  route.Stage(stage.New("start")),
			Handle: d.Wrap("start", dispatch.ModeFull, start.Show),
		},
		route.Binding{
			Kind:   event.KindCallback,
			Name:   "about",
			Match:  route.Stage(stage.New("about")),
			Handle: d.Wrap("about", dispatch.ModeFinal, start.About),
		},
		route.Binding{
			Kind:   event.KindCallback,
			Name:   "application",
			Match:  route.Stage(appFlow.Main),
			Handle: d.Wrap(appFlow.Name, dispatch.ModeMain, application.Begin),
		},
		route.Binding{
			Kind:   event.KindCallback,
			Name:   "application.cancel",
			Match:  route.Stage(appFlow.Back),
			Handle: d.Wrap(appFlow.Back.Name(), dispatch.ModeMain, application.Cancel),
		},
	)
}

// TelegramRunOptions builds the runtime options for the cmd runner.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	messageHandler := a.table.MessageHandler()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     messageHandler,
		Description: "Главное меню",
		Aliases:     []string{"menu"},
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     messageHandler,
		Description: "Статистика использования",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/stats_detailed", commands.Command{
		Handler:     messageHandler,
		Description: "Детальная статистика",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/cmdstat", commands.Command{
		Handler:     messageHandler,
		Description: "Статистика команды",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/info", commands.Command{
		Handler:     messageHandler,
		Description: "Информация о боте",
		AdminOnly:   true,
	})

	opts := coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes: []coretelegram.Route{
			{Endpoint: tele.OnText, Handler: messageHandler},
			{Endpoint: tele.OnCallback, Handler: a.table.CallbackHandler()},
		},
		OnStart: func(_ context.Context, rt coretelegram.Runtime) error {
			if rt.Bot == nil {
				return fmt.Errorf("app: runtime bot is nil")
			}
			a.menu.SetDeleter(rt.Bot)
			a.menu.SetSender(rt.Dispatcher)
			return nil
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			return a.db.Close()
		},
	}
	return opts, nil
}
