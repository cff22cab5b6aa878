// Package app assembles the application: configuration, storage, services
// and the Telegram surface.
package app

import (
	"context"
	"fmt"
	"time"

	coredatabase "github.com/m3rciful/refbot/core/database"
	"github.com/m3rciful/refbot/core/logger"
	coretelegram "github.com/m3rciful/refbot/core/telegram"
	"github.com/m3rciful/refbot/core/telegram/router"
	"github.com/m3rciful/refbot/internal/bot"
	"github.com/m3rciful/refbot/internal/ledger"
	"github.com/m3rciful/refbot/internal/session"
	"github.com/m3rciful/refbot/internal/storage"

	"github.com/jmoiron/sqlx"
)

// App owns the wired components for one process.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	store    storage.Store
	ledger   *ledger.Service
	sessions *session.Manager
	surface  *bot.Bot
}

// Bootstrap initializes logging, storage and services in dependency order.
func Bootstrap(cfg *Config) (*App, error) {
	if err := logger.InitLogger(cfg.CoreConfig()); err != nil {
		return nil, fmt.Errorf("app: logger init failed: %w", err)
	}
	if err := coredatabase.RunMigrations(cfg.Database); err != nil {
		return nil, fmt.Errorf("app: migrations failed: %w", err)
	}
	db, err := coredatabase.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("app: database connect failed: %w", err)
	}

	store := storage.NewPostgres(db)
	ledgerSvc := ledger.New(store)
	sessions := session.NewManager()

	adminID := cfg.Telegram.AdminID
	surface := bot.New(bot.Options{
		IsAdmin:       func(id int64) bool { return adminID != 0 && id == adminID },
		OperatorID:    adminID,
		BotUsername:   cfg.Bot.Username,
		SupportLink:   cfg.Bot.SupportLink,
		TopUpMin:      cfg.Bot.TopUpMin,
		TopUpMax:      cfg.Bot.TopUpMax,
		BroadcastPace: time.Duration(cfg.Bot.BroadcastPaceMS) * time.Millisecond,
		Store:         store,
		Ledger:        ledgerSvc,
		Sessions:      sessions,
	})

	return &App{
		cfg:      cfg,
		db:       db,
		store:    store,
		ledger:   ledgerSvc,
		sessions: sessions,
		surface:  surface,
	}, nil
}

// TelegramRunOptions builds the runtime wiring consumed by the core runner.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.surface.Register(reg)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		IsAdmin: a.surface.IsAdmin,
	})
	routes = append(routes, router.TextRoutes(a.sessions, reg, router.TextOptions{
		UnknownPhoto: a.surface.HandleIncomingPhoto,
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.surface.Attach(ctx, rt.Bot)
			return nil
		},
		OnStop: func(_ context.Context, _ coretelegram.Runtime) error {
			return a.db.Close()
		},
	}, nil
}
