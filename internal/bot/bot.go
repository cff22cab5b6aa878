// Package bot wires the Telegram surface: commands, buttons, conversation
// states and the broadcast flow.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/m3rciful/refbot/core/logger"
	tg "github.com/m3rciful/refbot/core/telegram"
	"github.com/m3rciful/refbot/core/telegram/commands"
	"github.com/m3rciful/refbot/internal/broadcast"
	"github.com/m3rciful/refbot/internal/ledger"
	"github.com/m3rciful/refbot/internal/session"
	"github.com/m3rciful/refbot/internal/storage"

	tele "gopkg.in/telebot.v4"
)

// Reply keyboard labels shown in the menu state.
const (
	btnProfile = "💼 Profile"
	btnTopUp   = "💵 Top up balance"
	btnBack    = "↪️ Back"
)

// Inline callback keys.
const (
	cbBroadcastOpen    = "admin_mail"
	cbBroadcastBack    = "admin_back"
	cbBroadcastConfirm = "bcast_confirm"
	cbBroadcastCancel  = "bcast_cancel"
)

// Options carries everything the bot surface depends on.
type Options struct {
	// IsAdmin decides whether an identity may use the admin surface.
	IsAdmin func(id int64) bool
	// OperatorID receives best-effort service notifications (new referred
	// registrations). Zero disables them.
	OperatorID int64
	// BotUsername builds invite deep-links, e.g. "refbot" for t.me/refbot.
	BotUsername string
	// SupportLink is shown to users for payment confirmation.
	SupportLink string

	TopUpMin int64
	TopUpMax int64

	BroadcastPace time.Duration

	Store    storage.Store
	Ledger   *ledger.Service
	Sessions *session.Manager
}

// Bot holds the handler set. The underlying telebot client arrives later,
// through Attach, once the runtime has built it.
type Bot struct {
	opts   Options
	caster *broadcast.Dispatcher

	tb     atomic.Pointer[tele.Bot]
	runCtx context.Context
}

func New(opts Options) *Bot {
	if opts.IsAdmin == nil {
		opts.IsAdmin = func(int64) bool { return false }
	}
	if opts.TopUpMin <= 0 {
		opts.TopUpMin = 10
	}
	if opts.TopUpMax <= 0 {
		opts.TopUpMax = 500
	}
	b := &Bot{opts: opts, runCtx: context.Background()}
	b.caster = broadcast.New(&telegramMessenger{bot: b}, opts.BroadcastPace)
	return b
}

// Attach binds the live telebot client and the process context. Called from
// the runtime's OnStart hook before any update is handled.
func (b *Bot) Attach(ctx context.Context, tb *tele.Bot) {
	if ctx != nil {
		b.runCtx = ctx
	}
	b.tb.Store(tb)
}

// IsAdmin exposes the capability check for router wiring.
func (b *Bot) IsAdmin(id int64) bool {
	return b.opts.IsAdmin(id)
}

// Register fills the registry with commands, callbacks, the text fallback
// and the conversation state handlers.
func (b *Bot) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     b.handleStart,
		Description: "Open your profile",
	})
	reg.RegisterCommand("/admin", commands.Command{
		Handler:     b.handleAdmin,
		Description: "Admin dashboard",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/help_admin", commands.Command{
		Handler:     b.handleAdminHelp,
		Description: "Admin command reference",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/top", commands.Command{
		Handler:     b.handleTop,
		Description: "Balance and referral leaderboards",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/info", commands.Command{
		Handler:     b.handleInfo,
		Description: "Show a user record",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/pay", commands.Command{
		Handler:     b.handlePay,
		Description: "Adjust balances",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/dump", commands.Command{
		Handler:     b.handleDump,
		Description: "List stored media",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/del", commands.Command{
		Handler:     b.handleDel,
		Description: "Delete a stored media record",
		AdminOnly:   true,
		Hidden:      true,
	})
	for name, label := range map[string]string{
		storage.SettingPaymentAccount: "payment account",
		storage.SettingVideoPrice:     "video price",
		storage.SettingPhotoPrice:     "photo price",
		storage.SettingInitialBalance: "starting balance",
		storage.SettingReferralBonus:  "referral bonus",
	} {
		reg.RegisterCommand("/"+name, commands.Command{
			Handler:     b.settingHandler(name, label),
			Description: "Set the " + label,
			AdminOnly:   true,
			Hidden:      true,
		})
	}

	if err := reg.RegisterCallback(cbBroadcastOpen, b.cbBroadcastOpen); err != nil {
		b.wireWarn(cbBroadcastOpen, err)
	}
	if err := reg.RegisterCallback(cbBroadcastBack, b.cbBroadcastBack); err != nil {
		b.wireWarn(cbBroadcastBack, err)
	}
	if err := reg.RegisterCallback(cbBroadcastConfirm, b.cbBroadcastConfirm); err != nil {
		b.wireWarn(cbBroadcastConfirm, err)
	}
	if err := reg.RegisterCallback(cbBroadcastCancel, b.cbBroadcastCancel); err != nil {
		b.wireWarn(cbBroadcastCancel, err)
	}

	reg.SetTextFallback(b.handleMenuText)

	b.opts.Sessions.Handle(session.StateTopUpAmount, b.handleTopUpAmount)
	b.opts.Sessions.Handle(session.StateBroadcastText, b.handleBroadcastDraft)
	b.opts.Sessions.Handle(session.StateBroadcastConfirm, b.handleBroadcastConfirmText)
}

func (b *Bot) wireWarn(key string, err error) {
	logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.skip",
		slog.String("name", key),
		slog.String("err", err.Error()),
	)
}

func (b *Bot) client() (*tele.Bot, error) {
	tb := b.tb.Load()
	if tb == nil {
		return nil, errors.New("bot: telegram client not attached")
	}
	return tb, nil
}

// notify sends a fire-and-forget message to a chat outside the current
// update. Failures (blocked bot, deleted chat) are logged and swallowed.
func (b *Bot) notify(ctx context.Context, userID int64, text string, opts ...any) {
	tb, err := b.client()
	if err == nil {
		_, err = tb.Send(&tele.User{ID: userID}, text, opts...)
	}
	if err != nil {
		logger.Warn(ctx, "tg", "notify.failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

func (b *Bot) inviteLink(userID int64) string {
	if b.opts.BotUsername == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s?start=%d", b.opts.BotUsername, userID)
}

// displayName derives a human-readable name for storage and rendering.
func displayName(u *tele.User) string {
	if u == nil {
		return "user"
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		name = u.Username
	}
	if name == "" {
		name = fmt.Sprintf("user %d", u.ID)
	}
	return name
}

func isMenuLabel(text string) bool {
	return text == btnProfile || text == btnBack
}
