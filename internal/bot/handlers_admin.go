package bot

import (
	"errors"
	"fmt"

	"github.com/m3rciful/refbot/core/telegram/helpers"
	"github.com/m3rciful/refbot/core/telegram/keyboard"
	"github.com/m3rciful/refbot/internal/ledger"
	"github.com/m3rciful/refbot/internal/storage"

	tele "gopkg.in/telebot.v4"
)

const leaderboardSize = 5

// handleAdmin shows the dashboard: user counts, media count, settings and
// the broadcast entry point.
func (b *Bot) handleAdmin(c tele.Context) error {
	ctx := helpers.WithHandler(c, "admin.dashboard")

	users, err := b.opts.Store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	week, err := b.opts.Store.ListUsersSince(ctx, 7)
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	day, err := b.opts.Store.ListUsersSince(ctx, 1)
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	files, err := b.opts.Store.ListFiles(ctx, "")
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	settings, err := b.opts.Store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}

	markup := keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "📣 Broadcast", Unique: cbBroadcastOpen},
	})
	return helpers.SendHTML(c, renderDashboard(len(users), len(week), len(day), len(files), settings), markup)
}

func (b *Bot) handleAdminHelp(c tele.Context) error {
	helpers.WithHandler(c, "admin.help")
	return helpers.SendHTML(c, renderAdminHelp())
}

// settingHandler builds the mutator for one /qiwi-family command.
func (b *Bot) settingHandler(name, label string) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := helpers.WithHandler(c, "admin.set."+name)
		value := ""
		if msg := c.Message(); msg != nil {
			value = msg.Payload
		}
		if err := validateSettingValue(name, value); err != nil {
			// Deliberately generic: no hint about which check failed.
			return helpers.SendText(c, fmt.Sprintf("Invalid command format. Usage: /%s <value>", name))
		}
		if err := b.opts.Store.UpdateSetting(ctx, name, value); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
		return helpers.SendText(c, fmt.Sprintf("✅ The %s is now %s.", label, value))
	}
}

func (b *Bot) handleTop(c tele.Context) error {
	ctx := helpers.WithHandler(c, "admin.top")

	byBalance, err := b.opts.Ledger.TopByBalance(ctx, leaderboardSize)
	if err != nil {
		return fmt.Errorf("top: %w", err)
	}
	byReferrals, err := b.opts.Ledger.TopByReferrals(ctx, leaderboardSize)
	if err != nil {
		return fmt.Errorf("top: %w", err)
	}

	names := make(map[int64]string, len(byReferrals))
	for _, r := range byReferrals {
		if u, err := b.opts.Store.GetUser(ctx, r.UserID); err == nil {
			names[r.UserID] = u.DisplayName
		}
	}
	return helpers.SendHTML(c, renderLeaderboards(byBalance, byReferrals, names))
}

func (b *Bot) handleInfo(c tele.Context) error {
	ctx := helpers.WithHandler(c, "admin.info")

	id, err := parseRecordID(c.Message().Payload)
	if err != nil {
		return helpers.SendText(c, "Usage: /info <id>")
	}
	user, err := b.opts.Store.GetUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return helpers.SendText(c, fmt.Sprintf("User %d is not registered.", id))
	}
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}
	referrals, err := b.opts.Store.CountReferrals(ctx, id)
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}
	referrerName := ""
	if user.ReferrerID != 0 {
		if ref, err := b.opts.Store.GetUser(ctx, user.ReferrerID); err == nil {
			referrerName = ref.DisplayName
		}
	}
	return helpers.SendHTML(c, renderUserInfo(user, referrals, referrerName))
}

// handlePay adjusts one balance or sweeps every user. Adjusted users get a
// notification; notification failures never fail the adjustment.
func (b *Bot) handlePay(c tele.Context) error {
	ctx := helpers.WithHandler(c, "admin.pay")

	target, err := parsePayArgs(c.Message().Payload)
	if err != nil {
		return helpers.SendText(c, "Invalid command format. Usage: /pay <id|all> <amount>")
	}

	if !target.All {
		balance, err := b.opts.Ledger.AdjustBalance(ctx, target.UserID, target.Amount)
		if errors.Is(err, ledger.ErrUserNotFound) {
			return helpers.SendText(c, fmt.Sprintf("User %d is not registered.", target.UserID))
		}
		if err != nil {
			return fmt.Errorf("pay: %w", err)
		}
		b.notify(ctx, target.UserID,
			fmt.Sprintf("💰 Your balance was changed by %+d ₽. New balance: %d ₽.", target.Amount, balance))
		return helpers.SendText(c,
			fmt.Sprintf("✅ User %d: %+d ₽, balance is now %d ₽.", target.UserID, target.Amount, balance))
	}

	res, err := b.opts.Ledger.BulkAdjustBalance(ctx, target.Amount, func(u storage.User, balance int64) {
		b.notify(ctx, u.ID,
			fmt.Sprintf("💰 Your balance was changed by %+d ₽. New balance: %d ₽.", target.Amount, balance))
	})
	if err != nil {
		return fmt.Errorf("pay all: %w", err)
	}
	reply := fmt.Sprintf("✅ Adjusted %d of %d users by %+d ₽.", res.Adjusted, res.Attempted, target.Amount)
	if res.Err != nil {
		reply += "\nSome adjustments failed; see the logs."
	}
	return helpers.SendText(c, reply)
}

// handleDump sends stored media records to the admin chat, optionally
// filtered by kind: /dump [photo|video].
func (b *Bot) handleDump(c tele.Context) error {
	ctx := helpers.WithHandler(c, "admin.dump")

	var kind storage.FileKind
	switch arg := c.Message().Payload; arg {
	case "":
	case string(storage.FileKindPhoto):
		kind = storage.FileKindPhoto
	case string(storage.FileKindVideo):
		kind = storage.FileKindVideo
	default:
		return helpers.SendText(c, "Usage: /dump [photo|video]")
	}

	files, err := b.opts.Store.ListFiles(ctx, kind)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	if len(files) == 0 {
		return helpers.SendText(c, "No media stored.")
	}
	for _, f := range files {
		caption := fmt.Sprintf("#%d (%s) from %d", f.ID, f.Kind, f.UploaderID)
		var media any
		if f.Kind == storage.FileKindVideo {
			media = &tele.Video{File: tele.File{FileID: f.MediaRef}, Caption: caption}
		} else {
			media = &tele.Photo{File: tele.File{FileID: f.MediaRef}, Caption: caption}
		}
		if err := c.Send(media); err != nil {
			return fmt.Errorf("dump #%d: %w", f.ID, err)
		}
	}
	return nil
}

func (b *Bot) handleDel(c tele.Context) error {
	ctx := helpers.WithHandler(c, "admin.del")

	id, err := parseRecordID(c.Message().Payload)
	if err != nil {
		return helpers.SendText(c, "Usage: /del <id>")
	}
	err = b.opts.Store.DeleteFile(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return helpers.SendText(c, fmt.Sprintf("Record %d does not exist.", id))
	}
	if err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return helpers.SendText(c, fmt.Sprintf("🗑 Record %d deleted.", id))
}

// HandleIncomingPhoto stores media sent by an admin outside any flow so it
// can later be referenced by /dump and broadcasts. Photos from everyone
// else are ignored.
func (b *Bot) HandleIncomingPhoto(c tele.Context) error {
	if !b.IsAdmin(c.Sender().ID) {
		return nil
	}
	ctx := helpers.WithHandler(c, "admin.photo")
	photo := c.Message().Photo
	if photo == nil {
		return nil
	}
	id, err := b.opts.Store.AddFile(ctx, photo.FileID, storage.FileKindPhoto, c.Sender().ID)
	if err != nil {
		return fmt.Errorf("store photo: %w", err)
	}
	return helpers.SendText(c, fmt.Sprintf("💾 Saved photo as record %d.", id))
}
