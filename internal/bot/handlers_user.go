package bot

import (
	"errors"
	"fmt"

	"github.com/m3rciful/refbot/core/telegram/helpers"
	"github.com/m3rciful/refbot/core/telegram/keyboard"
	"github.com/m3rciful/refbot/internal/ledger"
	"github.com/m3rciful/refbot/internal/order"
	"github.com/m3rciful/refbot/internal/session"

	tele "gopkg.in/telebot.v4"
)

func ledgerRegisterParams(u *tele.User, referrerID int64) ledger.RegisterParams {
	return ledger.RegisterParams{
		ID:          u.ID,
		DisplayName: displayName(u),
		ReferrerID:  referrerID,
	}
}

// handleStart registers the sender if needed, credits the referrer and shows
// the profile. Works from any conversation state.
func (b *Bot) handleStart(c tele.Context) error {
	ctx := helpers.WithHandler(c, "start")
	sender := c.Sender()

	var referrerID int64
	if msg := c.Message(); msg != nil {
		referrerID = parseStartPayload(msg.Payload)
	}

	res, err := b.opts.Ledger.Register(ctx, ledgerRegisterParams(sender, referrerID))
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	b.opts.Sessions.Reset(sender.ID)

	if res.Created {
		if res.ReferrerID != 0 {
			b.notify(ctx, res.ReferrerID,
				fmt.Sprintf("🎉 A new user joined with your link. +%d ₽ to your balance!", res.Bonus))
		}
		if op := b.opts.OperatorID; op != 0 && op != sender.ID {
			note := fmt.Sprintf("👥 New user %d registered.", sender.ID)
			if res.ReferrerID != 0 {
				note = fmt.Sprintf("👥 New user %d registered via referral from %d.", sender.ID, res.ReferrerID)
			}
			b.notify(ctx, op, note)
		}
	}
	return b.sendProfile(c)
}

// handleMenuText routes reply-keyboard presses for users resting in the menu
// state. Unknown text is ignored.
func (b *Bot) handleMenuText(c tele.Context) error {
	switch c.Text() {
	case btnProfile, btnBack:
		return b.handleStart(c)
	case btnTopUp:
		return b.startTopUp(c)
	}
	return nil
}

func (b *Bot) startTopUp(c tele.Context) error {
	helpers.WithHandler(c, "topup.start")
	b.opts.Sessions.SetState(c.Sender().ID, session.StateTopUpAmount)
	return helpers.SendText(c, renderTopUpPrompt(b.opts.TopUpMin, b.opts.TopUpMax),
		&tele.SendOptions{ReplyMarkup: replyBack})
}

// handleTopUpAmount consumes text while the sender awaits a top-up amount.
// Invalid input re-prompts without leaving the state.
func (b *Bot) handleTopUpAmount(c tele.Context) error {
	ctx := helpers.WithHandler(c, "topup.amount")
	text := c.Text()
	if isMenuLabel(text) {
		b.opts.Sessions.Reset(c.Sender().ID)
		return b.sendProfile(c)
	}

	amount, err := parseTopUpAmount(text, b.opts.TopUpMin, b.opts.TopUpMax)
	switch {
	case errors.Is(err, errAmountInvalid):
		return helpers.SendText(c, "Send a whole number, e.g. 100.")
	case errors.Is(err, errAmountRange):
		return helpers.SendText(c,
			fmt.Sprintf("The amount must be between %d and %d ₽.", b.opts.TopUpMin, b.opts.TopUpMax))
	case err != nil:
		return fmt.Errorf("topup: %w", err)
	}

	settings, err := b.opts.Store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("topup: %w", err)
	}

	b.opts.Sessions.Reset(c.Sender().ID)

	ref := order.Reference()
	payURL := order.PaymentURL(settings.PaymentAccount, amount, ref)
	markup := keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: fmt.Sprintf("💳 Pay %d ₽", amount), URL: payURL},
	})
	if err := helpers.SendHTML(c, renderOrder(ref, amount, b.opts.SupportLink), markup); err != nil {
		return err
	}
	return helpers.SendText(c, "You are back in the menu.", &tele.SendOptions{ReplyMarkup: replyMenu})
}

// sendProfile renders the sender's profile with the menu keyboard.
func (b *Bot) sendProfile(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	senderID := c.Sender().ID

	user, err := b.opts.Store.GetUser(ctx, senderID)
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	referrals, err := b.opts.Store.CountReferrals(ctx, senderID)
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	settings, err := b.opts.Store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}

	text := renderProfile(user, referrals, settings, b.inviteLink(senderID), b.opts.SupportLink)
	return helpers.SendHTML(c, text, replyMenu)
}
