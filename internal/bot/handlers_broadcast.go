package bot

import (
	"fmt"

	"github.com/m3rciful/refbot/core/telegram/helpers"
	"github.com/m3rciful/refbot/core/telegram/keyboard"
	"github.com/m3rciful/refbot/internal/broadcast"
	"github.com/m3rciful/refbot/internal/session"

	tele "gopkg.in/telebot.v4"
)

// cbBroadcastOpen starts the broadcast flow from the dashboard button.
func (b *Bot) cbBroadcastOpen(c tele.Context) error {
	if !b.IsAdmin(c.Sender().ID) {
		return nil
	}
	helpers.WithHandler(c, "broadcast.open")
	b.opts.Sessions.SetState(c.Sender().ID, session.StateBroadcastText)
	markup := keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "❌ Cancel", Unique: cbBroadcastBack},
	})
	return helpers.SendText(c, "Send the text or photo to broadcast.", &tele.SendOptions{ReplyMarkup: markup})
}

// cbBroadcastBack aborts the flow before a draft exists.
func (b *Bot) cbBroadcastBack(c tele.Context) error {
	if !b.IsAdmin(c.Sender().ID) {
		return nil
	}
	helpers.WithHandler(c, "broadcast.cancel")
	b.opts.Sessions.Reset(c.Sender().ID)
	return c.Edit("Broadcast cancelled.")
}

// handleBroadcastDraft consumes the admin's next text or photo and stages it
// for confirmation.
func (b *Bot) handleBroadcastDraft(c tele.Context) error {
	ctx := helpers.WithHandler(c, "broadcast.draft")
	if !b.IsAdmin(c.Sender().ID) {
		b.opts.Sessions.Reset(c.Sender().ID)
		return nil
	}

	draft := session.Draft{Kind: session.DraftText, Text: c.Text()}
	if msg := c.Message(); msg != nil && msg.Photo != nil {
		draft = session.Draft{
			Kind:     session.DraftPhoto,
			Text:     msg.Caption,
			MediaRef: msg.Photo.FileID,
		}
	}
	if draft.Kind == session.DraftText && draft.Text == "" {
		return helpers.SendText(c, "Send plain text or a photo.")
	}

	users, err := b.opts.Store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("broadcast draft: %w", err)
	}
	b.opts.Sessions.StageDraft(c.Sender().ID, draft)

	// Echo the staged message so the admin confirms exactly what goes out.
	if err := c.Send(draftPreview(draft)); err != nil {
		return fmt.Errorf("broadcast draft: %w", err)
	}

	markup := keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "✅ Send", Unique: cbBroadcastConfirm},
		{Text: "❌ Cancel", Unique: cbBroadcastCancel},
	})
	return helpers.SendText(c, renderBroadcastPreview(len(users), string(draft.Kind)),
		&tele.SendOptions{ReplyMarkup: markup})
}

// draftPreview rebuilds the staged message as something telebot can send back
// verbatim.
func draftPreview(d session.Draft) interface{} {
	if d.Kind == session.DraftPhoto {
		return &tele.Photo{
			File:    tele.File{FileID: d.MediaRef},
			Caption: d.Text,
		}
	}
	return d.Text
}

// handleBroadcastConfirmText nudges an admin who types instead of using the
// confirmation buttons.
func (b *Bot) handleBroadcastConfirmText(c tele.Context) error {
	helpers.WithHandler(c, "broadcast.confirm_text")
	if isMenuLabel(c.Text()) {
		b.opts.Sessions.Reset(c.Sender().ID)
		return b.sendProfile(c)
	}
	return helpers.SendText(c, "Use the ✅/❌ buttons to finish the broadcast.")
}

// cbBroadcastConfirm snapshots the audience and launches the run in the
// background; the admin chat stays responsive and gets a summary at the end.
func (b *Bot) cbBroadcastConfirm(c tele.Context) error {
	if !b.IsAdmin(c.Sender().ID) {
		return nil
	}
	ctx := helpers.WithHandler(c, "broadcast.confirm")
	adminID := c.Sender().ID

	// The router has already acknowledged the callback; a stale press finds
	// no draft and only rewrites the prompt.
	draft, ok := b.opts.Sessions.TakeDraft(adminID)
	if !ok {
		return c.Edit("Nothing staged.")
	}

	users, err := b.opts.Store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("broadcast confirm: %w", err)
	}
	recipients := make([]int64, 0, len(users))
	for _, u := range users {
		recipients = append(recipients, u.ID)
	}

	job := broadcast.Job{
		Payload: broadcast.Payload{
			Kind:     broadcast.KindText,
			Text:     draft.Text,
			MediaRef: draft.MediaRef,
		},
		Recipients: recipients,
	}
	if draft.Kind == session.DraftPhoto {
		job.Payload.Kind = broadcast.KindPhoto
	}

	runCtx := b.runCtx
	go func() {
		summary := b.caster.Run(runCtx, job)
		b.notify(runCtx, adminID,
			renderBroadcastSummary(summary.Attempted, summary.Succeeded, summary.Failed))
	}()

	return c.Edit(fmt.Sprintf("📣 Broadcast started for %d users.", len(recipients)))
}

// cbBroadcastCancel drops the staged draft.
func (b *Bot) cbBroadcastCancel(c tele.Context) error {
	if !b.IsAdmin(c.Sender().ID) {
		return nil
	}
	helpers.WithHandler(c, "broadcast.cancel_draft")
	b.opts.Sessions.Reset(c.Sender().ID)
	return c.Edit("Broadcast cancelled.")
}
