package bot

import (
	"context"

	tele "gopkg.in/telebot.v4"
)

// telegramMessenger adapts the live telebot client to the broadcast
// Messenger interface. Sends go out directly rather than through the async
// dispatcher: broadcast pacing is the rate control here.
type telegramMessenger struct {
	bot *Bot
}

func (m *telegramMessenger) SendText(_ context.Context, userID int64, text string) error {
	tb, err := m.bot.client()
	if err != nil {
		return err
	}
	_, err = tb.Send(&tele.User{ID: userID}, text)
	return err
}

func (m *telegramMessenger) SendPhoto(_ context.Context, userID int64, mediaRef, caption string) error {
	tb, err := m.bot.client()
	if err != nil {
		return err
	}
	photo := &tele.Photo{File: tele.File{FileID: mediaRef}, Caption: caption}
	_, err = tb.Send(&tele.User{ID: userID}, photo)
	return err
}
