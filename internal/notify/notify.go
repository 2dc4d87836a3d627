// Package notify pushes best-effort trade event notifications. Delivery
// failures are logged and swallowed; a notifier never fails a tick.
package notify

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Notifier delivers a human-readable event message.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Log writes events to the structured log only.
type Log struct {
	log zerolog.Logger
}

// NewLog builds the log-only notifier.
func NewLog(log zerolog.Logger) *Log { return &Log{log: log} }

// Notify logs the event.
func (l *Log) Notify(ctx context.Context, text string) {
	l.log.Info().Str("event", text).Msg("notify")
}

// Telegram sends events to a chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    zerolog.Logger
}

// NewTelegram authenticates the bot token and returns a notifier bound to the
// chat.
func NewTelegram(token string, chatID int64, log zerolog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: bot, chatID: chatID, log: log}, nil
}

// Notify sends the message, logging delivery failures.
func (t *Telegram) Notify(ctx context.Context, text string) {
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		t.log.Warn().Err(err).Msg("telegram delivery failed")
	}
}
