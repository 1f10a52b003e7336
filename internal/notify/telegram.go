// Package notify pushes run summaries to Telegram. Delivery is best-effort:
// a failed notification never fails the run that produced it.
package notify

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxTelegramMessage = 4096

// Notifier sends plain run summaries to a single chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// New creates a notifier. The token is validated against the Telegram API.
func New(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Notifier{bot: bot, chatID: chatID}, nil
}

// Send pushes text to the configured chat, splitting it if it exceeds the
// Telegram message limit.
func (n *Notifier) Send(text string) {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(n.chatID, part)
		msg.ParseMode = "Markdown"
		if _, err := n.bot.Send(msg); err != nil {
			// Retry without markdown if it fails
			msg.ParseMode = ""
			if _, err := n.bot.Send(msg); err != nil {
				slog.Warn("telegram send failed", "error", err)
			}
		}
	}
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
