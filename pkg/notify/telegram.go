package notify

import (
	"context"
	"fmt"

	"coinforge/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type TelegramConfig struct {
	BotToken string
	Debug    bool
}

// Telegram sends notifications as bot messages. User ids double as Telegram
// chat ids on this platform.
type Telegram struct {
	bot *tgbotapi.BotAPI
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	bot.Debug = cfg.Debug

	return &Telegram{bot: bot}, nil
}

func (t *Telegram) Notify(ctx context.Context, n Notification) {
	text := n.Title
	if n.Message != "" {
		text = fmt.Sprintf("%s\n%s", n.Title, n.Message)
	}

	msg := tgbotapi.NewMessage(n.UserID, text)
	if _, err := t.bot.Send(msg); err != nil {
		logger.Logger().Info("failed to send telegram notification",
			zap.Int64("user_id", n.UserID), zap.Error(err))
	}
}
