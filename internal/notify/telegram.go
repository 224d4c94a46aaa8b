package notify

import (
	"context"
	"errors"
	"fmt"

	"appointly/internal/config"
	"appointly/internal/domain"
	"appointly/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// ErrNoChat is returned when a party has no chat to deliver to.
var ErrNoChat = errors.New("notify: chat id is not set")

// BotWrapper adapts the Bot API client to domain.TelegramSender.
type BotWrapper struct {
	*tgbotapi.BotAPI
}

func (w *BotWrapper) GetSelf() tgbotapi.User {
	return w.Self
}

// NewBot connects to the Bot API with the configured token.
func NewBot(cfg config.TelegramConfig) (*BotWrapper, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = cfg.Debug
	return &BotWrapper{BotAPI: bot}, nil
}

// TelegramNotifier delivers plain or Markdown text messages.
type TelegramNotifier struct {
	bot       domain.TelegramSender
	parseMode string
	logger    *zerolog.Logger
}

func NewTelegramNotifier(bot domain.TelegramSender, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, parseMode: models.ParseModeMarkdown, logger: logger}
}

// WithParseMode switches the message formatting; empty means plain text.
func (n *TelegramNotifier) WithParseMode(mode string) *TelegramNotifier {
	n.parseMode = mode
	return n
}

func (n *TelegramNotifier) Notify(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if chatID == 0 {
		return ErrNoChat
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = n.parseMode
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}

	n.logger.Debug().Int64("chat_id", chatID).Msg("notification sent")
	return nil
}

// LogNotifier writes notifications to the log. Used when no bot token is configured.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, chatID int64, text string) error {
	if chatID == 0 {
		return ErrNoChat
	}
	n.logger.Info().Int64("chat_id", chatID).Str("text", text).Msg("notification")
	return nil
}
