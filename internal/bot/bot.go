package bot

import (
	"context"
	"strconv"
	"time"

	"appointly/internal/config"
	"appointly/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Telegram is the part of the Bot API the attendee bot needs.
type Telegram interface {
	domain.TelegramSender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot lets employees and clients answer meeting invitations from Telegram.
type Bot struct {
	tg         Telegram
	cfg        config.TelegramConfig
	directory  domain.DirectoryService
	bookings   domain.BookingService
	attendance domain.AttendanceService
	limiter    domain.DraftRepository
	metrics    *Metrics
	logger     *zerolog.Logger
	now        func() time.Time
}

func NewBot(
	tg Telegram,
	cfg config.TelegramConfig,
	directory domain.DirectoryService,
	bookings domain.BookingService,
	attendance domain.AttendanceService,
	limiter domain.DraftRepository,
	metrics *Metrics,
	logger *zerolog.Logger,
) *Bot {
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	return &Bot{
		tg:         tg,
		cfg:        cfg,
		directory:  directory,
		bookings:   bookings,
		attendance: attendance,
		limiter:    limiter,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

const updateTimeout = 30 * time.Second

// Start reads updates until ctx is done or the channel is closed.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tg.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

// Stop stops receiving Telegram updates (best-effort).
func (b *Bot) Stop() {
	if b == nil || b.tg == nil {
		return
	}
	b.tg.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	kind := updateKind(update)
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
			b.metrics.UpdatesTotal.WithLabelValues(kind).Inc()
		}
	}()

	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	l := b.logger.With().Str("request_id", uuid.New().String()).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var chatID, userID int64
		switch {
		case update.Message != nil && update.Message.From != nil:
			chatID, userID = update.Message.Chat.ID, update.Message.From.ID
		case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.From != nil:
			chatID, userID = update.CallbackQuery.Message.Chat.ID, update.CallbackQuery.From.ID
		default:
			return
		}

		if !b.allow(updateCtx, userID) {
			if update.CallbackQuery != nil {
				b.answerCallback(update.CallbackQuery.ID, msgRateLimited)
				return
			}
			b.sendMessage(chatID, msgRateLimited)
			return
		}

		if update.CallbackQuery != nil {
			b.handleCallbackQuery(updateCtx, update.CallbackQuery)
			return
		}
		b.handleMessage(updateCtx, update.Message)
	})
}

// allow применяет лимит сообщений на пользователя. Ошибка хранилища не блокирует.
func (b *Bot) allow(ctx context.Context, userID int64) bool {
	if b.limiter == nil || b.cfg.RateLimitMessages <= 0 {
		return true
	}
	ok, err := b.limiter.CheckRateLimit(ctx, "tg:"+strconv.FormatInt(userID, 10), b.cfg.RateLimitMessages, b.cfg.RateLimitWindow)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Rate limit check failed")
		return true
	}
	if !ok {
		b.logger.Warn().Int64("user_id", userID).Msg("Rate limit exceeded")
	}
	return ok
}

func updateKind(update tgbotapi.Update) string {
	switch {
	case update.CallbackQuery != nil:
		return "callback"
	case update.Message != nil && update.Message.IsCommand():
		return "command"
	case update.Message != nil:
		return "message"
	default:
		return "other"
	}
}
