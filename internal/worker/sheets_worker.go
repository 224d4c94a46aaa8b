package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"appointly/internal/domain"
	"appointly/internal/events"
	"appointly/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	sheetsQueueKey      = "sheets:queue"
	sheetsDeadLetterKey = "sheets:deadletter"
)

// SheetsWorker mirrors stored bookings to a spreadsheet. Tasks go through a
// Redis list when a client is configured and an in-memory channel otherwise.
type SheetsWorker struct {
	sheets       domain.SheetsWriter
	labels       Labeler
	redis        *redis.Client
	retryPolicy  RetryPolicy
	queue        chan models.SyncTask
	pollInterval time.Duration
	logger       *zerolog.Logger
	after        func(time.Duration, func())
}

func NewSheetsWorker(sheets domain.SheetsWriter, labels Labeler, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	return &SheetsWorker{
		sheets:       sheets,
		labels:       labels,
		redis:        redisClient,
		retryPolicy:  retry.withDefaults(),
		queue:        make(chan models.SyncTask, 128),
		pollInterval: 2 * time.Second,
		logger:       logger,
		after:        func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

func (w *SheetsWorker) EnqueueBooking(ctx context.Context, booking models.StoredBooking) error {
	if booking.ID == 0 {
		return errors.New("booking id is required")
	}
	return w.enqueue(ctx, models.SyncTask{
		BookingID: booking.ID,
		Booking:   booking,
		CreatedAt: time.Now(),
	})
}

func (w *SheetsWorker) enqueue(ctx context.Context, task models.SyncTask) error {
	if w.redis != nil {
		err := w.pushRedis(ctx, sheetsQueueKey, task)
		if err == nil {
			return nil
		}
		w.logger.Warn().Err(err).Int64("booking_id", task.BookingID).Msg("redis push failed, using memory queue")
	}

	select {
	case w.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// HandleBookingSubmitted returns an event handler that queues every submitted booking.
func (w *SheetsWorker) HandleBookingSubmitted(store BookingGetter) events.EventHandler {
	return func(event *events.Event) error {
		var payload events.BookingSubmittedPayload
		if err := event.Decode(&payload); err != nil {
			return fmt.Errorf("decode %s: %w", event.Type, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		booking, err := store.GetBooking(ctx, payload.BookingID)
		if err != nil {
			return err
		}
		return w.EnqueueBooking(ctx, *booking)
	}
}

// Run consumes tasks until ctx is done.
func (w *SheetsWorker) Run(ctx context.Context) {
	w.logger.Info().Msg("sheets worker started")
	defer w.logger.Info().Msg("sheets worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}
		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case t := <-w.queue:
			w.processTask(ctx, &t)
		case <-time.After(w.pollInterval):
		}
	}
}

func (w *SheetsWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SheetsWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, sheetsQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.logger.Warn().Err(err).Msg("redis BRPOP failed")
		}
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}

	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SheetsWorker) processTask(ctx context.Context, task *models.SyncTask) {
	labels := w.labels.Labels(ctx, task.Booking.ConfirmedBooking)
	err := w.sheets.AppendBooking(ctx, &task.Booking, labels)
	if err == nil {
		w.logger.Debug().Int64("booking_id", task.BookingID).Msg("booking mirrored")
		return
	}

	task.RetryCount++
	task.LastError = err.Error()
	if w.retryPolicy.Exhausted(task.RetryCount) {
		w.logger.Error().Err(err).Int64("booking_id", task.BookingID).Int("attempts", task.RetryCount).Msg("sheets sync failed")
		w.pushDeadLetter(ctx, *task)
		return
	}

	retry := *task
	delay := w.retryPolicy.NextDelay(retry.RetryCount)
	w.logger.Warn().Err(err).Int64("booking_id", task.BookingID).Dur("delay", delay).Msg("sheets sync failed, retrying")
	w.after(delay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := w.enqueue(ctx, retry); err != nil {
			w.pushDeadLetter(ctx, retry)
		}
	})
}

func (w *SheetsWorker) pushRedis(ctx context.Context, key string, task models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}

func (w *SheetsWorker) pushDeadLetter(ctx context.Context, task models.SyncTask) {
	if w.redis == nil {
		return
	}
	if err := w.pushRedis(ctx, sheetsDeadLetterKey, task); err != nil {
		w.logger.Error().Err(err).Int64("booking_id", task.BookingID).Msg("deadletter push failed")
	}
}
