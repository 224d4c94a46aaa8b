package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"appointly/internal/domain"
	"appointly/internal/events"
	"appointly/internal/metrics"
	"appointly/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrQueueFull = errors.New("worker: queue is full")
	errNoChat    = errors.New("client has no chat")
	errNoClient  = errors.New("booking has no client")
)

// BookingGetter loads a stored booking by id.
type BookingGetter interface {
	GetBooking(ctx context.Context, id int64) (*models.StoredBooking, error)
}

// Labeler resolves display names for a booking.
type Labeler interface {
	Labels(ctx context.Context, booking models.ConfirmedBooking) domain.BookingLabels
}

// ReminderDirectory is what the reminder worker needs from the directory.
type ReminderDirectory interface {
	Labeler
	ListClients(ctx context.Context) ([]models.Client, error)
}

type reminderJob struct {
	BookingID int64
	Attempt   int
}

// ReminderWorker is the reference ReminderSender: SendReminder only queues the
// booking id, delivery and retries happen on the Run goroutine.
type ReminderWorker struct {
	store     BookingGetter
	directory ReminderDirectory
	notifier  domain.Notifier
	events    domain.EventPublisher
	retry     RetryPolicy
	queue     chan reminderJob
	logger    *zerolog.Logger
	after     func(time.Duration, func())
}

func NewReminderWorker(
	store BookingGetter,
	directory ReminderDirectory,
	notifier domain.Notifier,
	publisher domain.EventPublisher,
	retry RetryPolicy,
	queueSize int,
	logger *zerolog.Logger,
) *ReminderWorker {
	if queueSize <= 0 {
		queueSize = models.WorkerQueueSize
	}
	return &ReminderWorker{
		store:     store,
		directory: directory,
		notifier:  notifier,
		events:    publisher,
		retry:     retry.withDefaults(),
		queue:     make(chan reminderJob, queueSize),
		logger:    logger,
		after:     func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

func (w *ReminderWorker) SendReminder(_ context.Context, bookingID int64) error {
	return w.push(reminderJob{BookingID: bookingID})
}

func (w *ReminderWorker) push(job reminderJob) error {
	select {
	case w.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run processes queued reminders until ctx is done.
func (w *ReminderWorker) Run(ctx context.Context) {
	w.logger.Info().Msg("reminder worker started")
	defer w.logger.Info().Msg("reminder worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-w.queue:
			w.process(ctx, job)
		}
	}
}

func (w *ReminderWorker) process(ctx context.Context, job reminderJob) {
	err := w.deliver(ctx, job.BookingID)
	switch {
	case err == nil:
		metrics.IncReminder("sent")
		return
	case errors.Is(err, errNoChat), errors.Is(err, errNoClient):
		metrics.IncReminder("skipped")
		w.logger.Debug().Int64("booking_id", job.BookingID).Err(err).Msg("reminder skipped")
		return
	}

	job.Attempt++
	if w.retry.Exhausted(job.Attempt) || ctx.Err() != nil {
		w.fail(job, err)
		return
	}

	delay := w.retry.NextDelay(job.Attempt)
	metrics.IncReminder("retried")
	w.logger.Warn().Err(err).Int64("booking_id", job.BookingID).Int("attempt", job.Attempt).Dur("delay", delay).Msg("reminder failed, retrying")

	w.after(delay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := w.push(job); err != nil {
			w.fail(job, err)
		}
	})
}

func (w *ReminderWorker) fail(job reminderJob, cause error) {
	metrics.IncReminder("failed")
	w.logger.Error().Err(cause).Int64("booking_id", job.BookingID).Int("attempts", job.Attempt).Msg("reminder dropped")
	if w.events == nil {
		return
	}
	if err := w.events.PublishJSON(events.EventReminderFailed, events.ReminderFailedPayload{
		BookingID: job.BookingID,
		Error:     cause.Error(),
		Attempts:  job.Attempt,
	}); err != nil {
		w.logger.Warn().Err(err).Msg("publish reminder_failed")
	}
}

func (w *ReminderWorker) deliver(ctx context.Context, bookingID int64) error {
	booking, err := w.store.GetBooking(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if booking.ClientID == "" {
		return errNoClient
	}

	clients, err := w.directory.ListClients(ctx)
	if err != nil {
		return fmt.Errorf("load clients: %w", err)
	}
	var chatID int64
	for _, c := range clients {
		if c.ID == booking.ClientID {
			chatID = c.TelegramChatID
			break
		}
	}
	if chatID == 0 {
		return errNoChat
	}

	labels := w.directory.Labels(ctx, booking.ConfirmedBooking)
	return w.notifier.Notify(ctx, chatID, ReminderText(booking, labels))
}

// ReminderText renders the client-facing reminder.
func ReminderText(b *models.StoredBooking, labels domain.BookingLabels) string {
	var sb strings.Builder
	sb.WriteString("🔔 *Напоминание о записи*\n\n")

	when := b.Timestamp
	if t, err := time.Parse(models.TimestampLayout, b.Timestamp); err == nil {
		when = t.Format("02.01.2006 15:04")
	}
	fmt.Fprintf(&sb, "📅 %s\n", when)
	if labels.Service != "" {
		fmt.Fprintf(&sb, "💼 %s\n", labels.Service)
	}
	if len(labels.Employees) > 0 {
		fmt.Fprintf(&sb, "👤 %s\n", strings.Join(labels.Employees, ", "))
	}
	if b.DurationMinutes > 0 {
		fmt.Fprintf(&sb, "⏱ %d мин\n", b.DurationMinutes)
	}
	if b.Recurrence != nil {
		fmt.Fprintf(&sb, "🔁 %s\n", b.Recurrence.Frequency)
	}
	return sb.String()
}
