package domain

import (
	"context"
	"time"

	"appointly/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Directory is the read side of the employee, client and service lists.
type Directory interface {
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	ListClients(ctx context.Context) ([]models.Client, error)
	ListServices(ctx context.Context) ([]models.Service, error)
}

// BookingStore is the scheduling store: the only write boundary of the core.
type BookingStore interface {
	Submit(ctx context.Context, booking models.ConfirmedBooking) (int64, error)
	GetBooking(ctx context.Context, id int64) (*models.StoredBooking, error)
	ListBookings(ctx context.Context, from, to time.Time) ([]models.StoredBooking, error)
	Ping(ctx context.Context) error
}

// AttendeeStore keeps the invitation state of meeting attendees.
type AttendeeStore interface {
	GetAttendees(ctx context.Context, bookingID int64) ([]models.Attendee, error)
	// UpdateAttendeeStatus must only change a row that is still pending.
	UpdateAttendeeStatus(ctx context.Context, bookingID int64, attendee models.Attendee) error
}

// ReminderSender dispatches a reminder for a stored booking.
type ReminderSender interface {
	SendReminder(ctx context.Context, bookingID int64) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// DraftRepository stores one in-progress booking request per actor.
type DraftRepository interface {
	GetDraft(ctx context.Context, actorID string) (*models.Draft, error)
	SetDraft(ctx context.Context, draft *models.Draft) error
	ClearDraft(ctx context.Context, actorID string) error
	CheckRateLimit(ctx context.Context, actorID string, limit int, window time.Duration) (bool, error)
}

// Notifier delivers a plain text message to a chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetSelf() tgbotapi.User
}

// SheetsWriter mirrors stored bookings into a spreadsheet.
type SheetsWriter interface {
	AppendBooking(ctx context.Context, booking *models.StoredBooking, labels BookingLabels) error
}

// SyncWorker queues spreadsheet mirror jobs.
type SyncWorker interface {
	EnqueueBooking(ctx context.Context, booking models.StoredBooking) error
}

// BookingLabels carries display names resolved from the directory.
type BookingLabels struct {
	Employees []string
	Clients   []string
	Service   string
}

type BookingService interface {
	CreateBooking(ctx context.Context, actor models.Actor, req models.BookingRequest) (*models.StoredBooking, error)
	Preview(ctx context.Context, actor models.Actor, req models.BookingRequest) (models.ConfirmedBooking, error)
	GetBooking(ctx context.Context, id int64) (*models.StoredBooking, error)
	ListBookings(ctx context.Context, from, to time.Time) ([]models.StoredBooking, error)
}

type AttendanceService interface {
	Respond(ctx context.Context, actor models.Actor, bookingID int64, decision models.AttendeeStatus) (models.Attendee, error)
	Attendees(ctx context.Context, bookingID int64) ([]models.Attendee, error)
}

type DirectoryService interface {
	Directory
	Labels(ctx context.Context, booking models.ConfirmedBooking) BookingLabels
	Refresh(ctx context.Context) error
}

type DraftService interface {
	Start(ctx context.Context, actor models.Actor, variant models.Variant) (*models.Draft, error)
	Get(ctx context.Context, actor models.Actor) (*models.Draft, error)
	Update(ctx context.Context, actor models.Actor, patch models.DraftPatch) (*models.Draft, error)
	SetUntil(ctx context.Context, actor models.Actor, until time.Time) (*models.Draft, error)
	SetAfterCount(ctx context.Context, actor models.Actor, n int) (*models.Draft, error)
	Discard(ctx context.Context, actor models.Actor) error
	Submit(ctx context.Context, actor models.Actor) (*models.StoredBooking, error)
}
