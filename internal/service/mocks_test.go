package service

import (
	"context"
	"time"

	"appointly/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Submit(ctx context.Context, b models.ConfirmedBooking) (int64, error) {
	args := m.Called(ctx, b)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) GetBooking(ctx context.Context, id int64) (*models.StoredBooking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoredBooking), args.Error(1)
}

func (m *mockStore) ListBookings(ctx context.Context, from, to time.Time) ([]models.StoredBooking, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StoredBooking), args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockReminders struct {
	mock.Mock
}

func (m *mockReminders) SendReminder(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockAttendeeStore struct {
	mock.Mock
}

func (m *mockAttendeeStore) GetAttendees(ctx context.Context, id int64) ([]models.Attendee, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Attendee), args.Error(1)
}

func (m *mockAttendeeStore) UpdateAttendeeStatus(ctx context.Context, id int64, a models.Attendee) error {
	return m.Called(ctx, id, a).Error(0)
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Employee), args.Error(1)
}

func (m *mockDirectory) ListClients(ctx context.Context) ([]models.Client, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Client), args.Error(1)
}

func (m *mockDirectory) ListServices(ctx context.Context) ([]models.Service, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Service), args.Error(1)
}

// recorder collects published events.
type recorder struct {
	events []string
	last   map[string]interface{}
}

func (r *recorder) PublishJSON(eventType string, payload interface{}) error {
	r.events = append(r.events, eventType)
	if r.last == nil {
		r.last = make(map[string]interface{})
	}
	r.last[eventType] = payload
	return nil
}
