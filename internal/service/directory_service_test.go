package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"appointly/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryService_CachesUntilTTL(t *testing.T) {
	src := new(mockDirectory)
	logger := zerolog.New(io.Discard)
	svc := NewDirectoryService(src, time.Minute, &logger)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	src.On("ListEmployees", ctx).Return([]models.Employee{{ID: "E1", Name: "Anna"}}, nil).Twice()
	src.On("ListClients", ctx).Return([]models.Client{{ID: "C1", Name: "Client One"}}, nil).Twice()
	src.On("ListServices", ctx).Return([]models.Service{{ID: "S1", Name: "Consultation"}}, nil).Twice()

	for i := 0; i < 3; i++ {
		employees, err := svc.ListEmployees(ctx)
		require.NoError(t, err)
		assert.Len(t, employees, 1)
	}
	src.AssertNumberOfCalls(t, "ListEmployees", 1)

	now = now.Add(2 * time.Minute)
	_, err := svc.ListServices(ctx)
	require.NoError(t, err)
	src.AssertNumberOfCalls(t, "ListEmployees", 2)
}

func TestDirectoryService_ServesStaleOnError(t *testing.T) {
	src := new(mockDirectory)
	logger := zerolog.New(io.Discard)
	svc := NewDirectoryService(src, time.Minute, &logger)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	src.On("ListEmployees", ctx).Return([]models.Employee{{ID: "E1", Name: "Anna"}}, nil).Once()
	src.On("ListClients", ctx).Return([]models.Client{}, nil).Once()
	src.On("ListServices", ctx).Return([]models.Service{}, nil).Once()
	require.NoError(t, svc.Refresh(ctx))

	now = now.Add(time.Hour)
	src.On("ListEmployees", ctx).Return(nil, errors.New("db locked")).Once()

	employees, err := svc.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Anna", employees[0].Name)
}

func TestDirectoryService_FirstLoadError(t *testing.T) {
	src := new(mockDirectory)
	logger := zerolog.New(io.Discard)
	svc := NewDirectoryService(src, time.Minute, &logger)
	ctx := context.Background()

	src.On("ListEmployees", ctx).Return(nil, errors.New("db locked")).Once()
	_, err := svc.ListClients(ctx)
	assert.Error(t, err)
}

func TestDirectoryService_Labels(t *testing.T) {
	src := new(mockDirectory)
	logger := zerolog.New(io.Discard)
	svc := NewDirectoryService(src, time.Minute, &logger)
	ctx := context.Background()

	src.On("ListEmployees", ctx).Return([]models.Employee{{ID: "E1", Name: "Anna"}, {ID: "E2", Name: "Boris"}}, nil).Once()
	src.On("ListClients", ctx).Return([]models.Client{{ID: "C1", Name: "Client One"}}, nil).Once()
	src.On("ListServices", ctx).Return([]models.Service{{ID: "S1", Name: "Consultation"}}, nil).Once()

	labels := svc.Labels(ctx, models.ConfirmedBooking{
		EmployeeID:  "E1",
		EmployeeIDs: []string{"E1", "E2", "E404"},
		ClientID:    "C1",
		ServiceID:   "S1",
	})
	assert.Equal(t, []string{"Anna", "Boris", "E404"}, labels.Employees)
	assert.Equal(t, []string{"Client One"}, labels.Clients)
	assert.Equal(t, "Consultation", labels.Service)
}
