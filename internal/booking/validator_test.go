package booking

import (
	"errors"
	"testing"
	"time"

	"appointly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var june3 = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func validRequest(variant models.Variant) models.BookingRequest {
	req := models.BookingRequest{
		Variant:         variant,
		EmployeeIDs:     []string{"E1"},
		ClientIDs:       []string{"C1"},
		ServiceID:       "S1",
		StartDate:       june3,
		StartHour:       models.IntPtr(9),
		StartMinute:     models.IntPtr(0),
		DurationMinutes: 60,
	}
	if variant == models.VariantSeries {
		req.Recurrence = models.NewRecurrence(models.FrequencyWeekly).SetAfterCount(4)
	}
	return req
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr), "expected *ValidationError, got %T", err)
	return vErr.Field
}

func TestPolicyFor(t *testing.T) {
	tests := []struct {
		variant models.Variant
		want    VariantPolicy
	}{
		{models.VariantOneTime, VariantPolicy{NeedsClient: true, NeedsService: true, NeedsEmployee: true}},
		{models.VariantSeries, VariantPolicy{NeedsClient: true, NeedsService: true, NeedsEmployee: true}},
		{models.VariantMeeting, VariantPolicy{NeedsEmployee: true, ClientMultiple: true, EmployeeMultiple: true}},
		{models.VariantTask, VariantPolicy{NeedsEmployee: true}},
	}
	for _, tt := range tests {
		t.Run(string(tt.variant), func(t *testing.T) {
			assert.Equal(t, tt.want, PolicyFor(tt.variant))
		})
	}

	assert.Len(t, Policies(), len(models.Variants))
	assert.Equal(t, []Relation{RelationEmployee}, PolicyFor(models.VariantTask).Required())
}

func TestValidate_TimeWindow(t *testing.T) {
	v := NewValidator(DefaultRules())

	for hour, ok := range map[int]bool{5: false, 6: true, 21: true, 22: false} {
		req := validRequest(models.VariantOneTime)
		req.StartHour = models.IntPtr(hour)
		_, err := v.Validate(req)
		if ok {
			assert.NoError(t, err, "hour %d", hour)
		} else {
			assert.ErrorIs(t, err, ErrOutOfBusinessWindow, "hour %d", hour)
		}
	}

	t.Run("LateStartAllowed", func(t *testing.T) {
		req := validRequest(models.VariantOneTime)
		req.StartHour = models.IntPtr(21)
		req.StartMinute = models.IntPtr(45)
		req.DurationMinutes = 120
		_, err := v.Validate(req)
		assert.NoError(t, err)
	})
}

func TestValidate_Precedence(t *testing.T) {
	v := NewValidator(DefaultRules())

	t.Run("TimeFieldsFirst", func(t *testing.T) {
		req := models.BookingRequest{Variant: models.VariantOneTime, StartHour: models.IntPtr(2)}
		_, err := v.Validate(req)
		assert.ErrorIs(t, err, ErrMissingTimeFields)
		assert.Equal(t, "start_date", fieldOf(t, err))
	})

	t.Run("MissingHour", func(t *testing.T) {
		req := validRequest(models.VariantOneTime)
		req.StartHour = nil
		_, err := v.Validate(req)
		assert.ErrorIs(t, err, ErrMissingTimeFields)
		assert.Equal(t, "start_hour", fieldOf(t, err))
	})

	t.Run("OffGridMinute", func(t *testing.T) {
		req := validRequest(models.VariantOneTime)
		req.StartMinute = models.IntPtr(10)
		_, err := v.Validate(req)
		assert.ErrorIs(t, err, ErrMissingTimeFields)
		assert.Equal(t, "start_minute", fieldOf(t, err))
	})

	t.Run("WindowBeforeDuration", func(t *testing.T) {
		req := validRequest(models.VariantOneTime)
		req.StartHour = models.IntPtr(23)
		req.DurationMinutes = 0
		_, err := v.Validate(req)
		assert.ErrorIs(t, err, ErrOutOfBusinessWindow)
	})

	t.Run("DurationBeforeRelations", func(t *testing.T) {
		req := validRequest(models.VariantOneTime)
		req.DurationMinutes = -15
		req.ClientIDs = nil
		_, err := v.Validate(req)
		assert.ErrorIs(t, err, ErrMissingDuration)
	})

	t.Run("RelationsBeforeRecurrence", func(t *testing.T) {
		req := validRequest(models.VariantSeries)
		req.ServiceID = " "
		req.Recurrence = nil
		_, err := v.Validate(req)
		assert.ErrorIs(t, err, ErrMissingRequiredRelation)
		assert.Equal(t, "service", fieldOf(t, err))
	})

	t.Run("UnknownVariant", func(t *testing.T) {
		req := validRequest("holiday")
		_, err := v.Validate(req)
		assert.ErrorIs(t, err, ErrUnknownVariant)
	})
}

func TestValidate_Relations(t *testing.T) {
	v := NewValidator(DefaultRules())

	t.Run("TaskNeedsOnlyEmployee", func(t *testing.T) {
		req := validRequest(models.VariantTask)
		req.ClientIDs = nil
		req.ServiceID = ""
		_, err := v.Validate(req)
		assert.NoError(t, err)

		req.EmployeeIDs = []string{"", "  "}
		_, err = v.Validate(req)
		assert.ErrorIs(t, err, ErrMissingRequiredRelation)
		assert.Equal(t, "employee", fieldOf(t, err))
	})

	t.Run("OneTimeNeedsClient", func(t *testing.T) {
		req := validRequest(models.VariantOneTime)
		req.ClientIDs = []string{}
		_, err := v.Validate(req)
		assert.ErrorIs(t, err, ErrMissingRequiredRelation)
		assert.Equal(t, "client", fieldOf(t, err))
	})

	t.Run("MeetingWithoutClients", func(t *testing.T) {
		req := validRequest(models.VariantMeeting)
		req.ClientIDs = nil
		req.ServiceID = ""
		req.EmployeeIDs = []string{"E1", "E2", "E1"}
		validated, err := v.Validate(req)
		require.NoError(t, err)
		assert.Equal(t, []string{"E1", "E2"}, validated.EmployeeIDs())
	})
}

func TestValidate_RecurrenceOnlyForSeries(t *testing.T) {
	v := NewValidator(DefaultRules())

	req := validRequest(models.VariantOneTime)
	req.Recurrence = models.NewRecurrence("yearly")
	_, err := v.Validate(req)
	assert.NoError(t, err)

	req.Variant = models.VariantSeries
	_, err = v.Validate(req)
	assert.ErrorIs(t, err, ErrInvalidFrequency)
	assert.ErrorIs(t, err, ErrRecurrence)
	assert.True(t, IsValidation(err))
}

func TestValidate_Idempotent(t *testing.T) {
	v := NewValidator(DefaultRules())
	req := validRequest(models.VariantSeries)

	first, err := v.Validate(req)
	require.NoError(t, err)
	second, err := v.Validate(req)
	require.NoError(t, err)

	assert.Equal(t, first.Request(), second.Request())
	assert.Equal(t, first.Policy(), second.Policy())

	mutated := first.Request()
	mutated.EmployeeIDs[0] = "X"
	assert.Equal(t, []string{"E1"}, second.EmployeeIDs())
}

func TestValidator_CustomRules(t *testing.T) {
	v := NewValidator(Rules{StartHour: 8, EndHour: 18, Minutes: []int{0, 30}})
	assert.Equal(t, models.MaxOccurrences, v.Rules().MaxOccurrences)

	req := validRequest(models.VariantOneTime)
	req.StartHour = models.IntPtr(7)
	_, err := v.Validate(req)
	assert.ErrorIs(t, err, ErrOutOfBusinessWindow)

	req.StartHour = models.IntPtr(10)
	req.StartMinute = models.IntPtr(15)
	_, err = v.Validate(req)
	assert.ErrorIs(t, err, ErrMissingTimeFields)
}

func TestCode(t *testing.T) {
	assert.Equal(t, "missing_required_relation", Code(fieldError("client", ErrMissingRequiredRelation)))
	assert.Equal(t, "invalid_termination", Code(fieldError("recurrence.count", ErrInvalidTermination)))
	assert.Equal(t, "permission_denied", Code(ErrPermissionDenied))
	assert.Equal(t, "", Code(errors.New("store down")))
	assert.False(t, IsValidation(ErrPermissionDenied))
	assert.Equal(t, "booking: required relation is missing (client)", fieldError("client", ErrMissingRequiredRelation).Error())
}
