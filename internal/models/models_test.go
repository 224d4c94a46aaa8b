package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecurrenceSpec_TerminationExclusive(t *testing.T) {
	until := time.Date(2024, 7, 1, 15, 30, 0, 0, time.UTC)

	t.Run("CountAfterUntil", func(t *testing.T) {
		spec := NewRecurrence(FrequencyWeekly).SetUntil(until).SetAfterCount(5)

		assert.Equal(t, TerminationCount, spec.Mode())
		_, ok := spec.Until()
		assert.False(t, ok)
		n, ok := spec.Count()
		assert.True(t, ok)
		assert.Equal(t, 5, n)
	})

	t.Run("UntilAfterCount", func(t *testing.T) {
		spec := NewRecurrence(FrequencyWeekly).SetAfterCount(5).SetUntil(until)

		assert.Equal(t, TerminationUntil, spec.Mode())
		_, ok := spec.Count()
		assert.False(t, ok)
		d, ok := spec.Until()
		assert.True(t, ok)
		assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), d)
	})

	t.Run("Clear", func(t *testing.T) {
		spec := NewRecurrence(FrequencyDaily).SetAfterCount(3)
		spec.ClearTermination()
		assert.Equal(t, TerminationNone, spec.Mode())
	})

	t.Run("NilSpec", func(t *testing.T) {
		var spec *RecurrenceSpec
		assert.Equal(t, TerminationNone, spec.Mode())
		assert.Nil(t, spec.Clone())
	})
}

func TestRecurrenceSpec_JSON(t *testing.T) {
	t.Run("Count", func(t *testing.T) {
		raw, err := json.Marshal(NewRecurrence(FrequencyWeekly).SetAfterCount(4))
		require.NoError(t, err)
		assert.JSONEq(t, `{"frequency":"weekly","count":4}`, string(raw))

		var back RecurrenceSpec
		require.NoError(t, json.Unmarshal(raw, &back))
		n, ok := back.Count()
		assert.True(t, ok)
		assert.Equal(t, 4, n)
	})

	t.Run("Until", func(t *testing.T) {
		var spec RecurrenceSpec
		require.NoError(t, json.Unmarshal([]byte(`{"frequency":"monthly","until":"2024-12-31"}`), &spec))
		assert.Equal(t, FrequencyMonthly, spec.Frequency)
		d, ok := spec.Until()
		assert.True(t, ok)
		assert.Equal(t, "2024-12-31", d.Format(DateLayout))
	})

	t.Run("ZeroCountKept", func(t *testing.T) {
		var spec RecurrenceSpec
		require.NoError(t, json.Unmarshal([]byte(`{"frequency":"daily","count":0}`), &spec))
		n, ok := spec.Count()
		assert.True(t, ok)
		assert.Equal(t, 0, n)
	})

	t.Run("BothRejected", func(t *testing.T) {
		var spec RecurrenceSpec
		err := json.Unmarshal([]byte(`{"frequency":"daily","count":2,"until":"2024-12-31"}`), &spec)
		assert.ErrorIs(t, err, ErrConflictingTermination)
	})

	t.Run("BadDate", func(t *testing.T) {
		var spec RecurrenceSpec
		assert.Error(t, json.Unmarshal([]byte(`{"frequency":"daily","until":"31.12.2024"}`), &spec))
	})
}

func TestParseVariant(t *testing.T) {
	for raw, want := range map[string]Variant{
		"one_time": VariantOneTime,
		"One-Time": VariantOneTime,
		"onetime":  VariantOneTime,
		" series ": VariantSeries,
		"meeting":  VariantMeeting,
		"TASK":     VariantTask,
	} {
		got, err := ParseVariant(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseVariant("holiday")
	assert.Error(t, err)
}

func TestActor_Permissions(t *testing.T) {
	a := NewActor("E1", "Anna", []string{"write:scheduling", "admin:clients", "broken", ":x"})

	require.Len(t, a.Permissions, 2)
	assert.True(t, a.Can(ResourceScheduling, ActionWrite))
	assert.False(t, a.Can(ResourceScheduling, ActionWriteAll))
	assert.True(t, a.IsAdmin())

	plain := NewActor("E2", "", []string{"read:scheduling"})
	assert.False(t, plain.IsAdmin())
	assert.Equal(t, "read:scheduling", plain.Permissions[0].String())
}

func TestDraftPatch_Apply(t *testing.T) {
	req := BookingRequest{Variant: VariantSeries}
	employees := []string{"E1"}
	date := time.Date(2024, 6, 3, 18, 0, 0, 0, time.UTC)
	freq := FrequencyWeekly

	DraftPatch{
		EmployeeIDs: &employees,
		StartDate:   &date,
		StartHour:   IntPtr(9),
		StartMinute: IntPtr(0),
		Frequency:   &freq,
	}.Apply(&req)

	employees[0] = "mutated"
	assert.Equal(t, []string{"E1"}, req.EmployeeIDs)
	assert.Equal(t, "2024-06-03", req.StartDate.Format(DateLayout))
	assert.Equal(t, 0, req.StartDate.Hour())
	require.NotNil(t, req.StartHour)
	assert.Equal(t, 9, *req.StartHour)
	require.NotNil(t, req.Recurrence)
	assert.Equal(t, FrequencyWeekly, req.Recurrence.Frequency)

	req.Recurrence.SetAfterCount(4)
	other := FrequencyDaily
	DraftPatch{Frequency: &other}.Apply(&req)
	n, ok := req.Recurrence.Count()
	assert.True(t, ok, "changing frequency keeps termination")
	assert.Equal(t, 4, n)
}

func TestDraftPatch_ApplyTermination(t *testing.T) {
	req := BookingRequest{Variant: VariantSeries}
	until := time.Date(2024, 7, 1, 15, 0, 0, 0, time.UTC)
	notes := "weekly sync"

	DraftPatch{Notes: &notes, Until: &until}.Apply(&req)
	require.NotNil(t, req.Recurrence)
	got, ok := req.Recurrence.Until()
	require.True(t, ok)
	assert.Equal(t, "2024-07-01", got.Format(DateLayout))
	assert.Equal(t, "weekly sync", req.Notes)

	DraftPatch{Count: IntPtr(6)}.Apply(&req)
	n, ok := req.Recurrence.Count()
	assert.True(t, ok)
	assert.Equal(t, 6, n)
	_, ok = req.Recurrence.Until()
	assert.False(t, ok)
}

func TestBookingRequest_Clone(t *testing.T) {
	req := BookingRequest{
		EmployeeIDs: []string{"E1"},
		StartHour:   IntPtr(10),
		Recurrence:  NewRecurrence(FrequencyDaily).SetAfterCount(2),
	}
	cp := req.Clone()
	cp.EmployeeIDs[0] = "E2"
	*cp.StartHour = 11
	cp.Recurrence.SetAfterCount(9)

	assert.Equal(t, "E1", req.EmployeeIDs[0])
	assert.Equal(t, 10, *req.StartHour)
	n, _ := req.Recurrence.Count()
	assert.Equal(t, 2, n)
}
