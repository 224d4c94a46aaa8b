package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Frequency is how often a series repeats.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	default:
		return false
	}
}

// TerminationMode says how a series ends.
type TerminationMode string

const (
	TerminationNone  TerminationMode = ""
	TerminationUntil TerminationMode = "until"
	TerminationCount TerminationMode = "count"
)

// ErrConflictingTermination is returned when a payload carries both an end
// date and an occurrence count.
var ErrConflictingTermination = errors.New("recurrence: until and count are mutually exclusive")

// RecurrenceSpec describes a recurring series. At most one termination mode
// holds a value at a time; the setters clear the other mode.
type RecurrenceSpec struct {
	Frequency Frequency

	until *time.Time
	count *int
}

// NewRecurrence builds a spec with no termination set.
func NewRecurrence(freq Frequency) *RecurrenceSpec {
	return &RecurrenceSpec{Frequency: freq}
}

// SetUntil ends the series on the given calendar date and drops any count.
func (r *RecurrenceSpec) SetUntil(date time.Time) *RecurrenceSpec {
	d := truncateDay(date)
	r.until = &d
	r.count = nil
	return r
}

// SetAfterCount ends the series after n occurrences and drops any end date.
func (r *RecurrenceSpec) SetAfterCount(n int) *RecurrenceSpec {
	r.count = &n
	r.until = nil
	return r
}

// ClearTermination removes both termination values.
func (r *RecurrenceSpec) ClearTermination() {
	r.until = nil
	r.count = nil
}

// Mode reports the active termination mode.
func (r *RecurrenceSpec) Mode() TerminationMode {
	switch {
	case r == nil:
		return TerminationNone
	case r.until != nil:
		return TerminationUntil
	case r.count != nil:
		return TerminationCount
	default:
		return TerminationNone
	}
}

// Until returns the end date, if that mode is active.
func (r *RecurrenceSpec) Until() (time.Time, bool) {
	if r == nil || r.until == nil {
		return time.Time{}, false
	}
	return *r.until, true
}

// Count returns the occurrence count, if that mode is active. The value is
// returned as stored; range checks belong to the validator.
func (r *RecurrenceSpec) Count() (int, bool) {
	if r == nil || r.count == nil {
		return 0, false
	}
	return *r.count, true
}

// Clone returns an independent copy.
func (r *RecurrenceSpec) Clone() *RecurrenceSpec {
	if r == nil {
		return nil
	}
	out := &RecurrenceSpec{Frequency: r.Frequency}
	if r.until != nil {
		out.SetUntil(*r.until)
	}
	if r.count != nil {
		out.SetAfterCount(*r.count)
	}
	return out
}

type recurrenceJSON struct {
	Frequency Frequency `json:"frequency"`
	Until     string    `json:"until,omitempty"`
	Count     *int      `json:"count,omitempty"`
}

func (r RecurrenceSpec) MarshalJSON() ([]byte, error) {
	out := recurrenceJSON{Frequency: r.Frequency, Count: r.count}
	if r.until != nil {
		out.Until = r.until.Format(DateLayout)
	}
	return json.Marshal(out)
}

func (r *RecurrenceSpec) UnmarshalJSON(data []byte) error {
	var in recurrenceJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Until != "" && in.Count != nil {
		return ErrConflictingTermination
	}

	r.Frequency = in.Frequency
	r.ClearTermination()
	if in.Until != "" {
		d, err := time.Parse(DateLayout, in.Until)
		if err != nil {
			return fmt.Errorf("recurrence: invalid until date %q: %w", in.Until, err)
		}
		r.SetUntil(d)
	}
	if in.Count != nil {
		r.SetAfterCount(*in.Count)
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TruncateDay strips the time of day, keeping the calendar date.
func TruncateDay(t time.Time) time.Time {
	return truncateDay(t)
}
