package booking

import (
	"time"

	"appointly/internal/models"
)

// ValidateRecurrence checks a series rule against the booking start date.
// maxCount bounds the AfterCount mode; values <= 0 fall back to the default.
func ValidateRecurrence(spec *models.RecurrenceSpec, start time.Time, maxCount int) error {
	if maxCount <= 0 {
		maxCount = models.MaxOccurrences
	}
	if spec == nil {
		return fieldError("recurrence", ErrMissingRecurrence)
	}
	if !spec.Frequency.Valid() {
		return fieldError("recurrence.frequency", ErrInvalidFrequency)
	}

	switch spec.Mode() {
	case models.TerminationUntil:
		until, _ := spec.Until()
		if until.Before(models.TruncateDay(start)) {
			return fieldError("recurrence.until", ErrInvalidTermination)
		}
	case models.TerminationCount:
		n, _ := spec.Count()
		if n < 1 || n > maxCount {
			return fieldError("recurrence.count", ErrInvalidTermination)
		}
	default:
		return fieldError("recurrence", ErrInvalidTermination)
	}
	return nil
}
