package api

import (
	"fmt"
	"strings"
	"time"

	"appointly/internal/models"
)

type bookingRequestBody struct {
	Variant         string                 `json:"variant"`
	EmployeeIDs     []string               `json:"employee_ids"`
	ClientIDs       []string               `json:"client_ids"`
	ServiceID       string                 `json:"service_id"`
	StartDate       string                 `json:"start_date"`
	StartHour       *int                   `json:"start_hour"`
	StartMinute     *int                   `json:"start_minute"`
	DurationMinutes int                    `json:"duration_minutes"`
	Notes           string                 `json:"notes"`
	Recurrence      *models.RecurrenceSpec `json:"recurrence"`
}

func (b bookingRequestBody) toRequest() (models.BookingRequest, error) {
	req := models.BookingRequest{
		Variant:         parseVariant(b.Variant),
		EmployeeIDs:     b.EmployeeIDs,
		ClientIDs:       b.ClientIDs,
		ServiceID:       strings.TrimSpace(b.ServiceID),
		StartHour:       b.StartHour,
		StartMinute:     b.StartMinute,
		DurationMinutes: b.DurationMinutes,
		Notes:           b.Notes,
		Recurrence:      b.Recurrence,
	}
	if b.StartDate != "" {
		d, err := parseDate(b.StartDate)
		if err != nil {
			return models.BookingRequest{}, err
		}
		req.StartDate = d
	}
	return req, nil
}

// parseVariant keeps an unknown value as is so the validator reports it.
func parseVariant(raw string) models.Variant {
	if v, err := models.ParseVariant(raw); err == nil {
		return v
	}
	return models.Variant(raw)
}

type draftStartBody struct {
	Variant string `json:"variant"`
}

type draftPatchBody struct {
	EmployeeIDs     *[]string `json:"employee_ids"`
	ClientIDs       *[]string `json:"client_ids"`
	ServiceID       *string   `json:"service_id"`
	StartDate       *string   `json:"start_date"`
	StartHour       *int      `json:"start_hour"`
	StartMinute     *int      `json:"start_minute"`
	DurationMinutes *int      `json:"duration_minutes"`
	Notes           *string   `json:"notes"`
	Frequency       *string   `json:"frequency"`

	// Режим завершения серии: либо until, либо count
	Until *string `json:"until"`
	Count *int    `json:"count"`
}

func (b draftPatchBody) toPatch() (models.DraftPatch, error) {
	patch := models.DraftPatch{
		EmployeeIDs:     b.EmployeeIDs,
		ClientIDs:       b.ClientIDs,
		ServiceID:       b.ServiceID,
		StartHour:       b.StartHour,
		StartMinute:     b.StartMinute,
		DurationMinutes: b.DurationMinutes,
		Notes:           b.Notes,
		Count:           b.Count,
	}
	if b.Until != nil && b.Count != nil {
		return models.DraftPatch{}, models.ErrConflictingTermination
	}
	if b.StartDate != nil {
		d, err := parseDate(*b.StartDate)
		if err != nil {
			return models.DraftPatch{}, err
		}
		patch.StartDate = &d
	}
	if b.Frequency != nil {
		f := models.Frequency(strings.ToLower(strings.TrimSpace(*b.Frequency)))
		patch.Frequency = &f
	}
	if b.Until != nil {
		d, err := parseDate(*b.Until)
		if err != nil {
			return models.DraftPatch{}, err
		}
		patch.Until = &d
	}
	return patch, nil
}

type respondBody struct {
	Decision string `json:"decision"`
}

func parseDate(raw string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q; expected YYYY-MM-DD", raw)
	}
	return d, nil
}
