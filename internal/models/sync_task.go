package models

import "time"

// SyncTask is a queued spreadsheet mirror job for one stored booking.
type SyncTask struct {
	BookingID  int64         `json:"booking_id"`
	Booking    StoredBooking `json:"booking"`
	RetryCount int           `json:"retry_count"`
	LastError  string        `json:"last_error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}
