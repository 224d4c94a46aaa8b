package database

import (
	"context"
	"database/sql"
	"fmt"

	"appointly/internal/models"
)

func (db *DB) GetAttendees(ctx context.Context, bookingID int64) ([]models.Attendee, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT party_id, party_kind, status, responded_at
        FROM booking_attendees
        WHERE booking_id = ?
        ORDER BY position`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("query attendees: %w", err)
	}
	defer rows.Close()

	var out []models.Attendee
	for rows.Next() {
		var (
			a           models.Attendee
			kind, state string
			responded   sql.NullTime
		)
		if err := rows.Scan(&a.PartyID, &kind, &state, &responded); err != nil {
			return nil, err
		}
		a.PartyKind = models.PartyKind(kind)
		a.Status = models.AttendeeStatus(state)
		if responded.Valid {
			t := responded.Time
			a.RespondedAt = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateAttendeeStatus records a response. Rows are matched by kind and id,
// since employees and clients have separate id spaces. Only a pending row is
// updated, so two concurrent responses cannot both succeed.
func (db *DB) UpdateAttendeeStatus(ctx context.Context, bookingID int64, attendee models.Attendee) error {
	res, err := db.ExecContext(ctx, `
        UPDATE booking_attendees
        SET status = ?, responded_at = ?
        WHERE booking_id = ? AND party_kind = ? AND party_id = ? AND status = ?`,
		string(attendee.Status), nullTime(attendee.RespondedAt),
		bookingID, string(attendee.PartyKind), attendee.PartyID, string(models.AttendeePending))
	if err != nil {
		return fmt.Errorf("update attendee: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM booking_attendees WHERE booking_id = ? AND party_kind = ? AND party_id = ?`,
		bookingID, string(attendee.PartyKind), attendee.PartyID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrAttendeeNotFound
	}
	return ErrAttendeeNotPending
}
