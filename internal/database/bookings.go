package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"appointly/internal/models"
)

const bookingColumns = `id, variant, starts_at, start_date, start_hour, start_minute, duration_minutes,
        employee_id, employee_ids, client_id, client_ids, service_id, notes, recurrence,
        created_by, created_at`

// Submit stores a confirmed booking together with its attendee rows.
func (db *DB) Submit(ctx context.Context, booking models.ConfirmedBooking) (int64, error) {
	employees, err := json.Marshal(nonNil(booking.EmployeeIDs))
	if err != nil {
		return 0, fmt.Errorf("marshal employee ids: %w", err)
	}
	clients, err := json.Marshal(nonNil(booking.ClientIDs))
	if err != nil {
		return 0, fmt.Errorf("marshal client ids: %w", err)
	}

	var recurrence sql.NullString
	if booking.Recurrence != nil {
		raw, err := json.Marshal(booking.Recurrence)
		if err != nil {
			return 0, fmt.Errorf("marshal recurrence: %w", err)
		}
		recurrence = sql.NullString{String: string(raw), Valid: true}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
        INSERT INTO bookings (variant, starts_at, start_date, start_hour, start_minute, duration_minutes,
            employee_id, employee_ids, client_id, client_ids, service_id, notes, recurrence,
            created_by, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(booking.Variant), booking.Timestamp, booking.StartDate, booking.StartHour, booking.StartMinute,
		booking.DurationMinutes, booking.EmployeeID, string(employees), booking.ClientID, string(clients),
		booking.ServiceID, booking.Notes, recurrence, booking.CreatedBy, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert booking: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("booking id: %w", err)
	}

	for i, a := range booking.Attendees {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO booking_attendees (booking_id, party_id, party_kind, status, position, responded_at)
            VALUES (?, ?, ?, ?, ?, ?)`,
			id, a.PartyID, string(a.PartyKind), string(a.Status), i, nullTime(a.RespondedAt)); err != nil {
			return 0, fmt.Errorf("insert attendee %s: %w", a.PartyID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit booking: %w", err)
	}

	db.logger.Debug().
		Int64("booking_id", id).
		Str("variant", string(booking.Variant)).
		Str("timestamp", booking.Timestamp).
		Msg("booking stored")
	return id, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.StoredBooking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}

	attendees, err := db.GetAttendees(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Attendees = attendees
	return b, nil
}

// ListBookings returns bookings whose start date falls within [from, to], by start time.
func (db *DB) ListBookings(ctx context.Context, from, to time.Time) ([]models.StoredBooking, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+bookingColumns+`
        FROM bookings
        WHERE start_date BETWEEN ? AND ?
        ORDER BY starts_at, id`,
		from.Format(models.DateLayout), to.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var out []models.StoredBooking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Variant != models.VariantMeeting {
			continue
		}
		if out[i].Attendees, err = db.GetAttendees(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(s scanner) (*models.StoredBooking, error) {
	var (
		b                    models.StoredBooking
		variant              string
		employeeID, clientID sql.NullString
		serviceID, notes     sql.NullString
		employees, clients   string
		recurrence           sql.NullString
	)
	err := s.Scan(&b.ID, &variant, &b.Timestamp, &b.StartDate, &b.StartHour, &b.StartMinute, &b.DurationMinutes,
		&employeeID, &employees, &clientID, &clients, &serviceID, &notes, &recurrence,
		&b.CreatedBy, &b.CreatedAt)
	if err != nil {
		return nil, err
	}

	b.Variant = models.Variant(variant)
	b.EmployeeID = employeeID.String
	b.ClientID = clientID.String
	b.ServiceID = serviceID.String
	b.Notes = notes.String

	if err := json.Unmarshal([]byte(employees), &b.EmployeeIDs); err != nil {
		return nil, fmt.Errorf("booking %d: decode employee ids: %w", b.ID, err)
	}
	if err := json.Unmarshal([]byte(clients), &b.ClientIDs); err != nil {
		return nil, fmt.Errorf("booking %d: decode client ids: %w", b.ID, err)
	}
	if len(b.EmployeeIDs) == 0 {
		b.EmployeeIDs = nil
	}
	if len(b.ClientIDs) == 0 {
		b.ClientIDs = nil
	}
	if recurrence.Valid {
		b.Recurrence = &models.RecurrenceSpec{}
		if err := json.Unmarshal([]byte(recurrence.String), b.Recurrence); err != nil {
			return nil, fmt.Errorf("booking %d: decode recurrence: %w", b.ID, err)
		}
	}
	return &b, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
