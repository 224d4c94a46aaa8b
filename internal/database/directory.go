package database

import (
	"context"
	"database/sql"
	"fmt"

	"appointly/internal/models"
)

func (db *DB) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT id, name, COALESCE(email, ''), telegram_chat_id, is_active
        FROM employees WHERE is_active = 1 ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var out []models.Employee
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.TelegramChatID, &e.IsActive); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (db *DB) ListClients(ctx context.Context) ([]models.Client, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT id, name, COALESCE(phone, ''), telegram_chat_id, is_active
        FROM clients WHERE is_active = 1 ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var out []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.TelegramChatID, &c.IsActive); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (db *DB) ListServices(ctx context.Context) ([]models.Service, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT id, name, duration_minutes, is_active
        FROM services WHERE is_active = 1 ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	var out []models.Service
	for rows.Next() {
		var s models.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.IsActive); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ImportDirectory upserts a whole snapshot in one transaction.
func (db *DB) ImportDirectory(ctx context.Context, snap models.DirectorySnapshot) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range snap.Employees {
		if err := upsertEmployee(ctx, tx, e); err != nil {
			return err
		}
	}
	for _, c := range snap.Clients {
		if err := upsertClient(ctx, tx, c); err != nil {
			return err
		}
	}
	for _, s := range snap.Services {
		if err := upsertService(ctx, tx, s); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit directory: %w", err)
	}

	db.logger.Info().
		Int("employees", len(snap.Employees)).
		Int("clients", len(snap.Clients)).
		Int("services", len(snap.Services)).
		Msg("directory imported")
	return nil
}

func (db *DB) UpsertEmployee(ctx context.Context, e models.Employee) error {
	return upsertEmployee(ctx, db.DB, e)
}

func (db *DB) UpsertClient(ctx context.Context, c models.Client) error {
	return upsertClient(ctx, db.DB, c)
}

func (db *DB) UpsertService(ctx context.Context, s models.Service) error {
	return upsertService(ctx, db.DB, s)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertEmployee(ctx context.Context, x execer, e models.Employee) error {
	_, err := x.ExecContext(ctx, `
        INSERT INTO employees (id, name, email, telegram_chat_id, is_active, updated_at)
        VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            email = excluded.email,
            telegram_chat_id = excluded.telegram_chat_id,
            is_active = excluded.is_active,
            updated_at = CURRENT_TIMESTAMP`,
		e.ID, e.Name, e.Email, e.TelegramChatID, e.IsActive)
	if err != nil {
		return fmt.Errorf("upsert employee %s: %w", e.ID, err)
	}
	return nil
}

func upsertClient(ctx context.Context, x execer, c models.Client) error {
	_, err := x.ExecContext(ctx, `
        INSERT INTO clients (id, name, phone, telegram_chat_id, is_active, updated_at)
        VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            phone = excluded.phone,
            telegram_chat_id = excluded.telegram_chat_id,
            is_active = excluded.is_active,
            updated_at = CURRENT_TIMESTAMP`,
		c.ID, c.Name, c.Phone, c.TelegramChatID, c.IsActive)
	if err != nil {
		return fmt.Errorf("upsert client %s: %w", c.ID, err)
	}
	return nil
}

func upsertService(ctx context.Context, x execer, s models.Service) error {
	_, err := x.ExecContext(ctx, `
        INSERT INTO services (id, name, duration_minutes, is_active, updated_at)
        VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            duration_minutes = excluded.duration_minutes,
            is_active = excluded.is_active,
            updated_at = CURRENT_TIMESTAMP`,
		s.ID, s.Name, s.DurationMinutes, s.IsActive)
	if err != nil {
		return fmt.Errorf("upsert service %s: %w", s.ID, err)
	}
	return nil
}
