package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/sellerfunnel/api/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS clients (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	first_name          TEXT NOT NULL DEFAULT '',
	last_name           TEXT NOT NULL DEFAULT '',
	email               TEXT NOT NULL,
	phone               TEXT NOT NULL DEFAULT '',
	company_name        TEXT NOT NULL DEFAULT '',
	job_title           TEXT NOT NULL DEFAULT '',
	address             TEXT NOT NULL DEFAULT '',
	city                TEXT NOT NULL DEFAULT '',
	state               TEXT NOT NULL DEFAULT '',
	zip_code            TEXT NOT NULL DEFAULT '',
	client_type         TEXT NOT NULL DEFAULT '',
	client_status       TEXT NOT NULL DEFAULT '',
	lead_source         TEXT NOT NULL DEFAULT '',
	notes               TEXT NOT NULL DEFAULT '',
	active              BOOLEAN NOT NULL DEFAULT 1,
	email_opted_in      BOOLEAN NOT NULL DEFAULT 0,
	sms_opted_in        BOOLEAN NOT NULL DEFAULT 0,
	email_contact_count INTEGER NOT NULL DEFAULT 0,
	phone_contact_count INTEGER NOT NULL DEFAULT 0,
	sms_contact_count   INTEGER NOT NULL DEFAULT 0,
	last_contact_date   DATETIME,
	created_at          DATETIME NOT NULL,
	updated_at          DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS clients_email_lower_idx ON clients (lower(email));
`

// SQLite is a ClientStore for local runs and tests.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens the database at dsn; ":memory:" gives a private in-memory
// database.
func NewSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection serializes writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	log.Info().Str("component", "store").Str("driver", DriverSQLite).Str("dsn", dsn).Msg("Connected to database")
	return &SQLite{db: db, now: time.Now}, nil
}

// Migrate creates the clients table and its indexes.
func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

func (s *SQLite) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM clients WHERE lower(email) = lower(?))`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: lookup client: %w", err)
	}
	return exists, nil
}

// InsertClients writes the batch in a single transaction.
func (s *SQLite) InsertClients(ctx context.Context, clients []model.Client) (err error) {
	if len(clients) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(clientColumns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO clients (%s) VALUES (%s)", strings.Join(clientColumns, ", "), placeholders))
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	now := s.now()
	for _, c := range clients {
		if _, err = stmt.ExecContext(ctx, insertValues(c, now)...); err != nil {
			return fmt.Errorf("sqlite: insert client %s: %w", c.Email, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (s *SQLite) FindClients(ctx context.Context, filter model.ClientFilter) ([]model.Client, error) {
	q, args := selectClientsQuery(filter, func(int) string { return "?" })
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find clients: %w", err)
	}
	defer rows.Close()

	var out []model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan client: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: find clients: %w", err)
	}
	return out, nil
}

func (s *SQLite) RecordContact(ctx context.Context, id int64, channel model.Channel, at time.Time) error {
	col, err := contactColumn(channel)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(
		`UPDATE clients SET %[1]s = %[1]s + 1, last_contact_date = ?, updated_at = ? WHERE id = ?`, col)
	if _, err := s.db.ExecContext(ctx, q, at, at, id); err != nil {
		return fmt.Errorf("sqlite: record contact: %w", err)
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
