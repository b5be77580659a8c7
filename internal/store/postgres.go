package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/sellerfunnel/api/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS clients (
	id                  BIGSERIAL PRIMARY KEY,
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
	active              BOOLEAN NOT NULL DEFAULT TRUE,
	email_opted_in      BOOLEAN NOT NULL DEFAULT FALSE,
	sms_opted_in        BOOLEAN NOT NULL DEFAULT FALSE,
	email_contact_count INTEGER NOT NULL DEFAULT 0,
	phone_contact_count INTEGER NOT NULL DEFAULT 0,
	sms_contact_count   INTEGER NOT NULL DEFAULT 0,
	last_contact_date   TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS clients_email_lower_idx ON clients (lower(email));
`

// Postgres is the production ClientStore backed by a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgres opens a pool for cfg.DSN and pings it.
func NewPostgres(ctx context.Context, cfg Config) (*Postgres, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "sellerfunnel-api"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	log.Info().Str("component", "store").Str("driver", DriverPostgres).Msg("Connected to database")
	return &Postgres{pool: pool, now: time.Now}, nil
}

// Migrate creates the clients table and its indexes.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (p *Postgres) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM clients WHERE lower(email) = lower($1))`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: lookup client: %w", err)
	}
	return exists, nil
}

// InsertClients streams the batch with COPY.
func (p *Postgres) InsertClients(ctx context.Context, clients []model.Client) error {
	if len(clients) == 0 {
		return nil
	}
	now := p.now()
	n, err := p.pool.CopyFrom(ctx,
		pgx.Identifier{"clients"},
		clientColumns,
		pgx.CopyFromSlice(len(clients), func(i int) ([]any, error) {
			return insertValues(clients[i], now), nil
		}),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert clients: %w", err)
	}
	if int(n) != len(clients) {
		return fmt.Errorf("postgres: inserted %d of %d clients", n, len(clients))
	}
	return nil
}

func (p *Postgres) FindClients(ctx context.Context, filter model.ClientFilter) ([]model.Client, error) {
	q, args := selectClientsQuery(filter, func(n int) string { return fmt.Sprintf("$%d", n) })
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: find clients: %w", err)
	}
	defer rows.Close()

	var out []model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan client: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: find clients: %w", err)
	}
	return out, nil
}

func (p *Postgres) RecordContact(ctx context.Context, id int64, channel model.Channel, at time.Time) error {
	col, err := contactColumn(channel)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(
		`UPDATE clients SET %[1]s = %[1]s + 1, last_contact_date = $2, updated_at = $2 WHERE id = $1`, col)
	if _, err := p.pool.Exec(ctx, q, id, at); err != nil {
		return fmt.Errorf("postgres: record contact: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
