// Package store persists CRM clients for the bulk job pipelines.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sellerfunnel/api/internal/model"
)

// ClientStore is the durable client table used by imports and campaigns.
type ClientStore interface {
	// ExistsByEmail reports whether a client with this address exists,
	// ignoring case.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// InsertClients writes the whole batch in one bulk operation.
	InsertClients(ctx context.Context, clients []model.Client) error
	// FindClients returns the clients matching every non-empty filter field.
	FindClients(ctx context.Context, filter model.ClientFilter) ([]model.Client, error)
	// RecordContact bumps the contact counter of channel and stamps the
	// last contact date.
	RecordContact(ctx context.Context, id int64, channel model.Channel, at time.Time) error
	Ping(ctx context.Context) error
	Close() error
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config selects and tunes the backing database.
type Config struct {
	Driver      string
	DSN         string
	MaxConns    int32
	DialTimeout time.Duration
}

// Open connects to the configured database and ensures the schema exists.
func Open(ctx context.Context, cfg Config) (ClientStore, error) {
	switch cfg.Driver {
	case DriverPostgres:
		s, err := NewPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case DriverSQLite, "":
		s, err := NewSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
}

// clientColumns is the insert and select column order shared by both drivers.
var clientColumns = []string{
	"first_name", "last_name", "email", "phone", "company_name", "job_title",
	"address", "city", "state", "zip_code", "client_type", "client_status",
	"lead_source", "notes", "active", "email_opted_in", "sms_opted_in",
	"email_contact_count", "phone_contact_count", "sms_contact_count",
	"last_contact_date", "created_at", "updated_at",
}

func insertValues(c model.Client, now time.Time) []any {
	created := c.CreatedAt
	if created.IsZero() {
		created = now
	}
	var lastContact sql.NullTime
	if c.LastContactDate != nil {
		lastContact = sql.NullTime{Time: *c.LastContactDate, Valid: true}
	}
	return []any{
		c.FirstName, c.LastName, c.Email, c.Phone, c.CompanyName, c.JobTitle,
		c.Address, c.City, c.State, c.ZipCode, c.ClientType, c.ClientStatus,
		c.LeadSource, c.Notes, c.Active, c.EmailOptedIn, c.SMSOptedIn,
		c.EmailContactCount, c.PhoneContactCount, c.SMSContactCount,
		lastContact, created, now,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClient(row scanner) (model.Client, error) {
	var (
		c           model.Client
		lastContact sql.NullTime
	)
	err := row.Scan(
		&c.ID,
		&c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.CompanyName, &c.JobTitle,
		&c.Address, &c.City, &c.State, &c.ZipCode, &c.ClientType, &c.ClientStatus,
		&c.LeadSource, &c.Notes, &c.Active, &c.EmailOptedIn, &c.SMSOptedIn,
		&c.EmailContactCount, &c.PhoneContactCount, &c.SMSContactCount,
		&lastContact, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return model.Client{}, err
	}
	if lastContact.Valid {
		t := lastContact.Time
		c.LastContactDate = &t
	}
	return c, nil
}

func selectClientsQuery(filter model.ClientFilter, placeholder func(n int) string) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(expr, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf(expr, placeholder(len(args))))
	}
	add("client_type = %s", filter.ClientType)
	add("client_status = %s", filter.ClientStatus)
	add("lead_source = %s", filter.LeadSource)
	add("lower(city) = lower(%s)", filter.City)
	add("lower(state) = lower(%s)", filter.State)

	q := "SELECT id, " + strings.Join(clientColumns, ", ") + " FROM clients"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	return q + " ORDER BY id", args
}

func contactColumn(channel model.Channel) (string, error) {
	switch channel {
	case model.ChannelEmail:
		return "email_contact_count", nil
	case model.ChannelSMS:
		return "sms_contact_count", nil
	}
	return "", fmt.Errorf("store: unknown contact channel %q", channel)
}
