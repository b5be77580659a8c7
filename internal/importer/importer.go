package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sellerfunnel/api/internal/jobs"
	"github.com/sellerfunnel/api/internal/model"
)

// ClientWriter is the part of the client store an import needs.
type ClientWriter interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	InsertClients(ctx context.Context, clients []model.Client) error
}

// Classifier decides what happens to each row of one import. It remembers
// the addresses accepted so far, so a Classifier must not be shared between
// imports.
type Classifier struct {
	store    ClientWriter
	validate *validator.Validate
	seen     map[string]struct{}
	now      func() time.Time
}

// NewClassifier creates a classifier for a single import.
func NewClassifier(store ClientWriter, validate *validator.Validate) *Classifier {
	if validate == nil {
		validate = validator.New()
	}
	return &Classifier{
		store:    store,
		validate: validate,
		seen:     make(map[string]struct{}),
		now:      time.Now,
	}
}

// Classify accepts a row as a new client, skips empty rows and known
// addresses, and rejects rows without a usable email. A store failure is
// returned as an error and stops the import.
func (c *Classifier) Classify(ctx context.Context, _ int, row Row) (jobs.Outcome[model.Client], error) {
	if row.Blank() {
		return jobs.Skipped[model.Client]("empty row"), nil
	}

	email := row.Get(ColumnEmail)
	if email == "" {
		return jobs.Rejected[model.Client](fmt.Sprintf("Row %d: email is required", row.Number)), nil
	}
	if err := c.validate.Var(email, "email"); err != nil {
		return jobs.Rejected[model.Client](fmt.Sprintf("Row %d: invalid email address %q", row.Number, email)), nil
	}

	key := strings.ToLower(email)
	if _, dup := c.seen[key]; dup {
		return jobs.Skipped[model.Client]("duplicate email in file"), nil
	}
	exists, err := c.store.ExistsByEmail(ctx, email)
	if err != nil {
		return jobs.Outcome[model.Client]{}, fmt.Errorf("row %d: %w", row.Number, err)
	}
	if exists {
		return jobs.Skipped[model.Client]("client already exists"), nil
	}

	c.seen[key] = struct{}{}
	return jobs.Accepted(toClient(row, c.now())), nil
}

// Sink writes each batch of new clients with a single bulk insert.
func Sink(store ClientWriter) jobs.Sink[model.Client] {
	return jobs.SinkFunc[model.Client](func(ctx context.Context, batch []model.Client) ([]error, error) {
		return nil, store.InsertClients(ctx, batch)
	})
}

// Source parses the uploaded file when the job starts.
func Source(format Format, data []byte) jobs.Source[Row] {
	return jobs.SourceFunc[Row](func(context.Context) ([]Row, error) {
		return Parse(format, data)
	})
}

// NewSpec assembles the job that imports one file.
func NewSpec(store ClientWriter, validate *validator.Validate, format Format, data []byte, policy jobs.Policy) jobs.Spec[Row, model.Client] {
	return jobs.Spec[Row, model.Client]{
		Source:     Source(format, data),
		Classifier: NewClassifier(store, validate),
		Sink:       Sink(store),
		Policy:     policy,
	}
}
