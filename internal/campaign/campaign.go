// Package campaign builds the email and SMS send jobs.
package campaign

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sellerfunnel/api/internal/jobs"
	"github.com/sellerfunnel/api/internal/model"
)

// ClientStore is the part of the client store a campaign needs.
type ClientStore interface {
	FindClients(ctx context.Context, filter model.ClientFilter) ([]model.Client, error)
	RecordContact(ctx context.Context, id int64, channel model.Channel, at time.Time) error
}

// Recipient is a client that passed classification, with the address the
// message goes to.
type Recipient struct {
	Client  model.Client
	Address string
}

// Source loads the clients matching filter once, when the job starts.
func Source(store ClientStore, filter model.ClientFilter) jobs.Source[model.Client] {
	return jobs.SourceFunc[model.Client](func(ctx context.Context) ([]model.Client, error) {
		clients, err := store.FindClients(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("load recipients: %w", err)
		}
		return clients, nil
	})
}

// Personalize fills the {{first_name}}, {{last_name}} and {{full_name}}
// placeholders of text for c.
func Personalize(text string, c model.Client) string {
	return strings.NewReplacer(
		"{{first_name}}", c.FirstName,
		"{{last_name}}", c.LastName,
		"{{full_name}}", c.FullName(),
	).Replace(text)
}

func displayName(c model.Client) string {
	if name := c.FullName(); name != "" {
		return name
	}
	if c.Email != "" {
		return c.Email
	}
	return fmt.Sprintf("client %d", c.ID)
}

// sendBatch delivers every recipient of a batch independently. A delivery
// failure marks only that recipient; failing to record a delivered contact
// means the store is gone and aborts the job. When it stops early the results
// cover the recipients handled so far.
func sendBatch(
	ctx context.Context,
	store ClientStore,
	channel model.Channel,
	now func() time.Time,
	batch []Recipient,
	send func(ctx context.Context, r Recipient) error,
) ([]error, error) {
	results := make([]error, len(batch))
	for i, r := range batch {
		if err := ctx.Err(); err != nil {
			return results[:i], err
		}
		if err := send(ctx, r); err != nil {
			results[i] = fmt.Errorf("failed to send to %s: %w", r.Address, err)
			continue
		}
		if err := store.RecordContact(ctx, r.Client.ID, channel, now()); err != nil {
			return results[:i], fmt.Errorf("record %s contact for client %d: %w", channel, r.Client.ID, err)
		}
	}
	return results, nil
}
