package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sellerfunnel/api/internal/client"
	"github.com/sellerfunnel/api/internal/jobs"
	"github.com/sellerfunnel/api/internal/model"
)

// EmailClassifier decides which matched clients receive an email.
type EmailClassifier struct {
	validate *validator.Validate
}

func NewEmailClassifier(validate *validator.Validate) *EmailClassifier {
	if validate == nil {
		validate = validator.New()
	}
	return &EmailClassifier{validate: validate}
}

func (c *EmailClassifier) Classify(_ context.Context, _ int, cl model.Client) (jobs.Outcome[Recipient], error) {
	if !cl.EmailOptedIn {
		return jobs.Skipped[Recipient]("client has not opted in for email"), nil
	}
	if cl.Email == "" {
		return jobs.Skipped[Recipient]("client has no email address"), nil
	}
	if err := c.validate.Var(cl.Email, "email"); err != nil {
		return jobs.Rejected[Recipient](fmt.Sprintf("%s: invalid email address %q", displayName(cl), cl.Email)), nil
	}
	return jobs.Accepted(Recipient{Client: cl, Address: cl.Email}), nil
}

// EmailSink sends the personalised campaign to each recipient of a batch.
func EmailSink(sender client.EmailSender, store ClientStore, req model.EmailCampaignRequest) jobs.Sink[Recipient] {
	return jobs.SinkFunc[Recipient](func(ctx context.Context, batch []Recipient) ([]error, error) {
		return sendBatch(ctx, store, model.ChannelEmail, time.Now, batch, func(ctx context.Context, r Recipient) error {
			body := Personalize(req.Message, r.Client)
			msg := client.EmailMessage{
				To:      r.Address,
				ToName:  r.Client.FullName(),
				Subject: Personalize(req.Subject, r.Client),
			}
			if req.HTML {
				msg.HTML = body
			} else {
				msg.Text = body
			}
			_, err := sender.Send(ctx, msg)
			return err
		})
	})
}

// NewEmailSpec assembles an email campaign job.
func NewEmailSpec(store ClientStore, sender client.EmailSender, validate *validator.Validate, req model.EmailCampaignRequest, policy jobs.Policy) jobs.Spec[model.Client, Recipient] {
	return jobs.Spec[model.Client, Recipient]{
		Source:     Source(store, req.Filter),
		Classifier: NewEmailClassifier(validate),
		Sink:       EmailSink(sender, store, req),
		Policy:     policy,
	}
}
