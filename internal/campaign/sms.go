package campaign

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/sellerfunnel/api/internal/client"
	"github.com/sellerfunnel/api/internal/jobs"
	"github.com/sellerfunnel/api/internal/model"
)

var (
	phoneNoise   = regexp.MustCompile(`[^0-9+]`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{10,14}$`)
)

// NormalizePhone strips formatting from a phone number and reports whether
// the rest is a valid international number.
func NormalizePhone(raw string) (string, bool) {
	clean := phoneNoise.ReplaceAllString(raw, "")
	return clean, phonePattern.MatchString(clean)
}

// SMSClassifier decides which matched clients receive a text.
type SMSClassifier struct{}

func (SMSClassifier) Classify(_ context.Context, _ int, cl model.Client) (jobs.Outcome[Recipient], error) {
	phone, ok := NormalizePhone(cl.Phone)
	if !ok {
		return jobs.Rejected[Recipient](fmt.Sprintf("%s: invalid phone number format", displayName(cl))), nil
	}
	if !cl.SMSOptedIn {
		return jobs.Skipped[Recipient]("client has not opted in for SMS"), nil
	}
	return jobs.Accepted(Recipient{Client: cl, Address: phone}), nil
}

// SMSSink texts the personalised campaign to each recipient of a batch.
func SMSSink(sender client.SMSSender, store ClientStore, req model.SMSCampaignRequest) jobs.Sink[Recipient] {
	return jobs.SinkFunc[Recipient](func(ctx context.Context, batch []Recipient) ([]error, error) {
		return sendBatch(ctx, store, model.ChannelSMS, time.Now, batch, func(ctx context.Context, r Recipient) error {
			_, err := sender.Send(ctx, r.Address, Personalize(req.Message, r.Client))
			return err
		})
	})
}

// NewSMSSpec assembles an SMS campaign job.
func NewSMSSpec(store ClientStore, sender client.SMSSender, req model.SMSCampaignRequest, policy jobs.Policy) jobs.Spec[model.Client, Recipient] {
	return jobs.Spec[model.Client, Recipient]{
		Source:     Source(store, req.Filter),
		Classifier: SMSClassifier{},
		Sink:       SMSSink(sender, store, req),
		Policy:     policy,
	}
}
