package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/sellerfunnel/api/internal/campaign"
	"github.com/sellerfunnel/api/internal/client"
	"github.com/sellerfunnel/api/internal/jobs"
	"github.com/sellerfunnel/api/internal/model"
)

// CampaignService starts email and SMS campaigns
type CampaignService struct {
	registry *jobs.Registry
	store    campaign.ClientStore
	email    client.EmailSender
	sms      client.SMSSender
	validate *validator.Validate
	policy   jobs.Policy
}

// NewCampaignService creates the service. A nil sender disables its channel.
func NewCampaignService(registry *jobs.Registry, store campaign.ClientStore, email client.EmailSender, sms client.SMSSender, validate *validator.Validate, policy jobs.Policy) *CampaignService {
	return &CampaignService{
		registry: registry,
		store:    store,
		email:    email,
		sms:      sms,
		validate: validate,
		policy:   policy,
	}
}

// StartEmail submits an email campaign to every client matching req.Filter.
func (s *CampaignService) StartEmail(ctx context.Context, req *model.EmailCampaignRequest) (*model.JobStartResponse, error) {
	if s.email == nil {
		return nil, client.ErrEmailNotConfigured
	}
	spec := campaign.NewEmailSpec(s.store, s.email, s.validate, *req, s.policy)
	return s.submit(model.JobKindEmail, func(ctx context.Context, t *jobs.Tracker) {
		_ = jobs.Run(ctx, t, spec)
	}, req.Filter)
}

// StartSMS submits an SMS campaign to every client matching req.Filter.
func (s *CampaignService) StartSMS(ctx context.Context, req *model.SMSCampaignRequest) (*model.JobStartResponse, error) {
	if s.sms == nil {
		return nil, client.ErrSMSNotConfigured
	}
	spec := campaign.NewSMSSpec(s.store, s.sms, *req, s.policy)
	return s.submit(model.JobKindSMS, func(ctx context.Context, t *jobs.Tracker) {
		_ = jobs.Run(ctx, t, spec)
	}, req.Filter)
}

func (s *CampaignService) submit(kind model.JobKind, run jobs.RunFunc, filter model.ClientFilter) (*model.JobStartResponse, error) {
	snapshot, err := s.registry.Submit(kind, run)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("component", "campaign").
		Str("job_id", snapshot.JobID).
		Str("kind", string(kind)).
		Interface("filter", filter).
		Msg("Campaign accepted")

	return startResponse(snapshot), nil
}
