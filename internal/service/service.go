package service

import (
	"time"

	"github.com/sellerfunnel/api/internal/config"
	"github.com/sellerfunnel/api/internal/jobs"
	"github.com/sellerfunnel/api/internal/model"
)

// Policies holds the batching policy applied to each job kind.
type Policies struct {
	Import   jobs.Policy
	Campaign jobs.Policy
}

// DefaultPolicies returns the stock import and campaign policies.
func DefaultPolicies() Policies {
	return Policies{Import: jobs.ImportPolicy(), Campaign: jobs.CampaignPolicy()}
}

// PoliciesFromConfig overrides the defaults with any configured values.
func PoliciesFromConfig(cfg *config.JobsConfig) Policies {
	p := DefaultPolicies()
	if cfg.ImportBatchSize > 0 {
		p.Import.BatchSize = cfg.ImportBatchSize
	}
	if cfg.CampaignBatchSize > 0 {
		p.Campaign.BatchSize = cfg.CampaignBatchSize
	}
	if cfg.BatchDelay > 0 {
		p.Import.Delay = cfg.BatchDelay
		p.Campaign.Delay = cfg.BatchDelay
	}
	return p
}

func startResponse(s model.JobSnapshot) *model.JobStartResponse {
	created := s.StartedAt
	if created.IsZero() {
		created = time.Now()
	}
	return &model.JobStartResponse{
		JobID:     s.JobID,
		Kind:      s.Kind,
		Status:    s.Status,
		CreatedAt: created,
	}
}
