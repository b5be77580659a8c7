package service

import (
	"github.com/sellerfunnel/api/internal/jobs"
	"github.com/sellerfunnel/api/internal/model"
)

// JobService exposes job progress
type JobService struct {
	registry *jobs.Registry
}

func NewJobService(registry *jobs.Registry) *JobService {
	return &JobService{registry: registry}
}

// Status returns the current snapshot of a job
func (s *JobService) Status(jobID string) (*model.JobSnapshot, error) {
	snapshot, err := s.registry.Lookup(jobID)
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// List returns every retained job, oldest first
func (s *JobService) List() *model.JobListResponse {
	return &model.JobListResponse{Jobs: s.registry.List()}
}

// Cancel stops a running job
func (s *JobService) Cancel(jobID string) (*model.JobSnapshot, error) {
	snapshot, err := s.registry.Cancel(jobID)
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}
