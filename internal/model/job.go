package model

import "time"

// JobSnapshot is an immutable copy of a job's progress at one instant
type JobSnapshot struct {
	JobID        string     `json:"jobId"`
	Kind         JobKind    `json:"kind"`
	Status       JobStatus  `json:"status"`
	Progress     float64    `json:"progress"`
	Total        int        `json:"total"`
	Processed    int        `json:"processed"`
	Succeeded    int        `json:"succeeded"`
	Errored      int        `json:"errored"`
	Skipped      int        `json:"skipped"`
	RecentErrors []string   `json:"recentErrors"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	EndedAt      *time.Time `json:"endedAt,omitempty"`
}

// JobStartResponse is returned when a bulk job has been accepted
type JobStartResponse struct {
	JobID     string    `json:"jobId"`
	Kind      JobKind   `json:"kind"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobListResponse wraps the snapshots of all registered jobs
type JobListResponse struct {
	Jobs []JobSnapshot `json:"jobs"`
}
