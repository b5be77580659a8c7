package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage carries a job snapshot while the job is running
type WSProgressMessage struct {
	Type string      `json:"type"`
	Job  JobSnapshot `json:"job"`
}

// WSCompleteMessage carries the final snapshot of a terminal job
type WSCompleteMessage struct {
	Type string      `json:"type"`
	Job  JobSnapshot `json:"job"`
}

// WSErrorMessage represents an error
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
