package model

// Job kinds
type JobKind string

const (
	JobKindImport JobKind = "import"
	JobKindEmail  JobKind = "email"
	JobKindSMS    JobKind = "sms"
)

// Job statuses
type JobStatus string

const (
	JobStatusPreparing  JobStatus = "preparing"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions can follow s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Contact channels
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Client types
type ClientType string

const (
	ClientTypeSeller   ClientType = "SELLER"
	ClientTypeBuyer    ClientType = "BUYER"
	ClientTypeInvestor ClientType = "INVESTOR"
	ClientTypeAgent    ClientType = "AGENT"
	ClientTypeVendor   ClientType = "VENDOR"
)

var ValidClientTypes = []ClientType{
	ClientTypeSeller, ClientTypeBuyer, ClientTypeInvestor, ClientTypeAgent, ClientTypeVendor,
}

// Client statuses
type ClientStatus string

const (
	ClientStatusSuspect  ClientStatus = "SUSPECT"
	ClientStatusProspect ClientStatus = "PROSPECT"
	ClientStatusLead     ClientStatus = "LEAD"
	ClientStatusContract ClientStatus = "CONTRACT"
	ClientStatusDeal     ClientStatus = "DEAL"
)

var ValidClientStatuses = []ClientStatus{
	ClientStatusSuspect, ClientStatusProspect, ClientStatusLead, ClientStatusContract, ClientStatusDeal,
}
