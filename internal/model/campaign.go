package model

// EmailCampaignRequest represents the request to start an email campaign
type EmailCampaignRequest struct {
	Subject string       `json:"subject" validate:"required,max=200"`
	Message string       `json:"message" validate:"required,max=100000"`
	HTML    bool         `json:"html"`
	Filter  ClientFilter `json:"filter"`
}

// SMSCampaignRequest represents the request to start an SMS campaign
type SMSCampaignRequest struct {
	Message string       `json:"message" validate:"required,max=1600"`
	Filter  ClientFilter `json:"filter"`
}
