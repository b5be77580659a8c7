package model

import "time"

// Client is a CRM contact record
type Client struct {
	ID                int64      `json:"id"`
	FirstName         string     `json:"firstName"`
	LastName          string     `json:"lastName"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone,omitempty"`
	CompanyName       string     `json:"companyName,omitempty"`
	JobTitle          string     `json:"jobTitle,omitempty"`
	Address           string     `json:"address,omitempty"`
	City              string     `json:"city,omitempty"`
	State             string     `json:"state,omitempty"`
	ZipCode           string     `json:"zipCode,omitempty"`
	ClientType        string     `json:"clientType,omitempty"`
	ClientStatus      string     `json:"clientStatus,omitempty"`
	LeadSource        string     `json:"leadSource,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	Active            bool       `json:"active"`
	EmailOptedIn      bool       `json:"emailOptedIn"`
	SMSOptedIn        bool       `json:"smsOptedIn"`
	EmailContactCount int        `json:"emailContactCount"`
	PhoneContactCount int        `json:"phoneContactCount"`
	SMSContactCount   int        `json:"smsContactCount"`
	LastContactDate   *time.Time `json:"lastContactDate,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// FullName joins first and last name
func (c *Client) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// ClientFilter selects campaign recipients. Empty fields match any value.
type ClientFilter struct {
	ClientType   string `json:"clientType" validate:"omitempty,max=50"`
	ClientStatus string `json:"clientStatus" validate:"omitempty,max=50"`
	LeadSource   string `json:"leadSource" validate:"omitempty,max=100"`
	City         string `json:"city" validate:"omitempty,max=100"`
	State        string `json:"state" validate:"omitempty,max=50"`
}
