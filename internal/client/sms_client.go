package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sellerfunnel/api/internal/config"
)

// SMSSender delivers a text message and returns the gateway message id.
type SMSSender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

var ErrSMSNotConfigured = errors.New("SMS gateway configuration incomplete")

// SMSClient implements SMSSender against the Twilio Messages REST API or any
// gateway speaking the same protocol.
type SMSClient struct {
	httpClient          *http.Client
	baseURL             string
	accountSID          string
	authToken           string
	from                string
	messagingServiceSID string
	statusCallback      string
}

// SMSMessage is the subset of the gateway's message resource we read.
type SMSMessage struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// SMSError is the gateway's error body.
type SMSError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func (e *SMSError) Error() string {
	return fmt.Sprintf("sms gateway error %d (status %d): %s", e.Code, e.Status, e.Message)
}

// NewSMSClient creates a new SMS gateway client
func NewSMSClient(cfg *config.SMSConfig) (*SMSClient, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, ErrSMSNotConfigured
	}
	if cfg.From == "" && cfg.MessagingServiceSID == "" {
		return nil, fmt.Errorf("%w: sender number or messaging service required", ErrSMSNotConfigured)
	}
	return &SMSClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:             strings.TrimRight(cfg.BaseURL, "/"),
		accountSID:          cfg.AccountSID,
		authToken:           cfg.AuthToken,
		from:                cfg.From,
		messagingServiceSID: cfg.MessagingServiceSID,
		statusCallback:      cfg.StatusCallback,
	}, nil
}

// Send posts one message. to must already be a normalized phone number.
func (c *SMSClient) Send(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("Body", body)
	if c.messagingServiceSID != "" {
		form.Set("MessagingServiceSid", c.messagingServiceSID)
	} else {
		form.Set("From", c.from)
	}
	if c.statusCallback != "" {
		form.Set("StatusCallback", c.statusCallback)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &SMSError{Status: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return "", apiErr
	}

	var msg SMSMessage
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if msg.Status == "failed" || msg.Status == "undelivered" {
		return msg.SID, fmt.Errorf("message %s %s: %s", msg.SID, msg.Status, msg.ErrorMessage)
	}
	return msg.SID, nil
}
