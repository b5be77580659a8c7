package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerfunnel/api/internal/config"
)

func newTestSMSClient(t *testing.T, handler http.HandlerFunc, mutate func(*config.SMSConfig)) *SMSClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.SMSConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		From:       "+15125550000",
		BaseURL:    srv.URL,
	}
	if mutate != nil {
		mutate(cfg)
	}
	c, err := NewSMSClient(cfg)
	require.NoError(t, err)
	return c
}

func TestSMSClient_Send(t *testing.T) {
	c := newTestSMSClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "token", pass)

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "+15125550100", r.PostForm.Get("To"))
		assert.Equal(t, "+15125550000", r.PostForm.Get("From"))
		assert.Equal(t, "Hi Ada", r.PostForm.Get("Body"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}, nil)

	sid, err := c.Send(context.Background(), "+15125550100", "Hi Ada")
	require.NoError(t, err)
	assert.Equal(t, "SM1", sid)
}

func TestSMSClient_UsesMessagingService(t *testing.T) {
	c := newTestSMSClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "MG9", r.PostForm.Get("MessagingServiceSid"))
		assert.Empty(t, r.PostForm.Get("From"))
		assert.Equal(t, "https://hooks.example.com/sms", r.PostForm.Get("StatusCallback"))
		_, _ = w.Write([]byte(`{"sid":"SM2","status":"accepted"}`))
	}, func(cfg *config.SMSConfig) {
		cfg.MessagingServiceSID = "MG9"
		cfg.StatusCallback = "https://hooks.example.com/sms"
	})

	_, err := c.Send(context.Background(), "+15125550100", "Hi")
	require.NoError(t, err)
}

func TestSMSClient_GatewayError(t *testing.T) {
	c := newTestSMSClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`))
	}, nil)

	_, err := c.Send(context.Background(), "+1000", "Hi")
	require.Error(t, err)

	var apiErr *SMSError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 21211, apiErr.Code)
	assert.Contains(t, err.Error(), "Invalid 'To' Phone Number")
}

func TestSMSClient_FailedStatus(t *testing.T) {
	c := newTestSMSClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sid":"SM3","status":"failed","error_message":"carrier rejected"}`))
	}, nil)

	_, err := c.Send(context.Background(), "+15125550100", "Hi")
	assert.ErrorContains(t, err, "carrier rejected")
}

func TestNewSMSClient_RequiresCredentials(t *testing.T) {
	_, err := NewSMSClient(&config.SMSConfig{})
	assert.ErrorIs(t, err, ErrSMSNotConfigured)

	_, err = NewSMSClient(&config.SMSConfig{AccountSID: "AC", AuthToken: "t"})
	assert.ErrorIs(t, err, ErrSMSNotConfigured)
}
