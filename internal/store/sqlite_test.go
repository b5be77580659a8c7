package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerfunnel/api/internal/model"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	ctx := context.Background()
	s, err := NewSQLite(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { s.Close() })
	return s
}

func seedClients() []model.Client {
	return []model.Client{
		{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", City: "Austin", State: "TX",
			ClientType: "SELLER", ClientStatus: "LEAD", LeadSource: "Zillow", Active: true, EmailOptedIn: true},
		{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", City: "Dallas", State: "TX",
			ClientType: "BUYER", ClientStatus: "LEAD", Active: true, SMSOptedIn: true, Phone: "+15125550100"},
		{FirstName: "Alan", Email: "alan@example.com", City: "austin", State: "tx",
			ClientType: "SELLER", ClientStatus: "PROSPECT", Active: false},
	}
}

func TestSQLite_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.InsertClients(ctx, seedClients()))

	all, err := s.FindClients(ctx, model.ClientFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.NotZero(t, all[0].ID)
	assert.Equal(t, "Ada", all[0].FirstName)
	assert.True(t, all[0].EmailOptedIn)
	assert.False(t, all[0].SMSOptedIn)
	assert.False(t, all[2].Active)
	assert.False(t, all[0].CreatedAt.IsZero())
	assert.Nil(t, all[0].LastContactDate)
}

func TestSQLite_FindClientsFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.InsertClients(ctx, seedClients()))

	tests := []struct {
		name   string
		filter model.ClientFilter
		emails []string
	}{
		{name: "by type", filter: model.ClientFilter{ClientType: "SELLER"},
			emails: []string{"ada@example.com", "alan@example.com"}},
		{name: "city ignores case", filter: model.ClientFilter{City: "AUSTIN"},
			emails: []string{"ada@example.com", "alan@example.com"}},
		{name: "combined", filter: model.ClientFilter{ClientType: "SELLER", ClientStatus: "LEAD", State: "TX"},
			emails: []string{"ada@example.com"}},
		{name: "lead source", filter: model.ClientFilter{LeadSource: "Zillow"},
			emails: []string{"ada@example.com"}},
		{name: "no match", filter: model.ClientFilter{ClientType: "VENDOR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindClients(ctx, tt.filter)
			require.NoError(t, err)
			var emails []string
			for _, c := range got {
				emails = append(emails, c.Email)
			}
			assert.Equal(t, tt.emails, emails)
		})
	}
}

func TestSQLite_ExistsByEmailIgnoresCase(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.InsertClients(ctx, seedClients()[:1]))

	ok, err := s.ExistsByEmail(ctx, "ADA@Example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ExistsByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLite_InsertRejectsDuplicateEmailAtomically(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.InsertClients(ctx, seedClients()[:1]))

	err := s.InsertClients(ctx, []model.Client{
		{Email: "new@example.com"},
		{Email: "Ada@example.com"},
	})
	require.Error(t, err)

	ok, err := s.ExistsByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.False(t, ok, "failed batch must be rolled back")
}

func TestSQLite_RecordContact(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.InsertClients(ctx, seedClients()[:1]))

	all, err := s.FindClients(ctx, model.ClientFilter{})
	require.NoError(t, err)
	id := all[0].ID

	at := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordContact(ctx, id, model.ChannelEmail, at))
	require.NoError(t, s.RecordContact(ctx, id, model.ChannelEmail, at))
	require.NoError(t, s.RecordContact(ctx, id, model.ChannelSMS, at))

	all, err = s.FindClients(ctx, model.ClientFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, all[0].EmailContactCount)
	assert.Equal(t, 1, all[0].SMSContactCount)
	require.NotNil(t, all[0].LastContactDate)
	assert.True(t, at.Equal(*all[0].LastContactDate))

	assert.Error(t, s.RecordContact(ctx, id, model.Channel("fax"), at))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestOpen_SQLite(t *testing.T) {
	s, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.Ping(context.Background()))
}
