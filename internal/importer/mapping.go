package importer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sellerfunnel/api/internal/model"
)

// Recognised header names.
const (
	ColumnFirstName         = "first name"
	ColumnLastName          = "last name"
	ColumnEmail             = "email"
	ColumnPhone             = "phone"
	ColumnClientType        = "client type"
	ColumnClientStatus      = "client status"
	ColumnLeadSource        = "lead source"
	ColumnCompany           = "company"
	ColumnJobTitle          = "job title"
	ColumnAddress           = "address"
	ColumnCity              = "city"
	ColumnState             = "state"
	ColumnZipCode           = "zip code"
	ColumnNotes             = "notes"
	ColumnActive            = "active"
	ColumnEmailOptedIn      = "email opted in"
	ColumnSMSOptedIn        = "sms opted in"
	ColumnDateAdded         = "date added"
	ColumnEmailContactCount = "email contact count"
	ColumnPhoneContactCount = "phone contact count"
)

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"1/2/2006",
	"01-02-06",
}

// toClient maps a row onto a client. Unparseable optional values fall back to
// their defaults rather than failing the row.
func toClient(row Row, now time.Time) model.Client {
	c := model.Client{
		FirstName:         row.Get(ColumnFirstName),
		LastName:          row.Get(ColumnLastName),
		Email:             row.Get(ColumnEmail),
		Phone:             row.Get(ColumnPhone),
		ClientType:        strings.ToUpper(row.Get(ColumnClientType)),
		ClientStatus:      strings.ToUpper(row.Get(ColumnClientStatus)),
		LeadSource:        row.Get(ColumnLeadSource),
		CompanyName:       row.Get(ColumnCompany),
		JobTitle:          row.Get(ColumnJobTitle),
		Address:           row.Get(ColumnAddress),
		City:              row.Get(ColumnCity),
		State:             row.Get(ColumnState),
		ZipCode:           row.Get(ColumnZipCode),
		Notes:             row.Get(ColumnNotes),
		Active:            true,
		EmailContactCount: parseCount(row.Get(ColumnEmailContactCount)),
		PhoneContactCount: parseCount(row.Get(ColumnPhoneContactCount)),
		CreatedAt:         now,
	}
	if v := row.Get(ColumnActive); v != "" {
		c.Active = parseBool(v)
	}
	c.EmailOptedIn = parseBool(row.Get(ColumnEmailOptedIn))
	c.SMSOptedIn = parseBool(row.Get(ColumnSMSOptedIn))
	if t, ok := parseDate(row.Get(ColumnDateAdded)); ok {
		c.CreatedAt = t
	}
	return c
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "1", "y":
		return true
	}
	return false
}

// maxCount is the largest contact count the store's integer columns hold.
const maxCount = math.MaxInt32

func parseCount(v string) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= maxCount {
		return n
	}
	// Spreadsheet numbers sometimes arrive as "3.0".
	if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= maxCount {
		return int(f)
	}
	return 0
}

func parseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
