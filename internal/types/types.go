package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Status is the lifecycle bucket a campaign is published under.
type Status string

const (
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
	StatusArchived Status = "archived"
)

// Statuses lists every bucket in output order.
var Statuses = []Status{StatusActive, StatusEnded, StatusArchived}

// Valid reports whether s names one of the three buckets.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusEnded, StatusArchived:
		return true
	}
	return false
}

// Urgency represents how pressing a campaign's funding need is
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// Text is a string that also accepts JSON numbers and null when decoding.
// Documents edited by hand or by the admin page store patient age as a number.
type Text string

// UnmarshalJSON implements json.Unmarshaler for Text.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("text value must be a string or number: %w", err)
	}
	// 17.0 is how some editors serialise integral ages
	if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
		*t = Text(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*t = Text(n.String())
	return nil
}

// PatientDetails describes the beneficiary of a campaign.
type PatientDetails struct {
	Name      string `json:"name"`
	Age       Text   `json:"age,omitempty"`
	Location  string `json:"location,omitempty"`
	Condition string `json:"condition,omitempty"`
	Hospital  string `json:"hospital,omitempty"`
	Doctor    string `json:"doctor,omitempty"`
}

// TimelineEntry is one dated event in a campaign's history.
type TimelineEntry struct {
	Date        string `json:"date"`
	Event       string `json:"event"`
	Description string `json:"description"`
}

// Key returns the (date, event) identity used for deduplication.
func (e TimelineEntry) Key() [2]string {
	return [2]string{e.Date, e.Event}
}

// Campaign is the canonical published document for one fundraising campaign.
type Campaign struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	ShortDescription string          `json:"shortDescription"`
	FullDescription  string          `json:"fullDescription"`
	Image            string          `json:"image"`
	TargetAmount     int64           `json:"targetAmount"`
	RaisedAmount     int64           `json:"raisedAmount"`
	Currency         string          `json:"currency"`
	Status           Status          `json:"status"`
	Urgency          Urgency         `json:"urgency"`
	Category         string          `json:"category"`
	PatientDetails   *PatientDetails `json:"patientDetails,omitempty"`
	Timeline         []TimelineEntry `json:"timeline,omitempty"`
	CreatedDate      string          `json:"createdDate"`
	LastUpdated      string          `json:"lastUpdated"`
	Tags             []string        `json:"tags"`
}

// Filename returns the document name the campaign is stored under.
func (c *Campaign) Filename() string {
	return c.ID + ".json"
}

// Manifest indexes the documents held by one bucket directory.
type Manifest struct {
	Campaigns   []string `json:"campaigns"`
	LastUpdated string   `json:"lastUpdated"`
}
