package model

import (
	"fmt"
	"time"
)

type BotID string

type BotStatus int

const (
	BotStatusUnknown BotStatus = iota
	BotStatusInitializing
	BotStatusActive
	BotStatusDegraded
	BotStatusUnreachable
)

var botStatusNames = map[BotStatus]string{
	BotStatusUnknown:      "unknown",
	BotStatusInitializing: "initializing",
	BotStatusActive:       "active",
	BotStatusDegraded:     "degraded",
	BotStatusUnreachable:  "unreachable",
}

func (s BotStatus) String() string {
	if name, ok := botStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("BotStatus(%d)", int(s))
}

func (s BotStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *BotStatus) UnmarshalText(text []byte) error {
	for status, name := range botStatusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown bot status: %q", text)
}

// BotCredentials is a row of the credential store. Token must never be logged,
// use Fingerprint when a log line needs to correlate tokens.
type BotCredentials struct {
	ID        BotID     `db:"ID" json:"id"`
	Token     string    `db:"Token" json:"-"`
	Name      string    `db:"Name" json:"name"`
	Active    bool      `db:"Active" json:"active"`
	CreatedAt time.Time `db:"CreatedAt" json:"createdAt"`
}

type Location struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

type AccountInfo struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	URI              string   `json:"uri"`
	Icon             string   `json:"icon,omitempty"`
	Background       string   `json:"background,omitempty"`
	Category         string   `json:"category,omitempty"`
	Subcategory      string   `json:"subcategory,omitempty"`
	Country          string   `json:"country,omitempty"`
	Location         Location `json:"location"`
	Webhook          string   `json:"webhook,omitempty"`
	EventTypes       []string `json:"eventTypes,omitempty"`
	SubscribersCount int      `json:"subscribersCount"`
}

// BotState is a point-in-time copy of what the manager knows about a bot.
type BotState struct {
	ID          BotID          `json:"id"`
	Name        string         `json:"name,omitempty"`
	Status      BotStatus      `json:"status"`
	CheckedAt   *time.Time     `json:"checkedAt,omitempty"`
	LastError   string         `json:"lastError,omitempty"`
	Cause       error          `json:"-"`
	Account     *AccountInfo   `json:"account,omitempty"`
	LastEventAt *time.Time     `json:"lastEventAt,omitempty"`
	EventCounts map[string]int `json:"eventCounts,omitempty"`
}
