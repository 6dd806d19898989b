// Package model defines the domain types shared across the application.
package model

import (
	"strings"
	"time"
)

// Platform identifies the messaging service an archive was exported from.
type Platform string

const (
	Discord   Platform = "Discord"
	Instagram Platform = "Instagram"
	Snapchat  Platform = "SnapChat"
	WhatsApp  Platform = "WhatsApp"
)

// Platforms lists every supported platform in report order.
var Platforms = []Platform{Discord, Instagram, Snapchat, WhatsApp}

// ParsePlatform matches a platform name case-insensitively.
func ParsePlatform(s string) (Platform, bool) {
	for _, p := range Platforms {
		if strings.EqualFold(string(p), s) {
			return p, true
		}
	}
	return "", false
}

// Direction tells whether the account owner sent or received a message.
type Direction uint8

const (
	Outgoing Direction = iota
	Incoming
)

func (d Direction) String() string {
	if d == Incoming {
		return "incoming"
	}
	return "outgoing"
}

// MessageEvent is one message as seen by the statistics aggregator.
type MessageEvent struct {
	Platform  Platform
	Contact   string
	Timestamp time.Time
	Direction Direction
	Chars     int

	// Voice is nil when the message carries no voice clip.
	Voice *time.Duration
}

// HalfKind marks a session half-event as the start or the end of a call.
type HalfKind uint8

const (
	Start HalfKind = iota
	End
)

// SessionHalf is a join or leave event correlated by ConnectionID.
type SessionHalf struct {
	ConnectionID string
	ChannelID    string
	Kind         HalfKind
	Timestamp    time.Time
}

// Record is the canonical per-message shape handed to export and search.
type Record struct {
	Platform  Platform
	Contact   string
	Timestamp time.Time
	Author    string
	Message   string
	MediaRefs []string
}

// Identity describes the account that produced an archive.
type Identity struct {
	Platform  Platform
	Name      string
	CreatedAt time.Time // zero when the platform does not report it
}

// Conversation groups the events and records exchanged with one contact.
type Conversation struct {
	Contact string
	Events  []MessageEvent
	Records []Record
}

// Extraction is everything an adapter decoded from one package.
type Extraction struct {
	Identity      Identity
	Conversations []Conversation
	Sessions      []SessionHalf

	// ChannelContacts maps session channel ids to contact names.
	ChannelContacts map[string]string

	// OneSided is set for platforms that only export the owner's messages.
	OneSided bool

	// Voice is set when voice clip durations were read.
	Voice bool
	// Calls is set when voice channel sessions were read.
	Calls bool

	// Skipped counts malformed records dropped during extraction.
	Skipped int
}
