package stats

import "strings"

// Column names produced by the aggregator and understood by the merge engine.
const (
	Contact = "Contact"

	Messages         = "Messages"
	MessagesSent     = "Messages sent by you"
	MessagesReceived = "Messages sent by your contact"

	Characters         = "Characters"
	CharactersSent     = "Characters sent by you"
	CharactersReceived = "Characters sent by your contact"

	VoiceTime     = "Voice message time"
	VoiceSent     = "Your voice message time"
	VoiceReceived = "Contact voice message time"

	DelaySent     = "Your answer delay"
	DelayReceived = "Contact answer delay"

	CallTime = "Call time"
)

// Split ties a total column to its outgoing and incoming parts.
type Split struct {
	Total    string
	Sent     string
	Received string
}

// Splits lists every total that is derived from a sent/received pair.
var Splits = []Split{
	{Messages, MessagesSent, MessagesReceived},
	{Characters, CharactersSent, CharactersReceived},
	{VoiceTime, VoiceSent, VoiceReceived},
}

// Received lists the columns that only describe the contact's side.
var Received = []string{MessagesReceived, CharactersReceived, VoiceReceived, DelayReceived}

// IsDelay reports whether a column is averaged rather than summed when rows fold.
func IsDelay(category string) bool {
	return strings.Contains(strings.ToLower(category), "delay")
}
