package chat

import "time"

// Message is a single conversational turn as stored by the client.
// Timestamps are assigned by the client at send/receive time and travel
// as RFC 3339 strings; the server never rewrites them.
type Message struct {
	Text      string `json:"text"`
	IsUser    bool   `json:"isUser"`
	Timestamp string `json:"timestamp,omitempty"`
}

// timestampLayouts covers the formats browsers actually emit. The first
// entry is what new Date().toISOString() produces.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Time parses the message timestamp. ok is false when the timestamp is
// missing or unparseable; such messages cannot be assigned to a
// calendar day.
func (m Message) Time() (time.Time, bool) {
	if m.Timestamp == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, m.Timestamp); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
