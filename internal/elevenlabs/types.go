package elevenlabs

import (
	"bytes"
	"encoding/json"
	"time"
)

// Message is one turn of a conversation transcript.
type Message struct {
	Role           string   `json:"role"` // "agent" or "user"
	Message        string   `json:"message"`
	TimeInCallSecs *float64 `json:"time_in_call_secs,omitempty"`
}

// ConversationSummary is an entry of the conversation list endpoint.
type ConversationSummary struct {
	ConversationID    string `json:"conversation_id"`
	AgentID           string `json:"agent_id"`
	Status            string `json:"status"`
	StartTime         string `json:"start_time,omitempty"`
	StartTimeUnixSecs int64  `json:"start_time_unix_secs,omitempty"`
	CallDurationSecs  int    `json:"call_duration_secs,omitempty"`
}

// Started resolves the start time from either the RFC 3339 or the unix-seconds field.
func (s ConversationSummary) Started() *time.Time {
	return resolveTime(s.StartTime, s.StartTimeUnixSecs)
}

type Metadata struct {
	StartTimeUnixSecs int64 `json:"start_time_unix_secs,omitempty"`
	CallDurationSecs  int   `json:"call_duration_secs,omitempty"`
}

// Conversation is a single conversation with its full transcript.
type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	AgentID        string    `json:"agent_id"`
	Status         string    `json:"status"`
	Transcript     []Message `json:"transcript"`
	Metadata       *Metadata `json:"metadata,omitempty"`
	StartTime      string    `json:"start_time,omitempty"`
	EndTime        string    `json:"end_time,omitempty"`

	raw json.RawMessage
}

type conversationList struct {
	Conversations []ConversationSummary `json:"conversations"`
}

func (c *Conversation) UnmarshalJSON(data []byte) error {
	type alias Conversation
	aux := struct {
		*alias
		Transcript json.RawMessage `json:"transcript"`
	}{alias: (*alias)(c)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	c.Transcript = nil
	c.raw = nil
	if len(aux.Transcript) == 0 || bytes.Equal(aux.Transcript, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(aux.Transcript, &c.Transcript); err != nil {
		return err
	}
	c.raw = append(json.RawMessage(nil), aux.Transcript...)
	return nil
}

// RawTranscript is the transcript exactly as the API returned it, or nil when absent.
func (c *Conversation) RawTranscript() json.RawMessage {
	if c.raw != nil {
		return c.raw
	}
	if c.Transcript == nil {
		return nil
	}
	b, err := json.Marshal(c.Transcript)
	if err != nil {
		return nil
	}
	return b
}

func (c *Conversation) Started() *time.Time {
	var unix int64
	if c.Metadata != nil {
		unix = c.Metadata.StartTimeUnixSecs
	}
	return resolveTime(c.StartTime, unix)
}

// Ended prefers an explicit end_time and falls back to start plus call duration.
func (c *Conversation) Ended() *time.Time {
	if t := resolveTime(c.EndTime, 0); t != nil {
		return t
	}
	if c.Metadata == nil || c.Metadata.CallDurationSecs <= 0 {
		return nil
	}
	start := c.Started()
	if start == nil {
		return nil
	}
	end := start.Add(time.Duration(c.Metadata.CallDurationSecs) * time.Second)
	return &end
}

func resolveTime(rfc string, unix int64) *time.Time {
	if rfc != "" {
		if t, err := time.Parse(time.RFC3339, rfc); err == nil {
			t = t.UTC()
			return &t
		}
	}
	if unix > 0 {
		t := time.Unix(unix, 0).UTC()
		return &t
	}
	return nil
}
