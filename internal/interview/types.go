package interview

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by stores when no matching interview row exists.
var ErrNotFound = errors.New("interview not found")

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusTranscribed Status = "transcribed"
	StatusAnalyzed    Status = "analyzed"
)

// TypeDiscovery is the interview type assigned to conversations ingested by sync.
const TypeDiscovery = "discovery"

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusTranscribed, StatusAnalyzed:
		return true
	}
	return false
}

// Pending reports whether the interview has not produced a transcript yet.
func (s Status) Pending() bool {
	return s == StatusScheduled || s == StatusInProgress
}

type Stakeholder struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Role              *string   `json:"role,omitempty"`
	Department        *string   `json:"department,omitempty"`
	Email             *string   `json:"email,omitempty"`
	InterviewPriority int       `json:"interview_priority"`
}

// StakeholderRef is either no stakeholder or exactly one. Stores resolve it once
// from the joined row; consumers only ever call Get.
type StakeholderRef struct {
	s *Stakeholder
}

func NoStakeholder() StakeholderRef { return StakeholderRef{} }

func OneStakeholder(s Stakeholder) StakeholderRef { return StakeholderRef{s: &s} }

func (r StakeholderRef) Get() (Stakeholder, bool) {
	if r.s == nil {
		return Stakeholder{}, false
	}
	return *r.s, true
}

// MarshalJSON renders the ref as the stakeholder object or null.
func (r StakeholderRef) MarshalJSON() ([]byte, error) {
	if r.s == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.s)
}

type Interview struct {
	ID              uuid.UUID       `json:"id"`
	ProjectID       *uuid.UUID      `json:"project_id"`
	Stakeholder     StakeholderRef  `json:"stakeholder"`
	ConversationID  *string         `json:"elevenlabs_conversation_id"`
	AgentID         *string         `json:"elevenlabs_agent_id"`
	InterviewURL    *string         `json:"interview_url"`
	InterviewType   *string         `json:"interview_type"`
	Status          Status          `json:"status"`
	ScheduledAt     *time.Time      `json:"scheduled_at"`
	StartedAt       *time.Time      `json:"started_at"`
	EndedAt         *time.Time      `json:"ended_at"`
	DurationSeconds *int            `json:"duration_seconds"`
	TranscriptRaw   json.RawMessage `json:"transcript_raw"`
	TranscriptText  *string         `json:"transcript_text"`
	AnalysisSummary *string         `json:"analysis_summary"`
	KeyQuotes       json.RawMessage `json:"key_quotes"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Transcript returns the formatted transcript text, or "" when none is stored.
func (i Interview) Transcript() string {
	if i.TranscriptText == nil {
		return ""
	}
	return *i.TranscriptText
}

// TranscriptWrite carries everything sync writes when a conversation lands on a record.
type TranscriptWrite struct {
	ConversationID string
	AgentID        string
	Raw            json.RawMessage
	Text           string
	StartedAt      *time.Time
	EndedAt        *time.Time
}

// DurationSeconds derives the call length from the start and end timestamps.
func (w TranscriptWrite) DurationSeconds() *int {
	if w.StartedAt == nil || w.EndedAt == nil || w.EndedAt.Before(*w.StartedAt) {
		return nil
	}
	d := int(w.EndedAt.Sub(*w.StartedAt).Seconds())
	return &d
}
