package models

import (
	"encoding/json"
	"time"
)

// EventType categorizes events in the system.
type EventType string

const (
	// Run events
	EventTypeRunStarted   EventType = "run.started"
	EventTypeRunApproved  EventType = "run.approved"
	EventTypeRunExhausted EventType = "run.exhausted"
	EventTypeRunFailed    EventType = "run.failed"

	// Round events
	EventTypeRoundProposed EventType = "round.proposed"
	EventTypeRoundReviewed EventType = "round.reviewed"

	// Pipeline events
	EventTypeMetadataEnriched EventType = "metadata.enriched"
	EventTypeMetadataDefault  EventType = "metadata.default"
	EventTypeVideoRendered    EventType = "video.rendered"
	EventTypeVideoUploaded    EventType = "video.uploaded"

	// System events
	EventTypeError   EventType = "error"
	EventTypeWarning EventType = "warning"
)

// EntityType identifies the type of entity an event relates to.
type EntityType string

const (
	EntityTypeRun    EntityType = "run"
	EntityTypeAgent  EntityType = "agent"
	EntityTypeSystem EntityType = "system"
)

// Event represents an append-only log entry.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// EntityType identifies what kind of entity this event relates to.
	EntityType EntityType `json:"entity_type"`

	// EntityID is the ID of the related entity.
	EntityID string `json:"entity_id"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Metadata contains additional context.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RoundReviewedPayload is the payload for round.reviewed events.
type RoundReviewedPayload struct {
	Iteration int            `json:"iteration"`
	Status    JudgmentStatus `json:"status"`
	Score     int            `json:"score"`
	Feedback  string         `json:"feedback,omitempty"`
}

// RoundProposedPayload is the payload for round.proposed events.
type RoundProposedPayload struct {
	Iteration      int  `json:"iteration"`
	CandidateChars int  `json:"candidate_chars"`
	Revision       bool `json:"revision"`
}

// RunFinishedPayload is the payload for terminal run events.
type RunFinishedPayload struct {
	Status     RunStatus `json:"status"`
	Attempts   int       `json:"attempts"`
	FinalScore int       `json:"final_score,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// ErrorPayload is the payload for error events.
type ErrorPayload struct {
	Error   string `json:"error"`
	Context string `json:"context,omitempty"`
}
