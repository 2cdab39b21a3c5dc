package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for published events.
const (
	EventTypeReactionAdded         = "reaction.added"
	EventTypeReactionRemoved       = "reaction.removed"
	EventTypeReactionReasonUpdated = "reaction.reason_updated"
	EventTypeImageGenerated        = "paper.image_generated"
)

// Event is a domain event published to the event stream.
type Event struct {
	EventID   string
	EventType string
	Source    Source
	PaperID   string
	Payload   []byte
	CreatedAt time.Time
}

// NewEvent creates a new event with the given parameters.
// The payload is JSON-serialized automatically.
func NewEvent(eventType string, source Source, paperID string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Source:    source,
		PaperID:   paperID,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Key returns the partition key for the event: all events of one paper share a partition.
func (e *Event) Key() string {
	return string(e.Source) + ":" + e.PaperID
}

// ReactionPayload is the payload for reaction.* events.
type ReactionPayload struct {
	UserID     string `json:"user_id"`
	Reason     string `json:"reason,omitempty"`
	Count      int    `json:"count"`
	IsTopPaper bool   `json:"is_top_paper"`
}

// ImageGeneratedPayload is the payload for paper.image_generated events.
type ImageGeneratedPayload struct {
	ImageURL string `json:"image_url"`
	Prompt   string `json:"prompt"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}
