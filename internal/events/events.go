package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// TypeNoteSaved is emitted after a note is created or its content changes.
	TypeNoteSaved = "note.saved"

	// TypePackRequested is emitted when a user asks for a digest pack.
	TypePackRequested = "pack.requested"
)

// Event is an in-process notification that something happened to an
// owner's data. It carries no dependency on the job queue; handlers decide
// what work follows.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type constants
	Type string `json:"type"`

	// OwnerID is the user whose data changed
	OwnerID uuid.UUID `json:"owner_id"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NoteSavedEvent is the payload of a TypeNoteSaved event.
type NoteSavedEvent struct {
	NoteID uuid.UUID `json:"note_id"`
}

// PackRequestedEvent is the payload of a TypePackRequested event.
type PackRequestedEvent struct {
	RangeStart string `json:"range_start"`
	RangeEnd   string `json:"range_end"`
	Mode       string `json:"mode"`
}

// NewEvent creates an Event with the specified type, owner and payload.
func NewEvent(eventType string, owner uuid.UUID, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		OwnerID:   owner,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewNoteSavedEvent creates a TypeNoteSaved event for the owner's note.
func NewNoteSavedEvent(owner, noteID uuid.UUID) (*Event, error) {
	return NewEvent(TypeNoteSaved, owner, NoteSavedEvent{NoteID: noteID})
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *Event) error
}
