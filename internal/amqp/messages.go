package amqp

import (
	"encoding/json"
	"time"

	"ledger/internal/core"
)

// Event names double as routing keys on the topic exchange.
const (
	EventMovementCreated = "movement.created"
	EventMovementUpdated = "movement.updated"
	EventMovementDeleted = "movement.deleted"
)

// MovementEvent announces a change to a movement. Deleted events carry only
// the id.
type MovementEvent struct {
	Event     string    `json:"event"`
	ID        int64     `json:"id"`
	Type      string    `json:"type,omitempty"`
	Concept   string    `json:"concept,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Date      string    `json:"date,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMovementEvent builds an event for m.
func NewMovementEvent(event string, m core.Movement) *MovementEvent {
	return &MovementEvent{
		Event:     event,
		ID:        m.ID,
		Type:      m.Type.String(),
		Concept:   m.Concept,
		Amount:    m.Amount.String(),
		Date:      m.Date.String(),
		Timestamp: time.Now().UTC(),
	}
}

// NewDeletedEvent builds the event for a removed movement.
func NewDeletedEvent(id int64) *MovementEvent {
	return &MovementEvent{
		Event:     EventMovementDeleted,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *MovementEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MovementEventFromJSON decodes an event published by this service.
func MovementEventFromJSON(data []byte) (*MovementEvent, error) {
	var msg MovementEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
