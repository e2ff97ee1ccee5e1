package events

import (
	"encoding/json"
	"fmt"
)

// Event types carried on session channels.
const (
	TypeSessionMessage = "session_message"
)

// SessionChannel is the Pub/Sub channel both participants of a session share.
func SessionChannel(code string) string {
	return fmt.Sprintf("channel:session:%s", code)
}

// Event is the envelope published via Pub/Sub.
type Event struct {
	Type    string          `json:"event"`
	Sender  string          `json:"sender"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an envelope from sender.
func NewEvent(eventType, sender string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	data, err := json.Marshal(Event{Type: eventType, Sender: sender, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}
