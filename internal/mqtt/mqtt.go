// Package mqtt publishes gate notifications and events to an MQTT broker,
// with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TopicNotify carries the plain-text notification lines.
const TopicNotify = "gate/entry/notify"

// TopicEvents carries one JSON access event per detection.
const TopicEvents = "gate/entry/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "gate/entry/system"

// Publisher publishes to MQTT.
type Publisher interface {
	// SendLine publishes one notification line. Implements link.Sender.
	SendLine(text string) error

	// Publish sends an access event.
	// Returns error if publishing fails (should not crash the process).
	Publish(event AccessEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// AccessEvent describes one detection that reached a decision point.
type AccessEvent struct {
	ID        string
	Timestamp time.Time
	Class     string // gate.Class
	HeightCM  int
	Outcome   string // GRANTED, REJECTED, TIMEOUT, NONE
	User      string
	Count     uint64
}

// NewAccessEvent stamps an event with a fresh random ID.
func NewAccessEvent(ts time.Time, class string, heightCM int, outcome, user string, count uint64) AccessEvent {
	return AccessEvent{
		ID:        uuid.NewString(),
		Timestamp: ts,
		Class:     class,
		HeightCM:  heightCM,
		Outcome:   outcome,
		User:      user,
		Count:     count,
	}
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the access event message structure.
type Payload struct {
	Access AccessPayload `json:"access"`
}

// AccessPayload contains the access event details.
type AccessPayload struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Class     string `json:"class"`
	HeightCM  int    `json:"height_cm"`
	Outcome   string `json:"outcome"`
	User      string `json:"user,omitempty"`
	Count     uint64 `json:"people_count"`
}

// FormatPayload creates the JSON payload for an access event.
func FormatPayload(event AccessEvent) ([]byte, error) {
	payload := Payload{
		Access: AccessPayload{
			ID:        event.ID,
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Class:     event.Class,
			HeightCM:  event.HeightCM,
			Outcome:   event.Outcome,
			User:      event.User,
			Count:     event.Count,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// willPayload is registered as the last will: the broker publishes it on
// TopicSystem if the gate drops off without a clean disconnect.
func willPayload() string {
	b, _ := json.Marshal(SystemPayload{System: SystemPayloadInner{Event: "OFFLINE", Reason: "MQTT_DISCONNECT"}})
	return string(b)
}
