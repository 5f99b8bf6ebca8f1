// Package telemetry defines the typed event structs that flow over the
// WebSocket connection between melvind and its clients.
package telemetry

import "time"

// EventType identifies the kind of WebSocket event.
type EventType string

const (
	EventHeartbeat   EventType = "heartbeat"
	EventModeChange  EventType = "mode_change"
	EventFlightState EventType = "flight_state"
	EventTaskDone    EventType = "task_done"
	EventBeaconEvent EventType = "beacon_event"
	EventLog         EventType = "log"
)

// Event is the base envelope shared by every event type.
type Event struct {
	Type EventType `json:"type"`
	TS   string    `json:"ts"`
}

// Kind returns the event's discriminator, promoted onto every event type
// that embeds Event.
func (e Event) Kind() EventType {
	return e.Type
}

// Message is satisfied by every event type via its embedded Event field.
// internal/ws broadcasts only values implementing Message, so the hub
// can't be fed arbitrary JSON-able values.
type Message interface {
	Kind() EventType
}

// NowTS returns the current UTC time as an RFC 3339 nano string, matching the
// timestamp format used across all events.
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Heartbeat is sent periodically so clients can detect connectivity and
// monitor daemon uptime.
type Heartbeat struct {
	Event
	ModeSwitches  int64 `json:"mode_switches"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// ModeChange is emitted whenever the global-mode FSM transitions between
// InOrbit/ZOPrep/ZORetrieval/OrbitReturn.
type ModeChange struct {
	Event
	From string `json:"from"`
	To   string `json:"to"`
}

// FlightState is emitted whenever the flight computer observes a flight
// state transition (Deployment/Acquisition/Charge/Comms/Transition/Safe).
type FlightState struct {
	Event
	From    string  `json:"from"`
	To      string  `json:"to"`
	Battery float64 `json:"battery"`
}

// TaskDone reports completion of one scheduled task.
type TaskDone struct {
	Event
	Kind   string `json:"kind"`
	Failed bool   `json:"failed"`
}

// BeaconEvent reports a beacon controller sweep/submission transition.
type BeaconEvent struct {
	Event
	BeaconID int    `json:"beacon_id"`
	State    string `json:"state"`
}

// LogLine carries a human-readable log message at a severity level.
type LogLine struct {
	Event
	Level   string `json:"level"`
	Message string `json:"message"`
}
