package assistant

import "encoding/json"

// EventType tags one event in the stream sent to the caller.
type EventType string

const (
	// EventStatus is a human-readable progress line.
	EventStatus EventType = "status"
	// EventText is incremental model prose, forwarded as it arrives.
	EventText EventType = "text"
	// EventWarning carries one validator message.
	EventWarning EventType = "warning"
	// EventAction carries an executed (or pending) action with its result.
	// Action events are the authoritative record of side effects; text is
	// narration only.
	EventAction EventType = "action"
	// EventResult carries the extracted tree plan from generation mode.
	EventResult EventType = "result"
	// EventError reports a failure.
	EventError EventType = "error"
	// EventDone terminates the stream. Always the last event.
	EventDone EventType = "done"
)

// Event is one envelope in the caller-facing stream.
type Event struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
}

// EventSink receives stream events. A send error aborts the run at the next
// suspension point (typically the client disconnected).
type EventSink interface {
	Send(ev Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ev Event) error

// Send calls f(ev).
func (f EventSinkFunc) Send(ev Event) error { return f(ev) }

// actionEnvelope is the payload of an EventAction event.
type actionEnvelope struct {
	ActionType string          `json:"action_type"`
	Data       json.RawMessage `json:"data"`
	Result     Result          `json:"result"`
}
