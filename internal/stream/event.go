// Package stream implements the live log tail client: a long-lived
// server-push connection whose ordered events fold into a bounded text
// buffer. Transport concerns (dial, reconnect, teardown) live in Manager;
// event application lives in Session so the fold is testable without a
// connection.
package stream

import "encoding/json"

// EventKind tags the heterogeneous server-push events.
type EventKind string

// Server-push event kinds, in the wire's own vocabulary.
const (
	EventInit   EventKind = "init"
	EventAppend EventKind = "append"
	EventReset  EventKind = "reset"
	EventError  EventKind = "error"
	EventPing   EventKind = "ping"
)

// Event is one decoded server-push event. File and Content are set for
// init/append/reset, Message for error events.
type Event struct {
	Kind    EventKind
	File    string
	Content string
	Message string
}

// decodeEvent turns a raw SSE frame into an Event. Unknown event names map to
// EventPing so the fold ignores them; malformed payloads decode to an empty
// payload, matching the server's contract that payload fields are optional.
func decodeEvent(name string, data []byte) Event {
	var payload struct {
		File    string `json:"file"`
		Content string `json:"content"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(data, &payload)

	kind := EventKind(name)
	switch kind {
	case EventInit, EventAppend, EventReset:
		return Event{Kind: kind, File: payload.File, Content: payload.Content}
	case EventError:
		return Event{Kind: EventError, Message: payload.Error}
	default:
		return Event{Kind: EventPing}
	}
}
