package orchestrator

// EventType enumerates the wire-visible stages of one response flow.
type EventType string

const (
	EventSessionID    EventType = "session_id"
	EventTyping       EventType = "typing"
	EventMessage      EventType = "message"
	EventMessageChunk EventType = "message_chunk"
	EventWaitingStart EventType = "waiting_start"
	EventWaitingEnd   EventType = "waiting_end"
	EventError        EventType = "error"
	EventDone         EventType = "done"
)

// Event is one unit of the orchestrator's output stream. Events are consumed
// by the transport adapter and never stored.
type Event struct {
	Type EventType `json:"type"`
	Data string    `json:"data"`
}

// Spoken reports whether the event payload is part of the assistant's reply.
// The transport concatenates spoken payloads, in order, into the complete
// response appended to the session when the stream ends.
func (e Event) Spoken() bool {
	return e.Type == EventMessage || e.Type == EventMessageChunk
}
