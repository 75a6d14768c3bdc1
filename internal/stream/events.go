package stream

import "context"

// EventType tags what a pipeline step produced.
type EventType string

const (
	EventCardsDrawn     EventType = "cards-drawn"
	EventAnalysis       EventType = "analysis-produced"
	EventInterpretation EventType = "interpretation-produced"
	EventFinalResponse  EventType = "final-response"
	EventChatDelta      EventType = "chat-delta"
	EventError          EventType = "error"
	EventDone           EventType = "done"
)

// Event is one framed message on a reading or chat stream. Content is
// whatever the step produced; Role is the speaker from the client's view.
type Event struct {
	Type    EventType `json:"type"`
	Content any       `json:"content,omitempty"`
	Role    string    `json:"role"`
}

func Done() Event {
	return Event{Type: EventDone, Role: "system"}
}

// Stream is a strictly ordered, single-producer event channel. The producer
// closes it after the done sentinel; the consumer cancels by context.
type Stream struct {
	ch chan Event
}

func New(buffer int) *Stream {
	if buffer <= 0 {
		buffer = 8
	}
	return &Stream{ch: make(chan Event, buffer)}
}

// Events is the consumer side. It is closed after the terminal sentinel.
func (s *Stream) Events() <-chan Event {
	return s.ch
}

// Send delivers one event in order. It returns false once ctx is cancelled,
// which the producer treats as the caller hanging up.
func (s *Stream) Send(ctx context.Context, ev Event) bool {
	select {
	case <-ctx.Done():
		return false
	case s.ch <- ev:
		return true
	}
}

// Close ends the stream. The producer calls it exactly once, after the
// sentinel (or after a cancelled Send).
func (s *Stream) Close() {
	close(s.ch)
}
