package chat

import (
	"context"
)

// EventKind tags the variants of Event.
type EventKind int

const (
	// EventStart carries the anchor for the assistant message being written.
	EventStart EventKind = iota + 1
	// EventDelta carries a fragment of answer text.
	EventDelta
	// EventError carries an apology shown in place of the answer.
	EventError
	// EventEnd is always the last event of a turn that was not canceled.
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventDelta:
		return "delta"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is one element of a turn's output. Only the fields of its Kind are set.
type Event struct {
	Kind EventKind

	// Start
	ChatID        string
	TurnID        string
	UserMessageID uint
	Sources       []string

	// Delta and Error
	Text string

	// Error
	ErrorKind ErrorType
}

// Stream is the consumer side of a running turn.
type Stream struct {
	chatID string
	turnID string
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
}

func newStream(chatID, turnID string, cancel context.CancelFunc) *Stream {
	return &Stream{
		chatID: chatID,
		turnID: turnID,
		events: make(chan Event, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// ChatID is the chat the turn writes to; new chats get a generated ID.
func (s *Stream) ChatID() string { return s.chatID }

// TurnID identifies the assistant message anchor of this turn.
func (s *Stream) TurnID() string { return s.turnID }

// Events is closed once the turn has finished.
func (s *Stream) Events() <-chan Event { return s.events }

// Close cancels the turn and blocks until it has released every resource.
// No assistant message is persisted for a turn closed before it completed.
func (s *Stream) Close() {
	s.cancel()
	<-s.done
}

// Done is closed after the turn goroutine has exited.
func (s *Stream) Done() <-chan struct{} { return s.done }

func (s *Stream) emit(ctx context.Context, ev Event) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
