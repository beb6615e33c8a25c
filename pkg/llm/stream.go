package llm

// StreamEventKind discriminates the variants of a StreamEvent.
type StreamEventKind int

const (
	// EventContent carries a delta of the final answer text.
	EventContent StreamEventKind = iota
	// EventThinking carries a delta from the model's reasoning side-channel.
	// Thinking deltas are forwarded to clients but never persisted.
	EventThinking
	// EventDone marks a successfully completed stream.
	EventDone
	// EventError marks an aborted stream; Err holds the cause. Content
	// accumulated before the error is still valid.
	EventError
)

// StreamEvent is one element of a generation stream.
type StreamEvent struct {
	Kind  StreamEventKind
	Delta string
	Err   error
}

func ContentEvent(delta string) StreamEvent {
	return StreamEvent{Kind: EventContent, Delta: delta}
}

func ThinkingEvent(delta string) StreamEvent {
	return StreamEvent{Kind: EventThinking, Delta: delta}
}

func DoneEvent() StreamEvent {
	return StreamEvent{Kind: EventDone}
}

func ErrorEvent(err error) StreamEvent {
	return StreamEvent{Kind: EventError, Err: err}
}
