package drip

import "time"

// Event is a sealed interface representing one unit of generated content.
// Events are purely semantic. Transport/protocol errors come from
// Decoder.Next()'s error return, not from events.
// The unexported marker method prevents external implementations.
type Event interface {
	event()

	// Terminal reports whether this event completes the stream. Exactly one
	// terminal event is emitted per stream, always last.
	Terminal() bool
}

// EventTextDelta represents a text content delta.
type EventTextDelta struct {
	Delta string
}

func (EventTextDelta) event() {}

// Terminal returns false.
func (EventTextDelta) Terminal() bool { return false }

// EventThinkingDelta represents a thinking content delta.
type EventThinkingDelta struct {
	Delta string
}

func (EventThinkingDelta) event() {}

// Terminal returns false.
func (EventThinkingDelta) Terminal() bool { return false }

// EventDone signals normal completion of a generation stream.
type EventDone struct {
	// Reason is the provider-reported stop reason ("stop", "length", ...).
	// Empty when the provider does not report one.
	Reason string
	Stats  Stats
}

func (EventDone) event() {}

// Terminal returns true.
func (EventDone) Terminal() bool { return true }

// Stats carries generation metrics reported by the provider with the
// final chunk of a stream. Zero values mean "not reported".
type Stats struct {
	PromptTokens   int
	OutputTokens   int
	PromptDuration time.Duration
	OutputDuration time.Duration
	TotalDuration  time.Duration
}

// TokensPerSecond returns the output generation rate, or 0 when the
// provider did not report timing.
func (s Stats) TokensPerSecond() float64 {
	if s.OutputDuration <= 0 {
		return 0
	}
	return float64(s.OutputTokens) / s.OutputDuration.Seconds()
}

// Interface compliance checks.
var (
	_ Event = EventTextDelta{}
	_ Event = EventThinkingDelta{}
	_ Event = EventDone{}
)
