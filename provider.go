package drip

import "context"

// Decoder produces the lazy sequence of events decoded from one response
// stream. It is the record-decoder collaborator of the batching pipeline
// and must be safe to drive from outside the UI goroutine.
//
// Next returns the next decoded event. It blocks until an event is
// available, returns io.EOF when the sequence ends cleanly, or returns a
// terminal error. After a non-nil error no further events follow.
//
// Close releases the underlying transport. It is safe to call more than
// once and while Next is blocked; a blocked Next then returns an error.
type Decoder interface {
	Next() (Event, error)
	Close() error
}

// Provider is a strategy pattern interface for inference backends.
// Stream issues a generation request and returns a Decoder over the
// response. Request-level failures (connection refused, non-2xx status)
// surface synchronously; mid-stream failures come from Decoder.Next.
type Provider interface {
	Stream(ctx context.Context, req Request) (Decoder, error)
}

// Request carries model selection and generation parameters.
// The provider uses its own defaults when fields are zero/nil.
type Request struct {
	Model       string // model ID, provider-specific; empty = provider default
	Messages    []Message
	Think       bool     // request thinking/reasoning content when supported
	MaxTokens   int      // 0 = provider default
	Temperature *float64 // nil = provider default
}
