// Package stream decouples a high-frequency event source from a
// frame-paced consumer.
//
// A decoder producing events every few milliseconds and a cooperative UI
// loop that only polls tens of times per second run on incompatible
// schedules. Start spawns a dedicated poller that drives the decoder at
// the rate the transport allows, coalesces consecutive events into
// bounded batches, and hands them to the consumer through a delivery
// queue. The consumer drains the queue non-blockingly whenever its own
// scheduler gives it a turn.
//
// The pipeline is generic over the event payload. The only state shared
// between the two scheduling domains is the delivery queue and the
// cancellation token owned by the Handle.
package stream

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Default batching thresholds used when Options fields are zero.
// The 4ms delay bounds worst-case delivery latency well below a 60Hz
// frame while still coalescing bursts from fast local models.
const (
	DefaultMaxBatchSize  = 64
	DefaultMaxBatchDelay = 4 * time.Millisecond
)

// Event is the constraint on pipeline payloads. Terminal marks the event
// that completes a stream; the batcher flushes it as its own final batch.
type Event interface {
	Terminal() bool
}

// Decoder is the record-decoder collaborator driven by the poller.
// Next blocks until an event is available, returns io.EOF when the
// sequence ends cleanly, or returns a terminal error. It is called from
// the poller's goroutine, never from the consumer's.
//
// A Decoder that also implements io.Closer is closed by the pipeline
// when the stream terminates.
type Decoder[E Event] interface {
	Next() (E, error)
}

// Outcome is one decoded result: an event or a terminal error.
type Outcome[E Event] struct {
	Event E
	Err   error
}

// Terminal reports whether this outcome completes the stream.
func (o Outcome[E]) Terminal() bool {
	if o.Err != nil {
		return true
	}
	return o.Event.Terminal()
}

// Batch is an ordered, non-empty sequence of outcomes. Concatenating all
// batches in delivery order reconstructs the exact decode order.
type Batch[E Event] []Outcome[E]

// Options configures one stream. The zero value is usable: default batch
// size, no delay-based flushing, unbounded delivery.
type Options struct {
	// MaxBatchSize bounds the number of outcomes per batch. 0 means
	// DefaultMaxBatchSize; 1 disables batching (per-event delivery).
	MaxBatchSize int

	// MaxBatchDelay bounds how long an outcome may sit in a partial batch
	// before it is flushed. 0 disables the timer (size-only batching).
	MaxBatchDelay time.Duration

	// Capacity selects the delivery policy. 0 means an unbounded queue:
	// the poller never blocks, at the risk of unbounded memory if the
	// consumer stalls. A positive value bounds memory: the poller blocks
	// on a full queue, propagating read pressure back to the transport.
	Capacity int

	// Logger receives per-stream diagnostics (first-event latency, batch
	// flushes, terminal summary). Nil disables logging.
	Logger *zerolog.Logger
}

func (o Options) normalize() (Options, error) {
	if o.MaxBatchSize < 0 {
		return o, fmt.Errorf("stream: max batch size must be >= 1, got %d", o.MaxBatchSize)
	}
	if o.MaxBatchSize == 0 {
		o.MaxBatchSize = DefaultMaxBatchSize
	}
	if o.MaxBatchDelay < 0 {
		return o, fmt.Errorf("stream: max batch delay must be >= 0, got %v", o.MaxBatchDelay)
	}
	if o.Capacity < 0 {
		return o, fmt.Errorf("stream: capacity must be >= 0, got %d", o.Capacity)
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o, nil
}

// DefaultOptions returns thresholds suited to interactive token display:
// batches of up to DefaultMaxBatchSize flushed within DefaultMaxBatchDelay,
// unbounded delivery.
func DefaultOptions() Options {
	return Options{
		MaxBatchSize:  DefaultMaxBatchSize,
		MaxBatchDelay: DefaultMaxBatchDelay,
	}
}
