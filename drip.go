// Package drip provides the core types for streaming token generation
// from a local inference server into an interactive terminal UI.
//
// The hard problem it solves lives in the stream subpackage: an inference
// server can emit a chunk every few milliseconds, while a cooperative UI
// scheduler only drives pending work forward when it produces a frame.
// BeginStream decouples the two, polling the decoder on a dedicated
// execution context and delivering ordered, bounded batches the UI drains
// on its own schedule.
package drip

import "github.com/driplabs/drip/stream"

// StreamHandle is the capability object for one running generation
// stream: cancel it, poll its batches, await its termination.
type StreamHandle = stream.Handle[Event]

// Batch is a delivered group of ordered outcomes.
type Batch = stream.Batch[Event]

// Outcome is one decoded event or a terminal stream error.
type Outcome = stream.Outcome[Event]

// BeginStream starts polling dec on its own execution context and
// returns the handle the UI drains. The decoder is closed when the
// stream terminates. See stream.Options for batching and backpressure
// configuration.
func BeginStream(dec Decoder, opts stream.Options) (*StreamHandle, error) {
	return stream.Start[Event](dec, opts)
}
