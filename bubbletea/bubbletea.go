// Package bubbletea provides a Bubble Tea TUI for drip.
//
// The model never blocks on the stream. Batches produced by the poller
// are pulled with a non-blocking drain on a fixed frame cadence, so the
// Update loop stays responsive no matter how fast the provider emits
// tokens.
package bubbletea

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/driplabs/drip"
	"github.com/driplabs/drip/stream"
)

// Config carries the request and pipeline parameters for streaming turns.
type Config struct {
	// Model is the model name sent with every request.
	Model string
	// Think requests thinking output from models that support it.
	Think bool
	// Stream configures the batching pipeline for each turn.
	Stream stream.Options
}

// Run creates and runs the Bubble Tea TUI program. It blocks until the
// program exits. The context is used for graceful shutdown — when
// cancelled, the program quits.
func Run(ctx context.Context, m Model, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)
	stop := context.AfterFunc(ctx, p.Quit)
	defer stop()
	_, err := p.Run()
	return err
}

// StreamStartedMsg reports that a streaming turn has started and carries
// the handle the model drains on each frame.
type StreamStartedMsg struct {
	Handle *drip.StreamHandle
}

// StreamFailedMsg reports that a streaming turn could not be started.
type StreamFailedMsg struct {
	Err error
}

// FrameMsg is the frame-cadence tick that triggers a batch drain.
type FrameMsg time.Time
