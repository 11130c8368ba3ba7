package bubbletea

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/driplabs/drip"
)

var _ MessageBlock = (*ErrorBlock)(nil)

// ErrorBlock renders a terminal stream error inside the transcript, so
// the failure stays visible next to whatever partial output preceded
// it. Known sentinel errors carry a recovery hint.
type ErrorBlock struct {
	err    error
	styles Styles
}

// NewErrorBlock creates an ErrorBlock for the given error.
func NewErrorBlock(err error, styles Styles) *ErrorBlock {
	return &ErrorBlock{err: err, styles: styles}
}

func (b *ErrorBlock) Update(tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *ErrorBlock) View(width int) string {
	line := b.styles.Error.Render(fmt.Sprintf("Error: %v", b.err))
	if errors.Is(b.err, drip.ErrModelNotFound) {
		line += "\n" + b.styles.Muted.Render("Run with -list to see the models available on this server.")
	}
	return lipgloss.NewStyle().Width(width).Render(line)
}
