package bubbletea

import tea "github.com/charmbracelet/bubbletea"

// MessageBlock is one transcript entry the viewport renders: a user
// prompt, streamed assistant text, a thinking fold, or a stream error.
// View takes the width instead of tracking it, so the root model owns
// layout and blocks can be rendered in isolation.
type MessageBlock interface {
	Update(tea.Msg) (MessageBlock, tea.Cmd)
	View(width int) string
}

// ToggleMsg asks the focused thinking block to fold or unfold.
// The other block kinds have nothing to collapse and ignore it.
type ToggleMsg struct{}
