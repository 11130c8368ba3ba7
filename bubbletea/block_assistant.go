package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/driplabs/drip/markdown"
)

var _ MessageBlock = (*AssistantBlock)(nil)

// AssistantBlock renders streamed assistant text. While the stream is
// live it shows the raw text word-wrapped, which is cheap enough to
// re-render on every frame. Once the turn finishes the block is
// finalized and switches to markdown rendering, cached per width.
type AssistantBlock struct {
	content   strings.Builder
	finalized bool

	renderedByWidth map[int]string
}

// NewAssistantBlock creates a new block for streaming assistant text.
func NewAssistantBlock() *AssistantBlock {
	return &AssistantBlock{renderedByWidth: make(map[int]string)}
}

// Append adds a text delta from the stream.
func (b *AssistantBlock) Append(text string) {
	b.content.WriteString(text)
}

// Content returns the accumulated raw text.
func (b *AssistantBlock) Content() string {
	return b.content.String()
}

// Finalize switches the block from raw streaming display to rendered
// markdown. Called once when the turn completes.
func (b *AssistantBlock) Finalize() {
	b.finalized = true
}

func (b *AssistantBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *AssistantBlock) View(width int) string {
	raw := b.content.String()
	if !b.finalized {
		return lipgloss.NewStyle().Width(width).Render(raw)
	}
	if cached, ok := b.renderedByWidth[width]; ok {
		return cached
	}
	rendered := markdown.Render(raw, width)
	b.renderedByWidth[width] = rendered
	return rendered
}
