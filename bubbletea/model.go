package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/driplabs/drip"
	"github.com/driplabs/drip/stream"
)

var _ tea.Model = Model{}

// framePeriod is the drain cadence while a stream is live. Roughly 60
// frames per second; the terminal cannot usefully repaint faster.
const framePeriod = 16 * time.Millisecond

// Model is the Bubble Tea model for the drip TUI.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	provider   drip.Provider
	transcript *drip.Transcript
	cfg        Config
	theme      drip.Theme
	styles     Styles

	blocks     []MessageBlock
	blockFocus int // index of focused collapsible block (-1 = none)

	// Active blocks for the current assistant turn. Reset on submit.
	activeText     *AssistantBlock
	activeThinking *ThinkingBlock

	handle  *drip.StreamHandle
	cancel  context.CancelFunc
	running bool
	err     error
	ready   bool

	// Per-turn timing and counters for the status line.
	turnStart  time.Time
	firstDelta time.Time
	received   int
	stats      *drip.Stats
	doneReason string
}

// New creates a new TUI Model with the given provider, transcript,
// config, and theme. Messages already in the transcript are rendered
// when the first window size arrives.
func New(provider drip.Provider, transcript *drip.Transcript, cfg Config, theme drip.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		Input:      ti,
		provider:   provider,
		transcript: transcript,
		cfg:        cfg,
		theme:      theme,
		styles:     NewStyles(theme),
		blockFocus: -1,
	}
}

// Running returns whether a streaming turn is in progress.
func (m Model) Running() bool { return m.running }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// Messages returns the conversation transcript accumulated so far.
func (m Model) Messages() []drip.Message { return m.transcript.Messages }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamStartedMsg:
		m.handle = msg.Handle
		return m, nextFrame()

	case StreamFailedMsg:
		m.running = false
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		// Ctrl+C during connect cancels the request context; the
		// resulting context.Canceled is the user's own doing, not an
		// error worth showing.
		if !errors.Is(msg.Err, context.Canceled) {
			m.err = msg.Err
			m.blocks = append(m.blocks, NewErrorBlock(msg.Err, m.styles))
			m.Viewport.SetContent(m.renderContent())
			m.Viewport.GotoBottom()
		}
		cmd := m.Input.Focus()
		return m, cmd

	case FrameMsg:
		if m.handle == nil {
			return m, nil
		}
		m = m.drainBatches()
		select {
		case <-m.handle.Done():
			// The poller has exited and the queue is closed; one more
			// drain picks up anything delivered since the last frame.
			m = m.drainBatches()
			return m.finishTurn()
		default:
			return m, nextFrame()
		}
	}

	// Pass remaining messages to sub-components.
	// Viewport always receives messages for scrolling (keyboard and mouse).
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	// Output area.
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")

	// Status line.
	b.WriteString(m.statusLine())
	b.WriteString("\n")

	// Input area.
	b.WriteString(m.Input.View())

	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := msg.Height - inputH - statusHeight - borderHeight

	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m = m.renderTranscript()
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}

	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			// Cancel stops the poller at its next suspension point;
			// batches already queued still arrive on later frames.
			if m.handle != nil {
				m.handle.Cancel()
			}
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitInput(text)

	case tea.KeyTab:
		if !m.running && m.blockFocus >= 0 {
			block, cmd := m.blocks[m.blockFocus].Update(ToggleMsg{})
			m.blocks[m.blockFocus] = block
			m.Viewport.SetContent(m.renderContent())
			return m, cmd
		}
		return m, nil

	case tea.KeyShiftTab:
		if !m.running {
			m = m.cycleFocusPrev()
			m.Viewport.SetContent(m.renderContent())
		}
		return m, nil
	}

	// When idle, pass keys to both the input (for typing) and viewport
	// (for scrolling). Only forward non-character keys to viewport to avoid
	// conflicts (e.g. 'j'/'k' are viewport scroll AND text characters).
	if !m.running {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.err = nil
	m.stats = nil
	m.doneReason = ""
	m.received = 0
	m.firstDelta = time.Time{}
	m.turnStart = time.Now()

	m.transcript.Append(drip.Message{
		Role:      drip.RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})

	m.blocks = append(m.blocks, NewUserMessageBlock(text, m.styles))
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	m.activeText = nil
	m.activeThinking = nil

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	m.Input.Blur()

	req := drip.Request{
		Model:    m.cfg.Model,
		Messages: append([]drip.Message(nil), m.transcript.Messages...),
		Think:    m.cfg.Think,
	}
	return m, startStream(ctx, m.provider, req, m.cfg.Stream)
}

// startStream opens the provider stream and hands the decoder to the
// poller. It runs off the Update loop as a tea.Cmd, so a slow connect
// never freezes the UI.
func startStream(ctx context.Context, provider drip.Provider, req drip.Request, opts stream.Options) tea.Cmd {
	return func() tea.Msg {
		dec, err := provider.Stream(ctx, req)
		if err != nil {
			return StreamFailedMsg{Err: err}
		}
		h, err := drip.BeginStream(dec, opts)
		if err != nil {
			_ = dec.Close()
			return StreamFailedMsg{Err: err}
		}
		return StreamStartedMsg{Handle: h}
	}
}

func nextFrame() tea.Cmd {
	return tea.Tick(framePeriod, func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}

// drainBatches empties the delivery queue and applies every outcome to
// the transcript. It never blocks: if nothing is queued it returns
// immediately and the frame is spent elsewhere.
func (m Model) drainBatches() Model {
	batches := m.handle.PollBatches()
	if len(batches) == 0 {
		return m
	}
	for _, batch := range batches {
		for _, o := range batch {
			m = m.processOutcome(o)
		}
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

// processOutcome routes a single stream outcome to the appropriate block.
func (m Model) processOutcome(o drip.Outcome) Model {
	if o.Err != nil {
		if !errors.Is(o.Err, context.Canceled) {
			m.err = o.Err
			m.blocks = append(m.blocks, NewErrorBlock(o.Err, m.styles))
		}
		return m
	}

	switch e := o.Event.(type) {
	case drip.EventTextDelta:
		m = m.noteDelta()
		if m.activeText == nil {
			m.activeText = NewAssistantBlock()
			m.blocks = append(m.blocks, m.activeText)
			m = m.updateBlockFocus()
		}
		m.activeText.Append(e.Delta)

	case drip.EventThinkingDelta:
		m = m.noteDelta()
		if m.activeThinking == nil {
			m.activeThinking = NewThinkingBlock(m.styles)
			m.blocks = append(m.blocks, m.activeThinking)
			m = m.updateBlockFocus()
		}
		m.activeThinking.Append(e.Delta)

	case drip.EventDone:
		stats := e.Stats
		m.stats = &stats
		m.doneReason = e.Reason
	}
	return m
}

func (m Model) noteDelta() Model {
	if m.firstDelta.IsZero() {
		m.firstDelta = time.Now()
	}
	m.received++
	return m
}

// finishTurn commits the assistant turn to the transcript and returns
// the model to the idle state.
func (m Model) finishTurn() (tea.Model, tea.Cmd) {
	m.running = false
	m.handle = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	msg := drip.Message{Role: drip.RoleAssistant, Timestamp: time.Now()}
	if m.activeThinking != nil {
		msg.Thinking = m.activeThinking.Content()
	}
	if m.activeText != nil {
		msg.Content = m.activeText.Content()
		m.activeText.Finalize()
	}
	if msg.Content != "" || msg.Thinking != "" {
		m.transcript.Append(msg)
	}
	m.activeText = nil
	m.activeThinking = nil

	m = m.updateBlockFocus()
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	cmd := m.Input.Focus()
	return m, cmd
}

// renderTranscript creates blocks for messages loaded from a resumed
// transcript. Assistant text is finalized so it renders as markdown.
func (m Model) renderTranscript() Model {
	for _, msg := range m.transcript.Messages {
		switch msg.Role {
		case drip.RoleUser:
			m.blocks = append(m.blocks, NewUserMessageBlock(msg.Content, m.styles))
		case drip.RoleAssistant:
			if msg.Thinking != "" {
				block := NewThinkingBlock(m.styles)
				block.Append(msg.Thinking)
				m.blocks = append(m.blocks, block)
			}
			if msg.Content != "" {
				block := NewAssistantBlock()
				block.Append(msg.Content)
				block.Finalize()
				m.blocks = append(m.blocks, block)
			}
		}
	}
	return m.updateBlockFocus()
}

func (m Model) renderContent() string {
	if len(m.blocks) == 0 {
		return ""
	}
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

// updateBlockFocus scans backwards to find the last collapsible block.
// Only the focused block responds to Tab. ShiftTab cycles to the previous
// collapsible block.
func (m Model) updateBlockFocus() Model {
	m.blockFocus = -1
	for i := len(m.blocks) - 1; i >= 0; i-- {
		if _, ok := m.blocks[i].(*ThinkingBlock); ok {
			m.blockFocus = i
			return m
		}
	}
	return m
}

// cycleFocusPrev moves blockFocus to the previous collapsible block, wrapping around.
func (m Model) cycleFocusPrev() Model {
	start := m.blockFocus - 1
	if start < 0 {
		start = len(m.blocks) - 1
	}
	for i := range len(m.blocks) {
		idx := (start - i + len(m.blocks)) % len(m.blocks)
		if _, ok := m.blocks[idx].(*ThinkingBlock); ok {
			m.blockFocus = idx
			return m
		}
	}
	m.blockFocus = -1
	return m
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.running {
		if m.received == 0 {
			return m.styles.Muted.Render("Waiting for first token...")
		}
		elapsed := time.Since(m.turnStart).Seconds()
		return m.styles.Muted.Render(fmt.Sprintf("Generating... %d deltas in %.1fs", m.received, elapsed))
	}
	if m.stats != nil {
		summary := fmt.Sprintf("%d tokens", m.stats.OutputTokens)
		if tps := m.stats.TokensPerSecond(); tps > 0 {
			summary += fmt.Sprintf(" at %.1f tok/s", tps)
		}
		if !m.firstDelta.IsZero() {
			summary += fmt.Sprintf(", first token %dms", m.firstDelta.Sub(m.turnStart).Milliseconds())
		}
		if m.doneReason != "" && m.doneReason != "stop" {
			summary += " (" + m.doneReason + ")"
		}
		return m.styles.Muted.Render(summary + " · Enter to send, Ctrl+C to quit")
	}
	return m.styles.Muted.Render("Enter to send, Ctrl+C to quit")
}
