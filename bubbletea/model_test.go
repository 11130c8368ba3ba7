package bubbletea_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driplabs/drip"
	bt "github.com/driplabs/drip/bubbletea"
	"github.com/driplabs/drip/mock"
)

func TestNew(t *testing.T) {
	t.Parallel()

	transcript := drip.NewTranscript()
	m := bt.New(scriptProvider(), &transcript, bt.Config{Model: "test-model"}, drip.DefaultTheme())

	assert.False(t, m.Running())
	assert.NoError(t, m.Err())
	assert.Empty(t, m.Messages())
}

func TestModel_Update(t *testing.T) {
	t.Parallel()

	t.Run("window size initializes viewport", func(t *testing.T) {
		t.Parallel()

		transcript := drip.NewTranscript()
		m := bt.New(scriptProvider(), &transcript, bt.Config{Model: "test-model"}, drip.DefaultTheme())
		updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
		model, ok := updated.(bt.Model)
		require.True(t, ok)

		view := model.View()
		assert.NotEmpty(t, view)
	})

	t.Run("window size resize updates viewport dimensions", func(t *testing.T) {
		t.Parallel()

		m := initModel(t, scriptProvider())

		assert.Equal(t, 80, m.Viewport.Width)
		assert.Equal(t, 20, m.Viewport.Height) // 24 - 1 - 1 - 2 = 20

		m = updateModel(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

		assert.Equal(t, 120, m.Viewport.Width)
		assert.Equal(t, 36, m.Viewport.Height)
	})

	t.Run("ctrl+c when idle quits", func(t *testing.T) {
		t.Parallel()

		m := initModel(t, scriptProvider())
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

		require.NotNil(t, cmd)
		msg := cmd()
		_, isQuit := msg.(tea.QuitMsg)
		assert.True(t, isQuit)
	})

	t.Run("enter with empty input does nothing", func(t *testing.T) {
		t.Parallel()

		m := initModel(t, scriptProvider())
		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		model, ok := updated.(bt.Model)
		require.True(t, ok)

		assert.False(t, model.Running())
		assert.Nil(t, cmd)
	})

	t.Run("enter while running is ignored", func(t *testing.T) {
		t.Parallel()

		feed := make(chan drip.Event)
		defer close(feed)
		p := blockingProvider(feed)

		m := submitText(t, initModel(t, p), "first")
		require.True(t, m.Running())

		m.Input.SetValue("second")
		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		model, ok := updated.(bt.Model)
		require.True(t, ok)

		assert.True(t, model.Running())
		assert.Nil(t, cmd)
	})
}

func TestModel_StreamingTurn(t *testing.T) {
	t.Parallel()

	t.Run("response text reaches the viewport", func(t *testing.T) {
		t.Parallel()

		p := scriptProvider(
			drip.EventTextDelta{Delta: "Hello"},
			drip.EventTextDelta{Delta: ", world!"},
			drip.EventDone{Reason: "stop", Stats: drip.Stats{OutputTokens: 3}},
		)

		m := runTurn(t, initModel(t, p), "hi")

		assert.False(t, m.Running())
		assert.NoError(t, m.Err())
		assert.Contains(t, m.View(), "Hello, world!")
	})

	t.Run("turn commits user and assistant messages", func(t *testing.T) {
		t.Parallel()

		p := scriptProvider(
			drip.EventTextDelta{Delta: "answer"},
			drip.EventDone{Reason: "stop"},
		)

		m := runTurn(t, initModel(t, p), "question")

		msgs := m.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, drip.RoleUser, msgs[0].Role)
		assert.Equal(t, "question", msgs[0].Content)
		assert.Equal(t, drip.RoleAssistant, msgs[1].Role)
		assert.Equal(t, "answer", msgs[1].Content)
	})

	t.Run("status line reports final stats", func(t *testing.T) {
		t.Parallel()

		p := scriptProvider(
			drip.EventTextDelta{Delta: "x"},
			drip.EventDone{Reason: "stop", Stats: drip.Stats{
				OutputTokens:   42,
				OutputDuration: time.Second,
			}},
		)

		m := runTurn(t, initModel(t, p), "hi")

		view := m.View()
		assert.Contains(t, view, "42 tokens")
		assert.Contains(t, view, "42.0 tok/s")
	})

	t.Run("thinking renders collapsed and toggles on tab", func(t *testing.T) {
		t.Parallel()

		p := scriptProvider(
			drip.EventThinkingDelta{Delta: "pondering deeply"},
			drip.EventTextDelta{Delta: "verdict"},
			drip.EventDone{Reason: "stop"},
		)

		m := runTurn(t, initModel(t, p), "hi")

		view := m.View()
		assert.Contains(t, view, "▶ Thinking")
		assert.NotContains(t, view, "pondering deeply")

		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyTab})
		view = m.View()
		assert.Contains(t, view, "▼ Thinking")
		assert.Contains(t, view, "pondering deeply")

		msgs := m.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, "pondering deeply", msgs[1].Thinking)
	})

	t.Run("empty stream commits no assistant message", func(t *testing.T) {
		t.Parallel()

		m := runTurn(t, initModel(t, scriptProvider()), "hi")

		assert.Len(t, m.Messages(), 1)
		assert.NoError(t, m.Err())
	})

	t.Run("resumed transcript renders on init", func(t *testing.T) {
		t.Parallel()

		transcript := drip.NewTranscript()
		transcript.Append(drip.Message{Role: drip.RoleUser, Content: "hello there"})
		transcript.Append(drip.Message{Role: drip.RoleAssistant, Content: "Hi! How can I help?"})

		m := bt.New(scriptProvider(), &transcript, bt.Config{Model: "test-model"}, drip.DefaultTheme())
		m = updateModel(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

		view := m.View()
		assert.Contains(t, view, "hello there")
		assert.Contains(t, view, "Hi! How can I help?")
	})

	t.Run("consecutive turns create separate blocks", func(t *testing.T) {
		t.Parallel()

		p := &mock.Provider{
			StreamFn: func(context.Context, drip.Request) (drip.Decoder, error) {
				return mock.Script(
					drip.EventTextDelta{Delta: "reply"},
					drip.EventDone{Reason: "stop"},
				), nil
			},
		}

		m := runTurn(t, initModel(t, p), "one")
		m = runTurn(t, m, "two")

		msgs := m.Messages()
		require.Len(t, msgs, 4)
		assert.Equal(t, "one", msgs[0].Content)
		assert.Equal(t, "two", msgs[2].Content)
	})
}

func TestModel_Errors(t *testing.T) {
	t.Parallel()

	t.Run("provider connect error surfaces in view", func(t *testing.T) {
		t.Parallel()

		p := &mock.Provider{
			StreamFn: func(context.Context, drip.Request) (drip.Decoder, error) {
				return nil, errors.New("connection refused")
			},
		}

		m := initModel(t, p)
		m.Input.SetValue("hi")
		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		model, ok := updated.(bt.Model)
		require.True(t, ok)
		require.NotNil(t, cmd)

		model = updateModel(t, model, cmd())

		assert.False(t, model.Running())
		assert.ErrorContains(t, model.Err(), "connection refused")
		assert.Contains(t, model.View(), "connection refused")
	})

	t.Run("cancel during connect shows no error", func(t *testing.T) {
		t.Parallel()

		p := &mock.Provider{
			StreamFn: func(ctx context.Context, _ drip.Request) (drip.Decoder, error) {
				<-ctx.Done()
				return nil, fmt.Errorf("connect: %w", ctx.Err())
			},
		}

		m := initModel(t, p)
		m.Input.SetValue("hi")
		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		model, ok := updated.(bt.Model)
		require.True(t, ok)
		require.NotNil(t, cmd)
		require.True(t, model.Running())

		// Ctrl+C before the connect completes cancels the request
		// context, so the pending command reports context.Canceled.
		model = updateModel(t, model, tea.KeyMsg{Type: tea.KeyCtrlC})
		model = updateModel(t, model, cmd())

		assert.False(t, model.Running())
		assert.NoError(t, model.Err())
		assert.NotContains(t, model.View(), "Error:")
	})

	t.Run("decode error after partial output keeps the output", func(t *testing.T) {
		t.Parallel()

		i := 0
		dec := &mock.Decoder{NextFn: func() (drip.Event, error) {
			if i == 0 {
				i++
				return drip.EventTextDelta{Delta: "partial"}, nil
			}
			return nil, errors.New("connection reset")
		}}
		p := &mock.Provider{
			StreamFn: func(context.Context, drip.Request) (drip.Decoder, error) {
				return dec, nil
			},
		}

		m := runTurn(t, initModel(t, p), "hi")

		assert.ErrorContains(t, m.Err(), "connection reset")
		view := m.View()
		assert.Contains(t, view, "partial")
		assert.Contains(t, view, "connection reset")
	})
}

func TestModel_Cancel(t *testing.T) {
	t.Parallel()

	feed := make(chan drip.Event)
	p := blockingProvider(feed)

	m := submitText(t, initModel(t, p), "hi")

	feed <- drip.EventTextDelta{Delta: "partial"}
	time.Sleep(20 * time.Millisecond)
	m = updateModel(t, m, bt.FrameMsg(time.Now()))
	require.True(t, m.Running())
	assert.Contains(t, m.View(), "partial")

	// Ctrl+C while running cancels the stream instead of quitting.
	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	close(feed)

	m = pumpFrames(t, m)
	assert.NoError(t, m.Err())
	assert.Contains(t, m.View(), "partial")
}

func TestModel_FullProgram(t *testing.T) {
	t.Parallel()

	p := scriptProvider(
		drip.EventTextDelta{Delta: "Hello!"},
		drip.EventDone{Reason: "stop", Stats: drip.Stats{OutputTokens: 2}},
	)
	transcript := drip.NewTranscript()
	m := bt.New(p, &transcript, bt.Config{Model: "test-model"}, drip.DefaultTheme())

	tm := teatest.NewTestModel(t, m,
		teatest.WithInitialTermSize(80, 24),
	)

	tm.Type("hi")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return bytes.Contains(out, []byte("Hello!")) &&
			bytes.Contains(out, []byte("Enter to send"))
	}, teatest.WithDuration(5*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})

	fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
	final, ok := fm.(bt.Model)
	require.True(t, ok)
	assert.False(t, final.Running())
	assert.NoError(t, final.Err())
	assert.Len(t, final.Messages(), 2)
}

// blockingProvider returns a provider whose decoder blocks on feed until
// an event arrives, and reports io.EOF when feed is closed.
func blockingProvider(feed chan drip.Event) *mock.Provider {
	dec := &mock.Decoder{NextFn: func() (drip.Event, error) {
		ev, ok := <-feed
		if !ok {
			return nil, io.EOF
		}
		return ev, nil
	}}
	return &mock.Provider{
		StreamFn: func(context.Context, drip.Request) (drip.Decoder, error) {
			return dec, nil
		},
	}
}
