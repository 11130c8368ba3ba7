// Package markdown renders markdown text to ANSI-styled terminal output
// using glamour.
package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

var (
	mu        sync.Mutex
	renderers = make(map[int]*glamour.TermRenderer)
)

// Render parses markdown source and returns ANSI-styled terminal output
// word-wrapped to width. Renderers are cached per width because building
// one is expensive relative to rendering. On any rendering error the raw
// source is returned unchanged so the caller always has something to show.
func Render(source string, width int) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		return source
	}

	r, err := rendererFor(width)
	if err != nil {
		return source
	}
	out, err := r.Render(source)
	if err != nil {
		return source
	}
	// Glamour pads output with blank lines on both ends; the caller
	// controls spacing between transcript blocks.
	return strings.Trim(out, "\n")
}

func rendererFor(width int) (*glamour.TermRenderer, error) {
	mu.Lock()
	defer mu.Unlock()

	if r, ok := renderers[width]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	renderers[width] = r
	return r, nil
}
