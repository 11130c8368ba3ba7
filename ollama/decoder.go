package ollama

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/driplabs/drip"
	"github.com/rs/zerolog"
)

// Interface compliance check.
var _ drip.Decoder = (*decoder)(nil)

// maxLineSize bounds a single NDJSON chunk. Chunks carrying base64
// images can run large; text deltas are tiny.
const maxLineSize = 1 << 20

// decoder reads newline-delimited JSON chunks from a chat response body
// and converts each into semantic events. A chunk may yield more than
// one event (thinking and content in the same delta), so decoded events
// queue until pulled.
type decoder struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	log     zerolog.Logger

	pending []drip.Event
	eof     bool
	chunks  int
	closed  atomic.Bool
}

func newDecoder(body io.ReadCloser, log zerolog.Logger) *decoder {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return &decoder{
		body:    body,
		scanner: sc,
		log:     log,
	}
}

// Next returns the next decoded event. Blank lines are skipped and
// malformed chunks are logged and skipped rather than aborting the
// stream, matching the server's occasional keep-alive noise. The chunk
// with done:true yields an EventDone; the call after that returns io.EOF.
func (d *decoder) Next() (drip.Event, error) {
	for {
		if len(d.pending) > 0 {
			ev := d.pending[0]
			d.pending = d.pending[1:]
			return ev, nil
		}
		if d.eof {
			return nil, io.EOF
		}

		if !d.scanner.Scan() {
			if d.closed.Load() {
				return nil, drip.ErrStreamClosed
			}
			if err := d.scanner.Err(); err != nil {
				return nil, fmt.Errorf("ollama: read stream: %w", err)
			}
			// Body ended without a done chunk; treat as clean exhaustion.
			return nil, io.EOF
		}

		line := bytes.TrimSpace(d.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var delta ChatResponseDelta
		if err := json.Unmarshal(line, &delta); err != nil {
			d.log.Debug().Err(err).Int("chunk", d.chunks).Msg("skipping malformed chunk")
			continue
		}
		d.chunks++

		if t := delta.Message.Thinking; t != "" {
			d.pending = append(d.pending, drip.EventThinkingDelta{Delta: t})
		}
		if c := delta.Message.Content; c != "" {
			d.pending = append(d.pending, drip.EventTextDelta{Delta: c})
		}
		if delta.Done {
			d.eof = true
			d.pending = append(d.pending, drip.EventDone{
				Reason: delta.DoneReason,
				Stats:  delta.stats(),
			})
		}
	}
}

// Close releases the response body. Safe to call concurrently with a
// blocked Next, which then returns drip.ErrStreamClosed.
func (d *decoder) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	return d.body.Close()
}
