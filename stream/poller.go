package stream

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handle is the capability object for one running stream. It owns the
// cancellation token and the consuming end of the delivery queue.
//
// The consumer must eventually call Cancel or Close (or read the stream
// to its end) or the poller goroutines keep running.
type Handle[E Event] struct {
	tok  *token
	out  delivery[E]
	done chan struct{}
}

// PollBatches returns all batches queued since the last call, in decode
// order, without blocking. It returns nil when nothing is pending.
// It must only be called from one goroutine at a time.
func (h *Handle[E]) PollBatches() []Batch[E] {
	return h.out.drain()
}

// Cancel requests termination. It is idempotent and returns immediately;
// the poller observes the signal at its next suspension point. Batches
// already queued remain available to PollBatches.
func (h *Handle[E]) Cancel() {
	h.tok.cancel()
}

// Done is closed when the poller has exited and all batches have been
// queued. A final PollBatches after Done is closed returns the remainder.
func (h *Handle[E]) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the poller has exited and resources are released.
func (h *Handle[E]) Wait() {
	<-h.done
}

// Close cancels the stream and waits for the poller to exit.
func (h *Handle[E]) Close() error {
	h.Cancel()
	h.Wait()
	return nil
}

// poller drives a decoder on its own execution context, isolated from
// the consumer's scheduler. pump decodes, the batch loop groups.
type poller[E Event] struct {
	dec      Decoder[E]
	tok      *token
	out      delivery[E]
	log      zerolog.Logger
	maxSize  int
	maxDelay time.Duration
	start    time.Time

	// Touched only by the batch loop; read by the summary goroutine
	// after both loops have exited.
	events  int
	batches int
}

// Start begins polling dec on a dedicated execution context (two
// goroutines: a decode pump and a batch loop) and returns the Handle the
// consumer drains. It fails only on invalid options.
//
// If dec implements io.Closer it is closed when the stream terminates.
func Start[E Event](dec Decoder[E], opts Options) (*Handle[E], error) {
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	h := &Handle[E]{
		tok:  newToken(),
		done: make(chan struct{}),
	}
	if opts.Capacity > 0 {
		h.out = newBoundedDelivery[E](opts.Capacity)
	} else {
		h.out = newUnboundedDelivery[E]()
	}

	p := &poller[E]{
		dec:      dec,
		tok:      h.tok,
		out:      h.out,
		log:      opts.Logger.With().Str("stream_id", uuid.NewString()).Logger(),
		maxSize:  opts.MaxBatchSize,
		maxDelay: opts.MaxBatchDelay,
		start:    time.Now(),
	}
	p.log.Debug().
		Int("max_batch_size", opts.MaxBatchSize).
		Dur("max_batch_delay", opts.MaxBatchDelay).
		Int("capacity", opts.Capacity).
		Msg("stream started")

	outcomes := make(chan Outcome[E])
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.pump(outcomes)
	}()
	go func() {
		defer wg.Done()
		p.batchLoop(outcomes)
	}()
	go func() {
		wg.Wait()
		h.out.close()
		if c, ok := any(dec).(io.Closer); ok {
			_ = c.Close()
		}
		p.log.Debug().
			Int("events", p.events).
			Int("batches", p.batches).
			Bool("cancelled", h.tok.cancelled()).
			Dur("elapsed", time.Since(p.start)).
			Msg("stream finished")
		close(h.done)
	}()

	return h, nil
}

// pump drives the decoder to completion at the rate the transport allows.
// The cancellation token is checked before every decode wait and whenever
// a send would block; an in-flight Next is never interrupted.
func (p *poller[E]) pump(outcomes chan<- Outcome[E]) {
	defer close(outcomes)
	for {
		if p.tok.cancelled() {
			return
		}
		ev, err := p.dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Clean exhaustion without a terminal event.
				return
			}
			select {
			case outcomes <- Outcome[E]{Err: err}:
			case <-p.tok.done:
			}
			return
		}
		select {
		case outcomes <- Outcome[E]{Event: ev}:
		case <-p.tok.done:
			return
		}
		if ev.Terminal() {
			return
		}
	}
}

// batchLoop groups outcomes into batches bounded by maxSize and maxDelay.
// The first outcome of the stream and the terminal outcome are always
// delivered as singleton batches; the delay timer is armed only while a
// partial batch is pending.
func (p *poller[E]) batchLoop(outcomes <-chan Outcome[E]) {
	var pending Batch[E]
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	armed := false

	disarm := func() {
		if !armed {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		armed = false
	}

	flush := func(b Batch[E], reason string) bool {
		ok := p.out.send(p.tok, b)
		if ok {
			p.batches++
			p.log.Debug().Int("events", len(b)).Str("reason", reason).Msg("batch flushed")
		}
		return ok
	}
	flushPending := func(reason string) bool {
		if len(pending) == 0 {
			return true
		}
		disarm()
		b := pending
		pending = nil
		return flush(b, reason)
	}

	first := true
	for {
		var out Outcome[E]
		var ok bool
		if armed {
			select {
			case out, ok = <-outcomes:
			case <-timer.C:
				armed = false
				if !flushPending("delay") {
					return
				}
				continue
			case <-p.tok.done:
				flushPending("cancel")
				return
			}
		} else {
			select {
			case out, ok = <-outcomes:
			case <-p.tok.done:
				flushPending("cancel")
				return
			}
		}
		if !ok {
			flushPending("eof")
			return
		}

		p.events++
		if out.Terminal() {
			if !flushPending("terminal") {
				return
			}
			flush(Batch[E]{out}, "terminal")
			return
		}
		if first {
			first = false
			if !flush(Batch[E]{out}, "first") {
				return
			}
			p.log.Debug().Dur("ttft", time.Since(p.start)).Msg("first event delivered")
			continue
		}

		pending = append(pending, out)
		if len(pending) >= p.maxSize {
			if !flushPending("size") {
				return
			}
			continue
		}
		if len(pending) == 1 && p.maxDelay > 0 {
			timer.Reset(p.maxDelay)
			armed = true
		}
	}
}
