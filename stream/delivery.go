package stream

import "github.com/enriquebris/goconcurrentqueue"

// delivery carries batches from the poller's goroutines to the consumer.
// Single producer (the batch loop), single consumer (PollBatches). Both
// implementations preserve FIFO order.
type delivery[E Event] interface {
	// send enqueues a batch, blocking for capacity when bounded. It
	// returns false when the token was cancelled before the batch could
	// be queued; the batch is then dropped.
	send(tok *token, b Batch[E]) bool

	// drain returns all currently queued batches without blocking.
	drain() []Batch[E]

	// close marks the producing side done. No send follows a close.
	close()
}

// boundedDelivery is a plain buffered channel. A full channel blocks the
// poller (pure backpressure); data is never dropped.
type boundedDelivery[E Event] struct {
	ch chan Batch[E]
}

func newBoundedDelivery[E Event](capacity int) *boundedDelivery[E] {
	return &boundedDelivery[E]{ch: make(chan Batch[E], capacity)}
}

func (d *boundedDelivery[E]) send(tok *token, b Batch[E]) bool {
	select {
	case d.ch <- b:
		return true
	case <-tok.done:
		// A cancel racing a flush still delivers when capacity is free.
		select {
		case d.ch <- b:
			return true
		default:
			return false
		}
	}
}

func (d *boundedDelivery[E]) drain() []Batch[E] {
	var out []Batch[E]
	for {
		select {
		case b, ok := <-d.ch:
			if !ok {
				return out
			}
			out = append(out, b)
		default:
			return out
		}
	}
}

func (d *boundedDelivery[E]) close() {
	close(d.ch)
}

// unboundedDelivery never blocks the poller. Memory grows without bound
// if the consumer stalls; callers that need a bound use Capacity > 0.
type unboundedDelivery[E Event] struct {
	q *goconcurrentqueue.FIFO
}

func newUnboundedDelivery[E Event]() *unboundedDelivery[E] {
	return &unboundedDelivery[E]{q: goconcurrentqueue.NewFIFO()}
}

func (d *unboundedDelivery[E]) send(tok *token, b Batch[E]) bool {
	return d.q.Enqueue(b) == nil
}

func (d *unboundedDelivery[E]) drain() []Batch[E] {
	var out []Batch[E]
	// Single consumer, so a positive length guarantees Dequeue succeeds.
	for d.q.GetLen() > 0 {
		v, err := d.q.Dequeue()
		if err != nil {
			break
		}
		out = append(out, v.(Batch[E]))
	}
	return out
}

func (d *unboundedDelivery[E]) close() {}
