package stream

import "sync"

// token is the cancellation signal shared between the consumer and poller
// domains. It is written exactly once (cancel is idempotent) from the
// consumer side and only read from the poller side.
type token struct {
	once sync.Once
	done chan struct{}
}

func newToken() *token {
	return &token{done: make(chan struct{})}
}

func (t *token) cancel() {
	t.once.Do(func() { close(t.done) })
}

func (t *token) cancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
