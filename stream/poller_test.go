package stream_test

import (
	"testing"
	"time"

	"github.com/driplabs/drip/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_CancelBeforeAnyEvents(t *testing.T) {
	t.Parallel()

	dec := newChanDecoder()
	h, err := stream.Start[testEvent](dec, stream.DefaultOptions())
	require.NoError(t, err)

	h.Cancel()
	// Cancellation is cooperative: the in-flight decode wait is not
	// interrupted. The transport unblocking (here: EOF) is what lets the
	// poller observe the token.
	close(dec.feed)

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after cancel")
	}
	assert.Empty(t, h.PollBatches())
	assert.True(t, dec.closed.Load(), "decoder must be closed at termination")
}

func TestHandle_CancelMidStream(t *testing.T) {
	t.Parallel()

	dec := newChanDecoder()
	h, err := stream.Start[testEvent](dec, stream.DefaultOptions())
	require.NoError(t, err)

	dec.feed <- step{ev: testEvent{text: "e1"}}
	batch := waitForBatch(t, h, time.Second)
	require.Len(t, batch, 1)

	h.Cancel()
	close(dec.feed)
	h.Wait()

	// Already-delivered data stays delivered; nothing is duplicated.
	for _, b := range h.PollBatches() {
		for _, out := range b {
			assert.NotEqual(t, "e1", out.Event.text)
		}
	}
}

func TestHandle_CancelIsIdempotent(t *testing.T) {
	t.Parallel()

	dec := &scriptDecoder{steps: textSteps(2)}
	h, err := stream.Start[testEvent](dec, stream.DefaultOptions())
	require.NoError(t, err)

	h.Cancel()
	h.Cancel()
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
}

func TestHandle_QueuedBatchesSurviveCancel(t *testing.T) {
	t.Parallel()

	// All events are queued before the consumer ever polls; cancel must
	// not retroactively remove them.
	steps := append(textSteps(5), step{ev: testEvent{done: true}})
	dec := &scriptDecoder{steps: steps}
	h, err := stream.Start[testEvent](dec, stream.Options{MaxBatchSize: 1})
	require.NoError(t, err)

	h.Wait()
	h.Cancel()

	outcomes := flatten(h.PollBatches())
	assert.Len(t, outcomes, 6)
}

func TestStream_BoundedChannelAppliesBackpressure(t *testing.T) {
	t.Parallel()

	steps := append(textSteps(6), step{ev: testEvent{done: true}})
	dec := &scriptDecoder{steps: steps}
	h, err := stream.Start[testEvent](dec, stream.Options{
		MaxBatchSize: 1,
		Capacity:     2,
	})
	require.NoError(t, err)

	// With capacity for two singleton batches and no consumer, the poller
	// must block rather than drop or finish.
	select {
	case <-h.Done():
		t.Fatal("poller finished despite a full delivery channel")
	case <-time.After(100 * time.Millisecond):
	}

	// A slow consumer drains one batch at a time; the poller resumes each
	// time capacity frees up, with no gap or duplication.
	batches := drainUntilDone(t, h)
	outcomes := flatten(batches)
	require.Len(t, outcomes, 7)
	for i, out := range outcomes[:6] {
		assert.Equal(t, steps[i].ev, out.Event, "outcome %d out of order", i)
	}
	assert.True(t, outcomes[6].Terminal())
}

func TestStream_UnboundedQueueNeverBlocksPoller(t *testing.T) {
	t.Parallel()

	steps := append(textSteps(100), step{ev: testEvent{done: true}})
	dec := &scriptDecoder{steps: steps}
	h, err := stream.Start[testEvent](dec, stream.Options{
		MaxBatchSize: 1,
		Capacity:     0,
	})
	require.NoError(t, err)

	// The poller runs to completion without a single consumer poll.
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller blocked on an unbounded queue")
	}

	outcomes := flatten(h.PollBatches())
	assert.Len(t, outcomes, 101)
}

func TestStream_DecoderClosedAfterError(t *testing.T) {
	t.Parallel()

	dec := &scriptDecoder{steps: textSteps(1), finalErr: assert.AnError}
	h, err := stream.Start[testEvent](dec, stream.DefaultOptions())
	require.NoError(t, err)

	h.Wait()
	assert.True(t, dec.closed.Load())

	outcomes := flatten(h.PollBatches())
	require.Len(t, outcomes, 2)
	assert.ErrorIs(t, outcomes[1].Err, assert.AnError)
}
