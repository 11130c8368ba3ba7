// Package mock provides test doubles for drip interfaces using
// function fields. Each double delegates to the corresponding Fn field,
// so tests configure only the behavior they care about.
package mock

import (
	"context"
	"io"

	"github.com/driplabs/drip"
)

// Compile-time interface compliance checks.
var (
	_ drip.Provider = (*Provider)(nil)
	_ drip.Decoder  = (*Decoder)(nil)
)

// Provider is a test double for drip.Provider.
type Provider struct {
	StreamFn func(ctx context.Context, req drip.Request) (drip.Decoder, error)
}

func (p *Provider) Stream(ctx context.Context, req drip.Request) (drip.Decoder, error) {
	return p.StreamFn(ctx, req)
}

// Decoder is a test double for drip.Decoder. NextFn is required;
// CloseFn is nil-safe (no-op) because callers commonly defer Close.
type Decoder struct {
	NextFn  func() (drip.Event, error)
	CloseFn func() error
}

func (d *Decoder) Next() (drip.Event, error) {
	return d.NextFn()
}

func (d *Decoder) Close() error {
	if d.CloseFn == nil {
		return nil
	}
	return d.CloseFn()
}

// Script returns a Decoder that replays events in order and then
// reports io.EOF. It is a convenience for tests that only need a
// fixed sequence.
func Script(events ...drip.Event) *Decoder {
	i := 0
	return &Decoder{
		NextFn: func() (drip.Event, error) {
			if i >= len(events) {
				return nil, io.EOF
			}
			ev := events[i]
			i++
			return ev, nil
		},
	}
}
