// Package ratelimit paces requests against the permit search endpoint.
// The source is a public municipal service with no published quota; a fixed
// courtesy delay between consecutive page requests keeps a run from
// hammering it.
package ratelimit

import (
	"context"
	"time"
)

// DefaultDelay is the standard pause between consecutive page requests.
const DefaultDelay = 1 * time.Second

// Pacer inserts a fixed delay between consecutive page requests. The wait
// is cooperative: it blocks only the calling fetch run and ends early when
// the context is cancelled.
type Pacer struct {
	delay time.Duration
}

// NewPacer creates a Pacer with the given inter-request delay. Negative
// delays are treated as zero.
func NewPacer(delay time.Duration) *Pacer {
	if delay < 0 {
		delay = 0
	}
	return &Pacer{delay: delay}
}

// Delay returns the configured inter-request delay.
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

// Wait blocks for the configured delay or until ctx is done, whichever
// comes first. It returns ctx.Err() when the wait was cut short.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
