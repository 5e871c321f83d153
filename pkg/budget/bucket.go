package budget

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Bucket models the provider's per-minute call quota as a token bucket
// shared across all concurrent analyses. It refills continuously on a fixed
// one-second tick toward the cap and is debited atomically at admission.
type Bucket struct {
	mu        sync.Mutex
	available float64
	max       float64
	perSecond float64
}

// New creates a full bucket. maxPerMinute is both the cap and the refill
// rate: maxPerMinute/60 tokens are restored every second.
func New(maxPerMinute float64) *Bucket {
	return &Bucket{available: maxPerMinute, max: maxPerMinute, perSecond: maxPerMinute / 60}
}

// TryDebit atomically checks and debits. The balance can never go negative:
// either the full cost is taken or nothing is.
func (b *Bucket) TryDebit(cost float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.available < cost {
		return false
	}
	b.available -= cost
	return true
}

// Credit returns unused tokens, e.g. when an analysis issued fewer calls
// than its pessimistic estimate. Capped at the bucket maximum.
func (b *Bucket) Credit(n float64) {
	if n <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.available += n
	if b.available > b.max {
		b.available = b.max
	}
}

// Available reports the current balance.
func (b *Bucket) Available() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

func (b *Bucket) refill() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.available += b.perSecond
	if b.available > b.max {
		b.available = b.max
	}
}

// Run drives the refill tick until the context is cancelled.
func (b *Bucket) Run(ctx context.Context) error {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	log.Info().Float64("cap", b.max).Float64("per_second", b.perSecond).Msg("budget refill started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			b.refill()
		}
	}
}
