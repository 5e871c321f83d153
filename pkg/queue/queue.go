package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/koiX69420/scanner-sub000/pkg/budget"
)

// ErrCooldown is returned when a caller enqueues again before its per-user
// cooldown has elapsed.
var ErrCooldown = errors.New("cooldown active")

// State tracks a ticket through the admission machine.
type State string

const (
	StateQueued   State = "queued"
	StateAdmitted State = "admitted"
)

// Ticket is one pending analysis request waiting for budget.
type Ticket struct {
	UserID     string
	Cost       float64
	EnqueuedAt time.Time

	admitted chan struct{}
}

// Admitted is closed once the consumer debits the ticket's cost from the
// shared budget.
func (t *Ticket) Admitted() <-chan struct{} {
	return t.admitted
}

func (t *Ticket) State() State {
	select {
	case <-t.admitted:
		return StateAdmitted
	default:
		return StateQueued
	}
}

// Queue is the single global FIFO admission queue. A lone consumer pops the
// head only when the shared budget covers the head's full estimated cost,
// otherwise it re-checks on a fixed poll interval. Admission is strictly
// serialized; admitted requests run concurrently on their own.
type Queue struct {
	bucket   *budget.Bucket
	poll     time.Duration
	cooldown time.Duration

	mu       sync.Mutex
	items    []*Ticket
	lastSeen map[string]time.Time
}

func New(bucket *budget.Bucket, poll, cooldown time.Duration) *Queue {
	return &Queue{
		bucket:   bucket,
		poll:     poll,
		cooldown: cooldown,
		lastSeen: make(map[string]time.Time),
	}
}

// Enqueue appends a ticket unless the caller is still cooling down. The
// cooldown applies per user regardless of global budget state.
func (q *Queue) Enqueue(userID string, cost float64) (*Ticket, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	if userID != "" {
		if last, ok := q.lastSeen[userID]; ok && now.Sub(last) < q.cooldown {
			return nil, ErrCooldown
		}
		q.lastSeen[userID] = now
	}

	t := &Ticket{UserID: userID, Cost: cost, EnqueuedAt: now, admitted: make(chan struct{})}
	q.items = append(q.items, t)
	log.Debug().Str("user", userID).Float64("cost", cost).Int("depth", len(q.items)).Msg("request queued")
	return t, nil
}

// Depth reports the number of tickets still waiting.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Run is the consumer loop. It admits the head ticket whenever the budget
// covers its cost, debiting the full estimate upfront, and polls otherwise.
func (q *Queue) Run(ctx context.Context) error {
	t := time.NewTicker(q.poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			q.admitReady()
		}
	}
}

func (q *Queue) admitReady() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			return
		}
		head := q.items[0]
		if !q.bucket.TryDebit(head.Cost) {
			depth := len(q.items)
			q.mu.Unlock()
			log.Debug().Int("depth", depth).Float64("available", q.bucket.Available()).Msg("budget exhausted, admission deferred")
			return
		}
		q.items = q.items[1:]
		q.mu.Unlock()

		close(head.admitted)
		log.Debug().Str("user", head.UserID).Dur("waited", time.Since(head.EnqueuedAt)).Msg("request admitted")
	}
}
