package conversation

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/harun/pasokh/pkg/typing"
)

// Turn is one accepted query and its scheduled reply
type Turn struct {
	ID      string
	Query   string
	Answer  string
	Matched bool
	// Index is the corpus entry, -1 for a fallback reply.
	Index int
	Score float64

	pending   *typing.Pending
	delivered atomic.Bool
}

// Done is closed once the reply is appended or discarded
func (t *Turn) Done() <-chan struct{} {
	return t.pending.Done()
}

// Wait blocks until Done or ctx ends
func (t *Turn) Wait(ctx context.Context) error {
	select {
	case <-t.pending.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delivered reports whether the reply made it into the log
func (t *Turn) Delivered() bool {
	return t.delivered.Load()
}

// Delay is the scheduled typing delay
func (t *Turn) Delay() time.Duration {
	return t.pending.Duration()
}
