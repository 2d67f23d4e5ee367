// Package typing simulates the pause between deciding a reply and showing it.
//
// A reply of n characters becomes visible after n ticks. The delay is a
// one-shot, cancelable timer; the reply text is released whole when it fires.
package typing

import (
	"sync/atomic"
	"time"
)

// DefaultTick is the per-character delay
const DefaultTick = 15 * time.Millisecond

const (
	stateWaiting int32 = iota
	stateFired
	stateCancelled
)

// Simulator schedules typing delays
type Simulator struct {
	tick time.Duration
}

// New returns a simulator; a negative tick is treated as zero
func New(tick time.Duration) *Simulator {
	if tick < 0 {
		tick = 0
	}
	return &Simulator{tick: tick}
}

// Tick returns the per-character delay
func (s *Simulator) Tick() time.Duration {
	return s.tick
}

// Delay returns how long a reply of textLength characters takes to type
func (s *Simulator) Delay(textLength int) time.Duration {
	if textLength < 0 {
		textLength = 0
	}
	return time.Duration(textLength) * s.tick
}

// Start runs fn once after Delay(textLength) unless the returned Pending is cancelled first
func (s *Simulator) Start(textLength int, fn func()) *Pending {
	p := &Pending{
		done:     make(chan struct{}),
		duration: s.Delay(textLength),
	}
	p.timer = time.AfterFunc(p.duration, func() {
		if !p.state.CompareAndSwap(stateWaiting, stateFired) {
			return
		}
		defer close(p.done)
		fn()
	})
	return p
}

// Pending is an outstanding typing delay
type Pending struct {
	timer    *time.Timer
	done     chan struct{}
	duration time.Duration
	state    atomic.Int32
}

// Duration returns the scheduled delay
func (p *Pending) Duration() time.Duration {
	return p.duration
}

// Done is closed after the callback returns or the delay is cancelled
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Cancel stops the delay. It reports false if the callback already started.
func (p *Pending) Cancel() bool {
	if !p.state.CompareAndSwap(stateWaiting, stateCancelled) {
		return false
	}
	p.timer.Stop()
	close(p.done)
	return true
}

// Fired reports whether the callback ran
func (p *Pending) Fired() bool {
	return p.state.Load() == stateFired
}
