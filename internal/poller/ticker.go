// Package poller runs a function on a fixed interval in the background.
package poller

import (
	"context"
	"sync"
	"time"
)

// Ticker calls fn every interval until stopped. Start may be called again
// at any time; it stops the running loop first so loops never accumulate.
// A call to fn never overlaps the next one. fn must not call Start or Stop.
type Ticker struct {
	interval  time.Duration
	immediate bool
	fn        func(ctx context.Context)

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// Option configures a Ticker
type Option func(*Ticker)

// Immediately makes Start run fn once right away instead of waiting a full
// interval
func Immediately() Option {
	return func(t *Ticker) {
		t.immediate = true
	}
}

// New returns a stopped ticker
func New(interval time.Duration, fn func(ctx context.Context), opts ...Option) *Ticker {
	t := &Ticker{interval: interval, fn: fn}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start (re)starts the loop. The loop ends when ctx is done or Stop is
// called.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.running = true

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		if t.immediate {
			t.fn(loopCtx)
		}

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				t.fn(loopCtx)
			}
		}
	}()
}

// Stop ends the loop and waits for a running call of fn to return
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Running reports whether a loop is started
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Ticker) stopLocked() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	t.wg.Wait()
	t.cancel = nil
	t.running = false
}
