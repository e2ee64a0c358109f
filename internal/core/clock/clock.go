// Package clock provides the tick sources that drive the timer engine.
package clock

import (
	"sync"
	"time"
)

// Clock delivers ticks to a handler while active.
type Clock interface {
	// Start begins ticking. Calling Start on an active clock does nothing.
	Start(handler func())
	// Stop halts ticking. It is safe to call on an inactive clock.
	Stop()
}

// Ticker is a Clock backed by time.Ticker.
type Ticker struct {
	mu       sync.Mutex
	interval time.Duration
	stopCh   chan struct{}
}

// NewTicker creates a Ticker firing every interval; non-positive intervals mean one second.
func NewTicker(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Ticker{interval: interval}
}

// Start launches the ticking loop.
func (ticker *Ticker) Start(handler func()) {
	ticker.mu.Lock()
	defer ticker.mu.Unlock()
	if ticker.stopCh != nil {
		return
	}
	stopCh := make(chan struct{})
	ticker.stopCh = stopCh
	go ticker.run(stopCh, handler)
}

// Stop terminates the ticking loop without waiting for it to exit,
// so a handler may stop its own clock.
func (ticker *Ticker) Stop() {
	ticker.mu.Lock()
	defer ticker.mu.Unlock()
	if ticker.stopCh == nil {
		return
	}
	close(ticker.stopCh)
	ticker.stopCh = nil
}

func (ticker *Ticker) run(stopCh chan struct{}, handler func()) {
	timeTicker := time.NewTicker(ticker.interval)
	defer timeTicker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-timeTicker.C:
			select {
			case <-stopCh:
				return
			default:
			}
			handler()
		}
	}
}
