package clock

import "sync"

// Manual is a Clock that only ticks when told to.
type Manual struct {
	mu      sync.Mutex
	handler func()
	active  bool
}

// NewManual creates an inactive Manual clock.
func NewManual() *Manual {
	return &Manual{}
}

// Start activates the clock with handler.
func (manual *Manual) Start(handler func()) {
	manual.mu.Lock()
	defer manual.mu.Unlock()
	if manual.active {
		return
	}
	manual.active = true
	manual.handler = handler
}

// Stop deactivates the clock.
func (manual *Manual) Stop() {
	manual.mu.Lock()
	defer manual.mu.Unlock()
	manual.active = false
	manual.handler = nil
}

// Active reports whether the clock is ticking.
func (manual *Manual) Active() bool {
	manual.mu.Lock()
	defer manual.mu.Unlock()
	return manual.active
}

// Advance delivers up to n ticks and returns how many were delivered.
// It stops early once the clock is stopped, typically by the handler itself.
func (manual *Manual) Advance(n int) int {
	delivered := 0
	for delivered < n {
		manual.mu.Lock()
		handler := manual.handler
		active := manual.active
		manual.mu.Unlock()
		if !active || handler == nil {
			break
		}
		handler()
		delivered++
	}
	return delivered
}
