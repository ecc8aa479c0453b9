// Package debounce is a cancellable delayed-invocation primitive:
// repeated calls within the quiescence window coalesce into one
// invocation of the most recent function.
package debounce

import (
	"sync"
	"time"
)

// DefaultWindow matches the console's search-as-you-type quiescence.
const DefaultWindow = 300 * time.Millisecond

// Debouncer schedules at most one pending invocation.
type Debouncer struct {
	window time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a debouncer; window <= 0 uses DefaultWindow.
func New(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{window: window}
}

// Call schedules fn after the quiescence window, replacing any pending
// invocation. fn runs on its own goroutine.
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, fn)
}

// Cancel drops any pending invocation.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
