package worker

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is the debounce window for text-change bursts. Rapid
// successive edits produce exactly one dispatched detection per quiet period.
const DefaultQuietPeriod = 600 * time.Millisecond

// Debouncer coalesces bursts of triggers: the function passed to the latest
// Trigger runs once the quiet period elapses with no further triggers.
// It is a small reusable scheduler primitive — timer plus monotonic
// generation counter plus compare-on-fire — independent of any runtime.
type Debouncer struct {
	quiet time.Duration

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
}

// NewDebouncer creates a Debouncer with the given quiet period; a
// non-positive duration falls back to DefaultQuietPeriod.
func NewDebouncer(quiet time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Debouncer{quiet: quiet}
}

// Trigger schedules fn to run after the quiet period. Any trigger arriving
// before the period elapses supersedes the previous one; only the latest
// generation fires.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, func() {
		d.mu.Lock()
		latest := d.gen == gen
		d.mu.Unlock()
		if latest {
			fn()
		}
	})
}

// Stop cancels any pending trigger. Already-fired functions are unaffected.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
