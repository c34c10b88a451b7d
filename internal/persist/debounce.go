package persist

import (
	"sync"
	"time"
)

// debouncer coalesces rapid calls per key: fn runs once, duration after the
// last call for that key.
type debouncer struct {
	mu       sync.Mutex
	timers   map[string]*time.Timer
	duration time.Duration
	running  sync.WaitGroup
}

func newDebouncer(duration time.Duration) *debouncer {
	return &debouncer{
		timers:   make(map[string]*time.Timer),
		duration: duration,
	}
}

// Debounce schedules fn for key, resetting any pending call for that key.
func (d *debouncer) Debounce(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Cancel existing timer if any
	if t, ok := d.timers[key]; ok {
		if t.Stop() {
			d.running.Done()
		}
	}

	d.running.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d.duration, func() {
		defer d.running.Done()
		fn()
		d.mu.Lock()
		if d.timers[key] == t {
			delete(d.timers, key)
		}
		d.mu.Unlock()
	})
	d.timers[key] = t
}

// Pending reports whether a call for key is scheduled or still running.
func (d *debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[key]
	return ok
}

// CancelAll drops every scheduled call and waits for calls already running.
func (d *debouncer) CancelAll() {
	d.mu.Lock()
	for key, t := range d.timers {
		if t.Stop() {
			d.running.Done()
		}
		delete(d.timers, key)
	}
	d.mu.Unlock()

	d.running.Wait()
}
