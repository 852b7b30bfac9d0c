package paylink

import (
	"context"
	"sync"
	"time"
)

// DefaultFallbackDelay is how long to wait for the payment app to take over
// before opening the profile link.
const DefaultFallbackDelay = 1500 * time.Millisecond

// Task is a one-shot deferred fallback action. Deep links give no signal when
// the target app is missing, so the fallback is scheduled up front and
// cancelled when the primary action is known to have worked or the visitor
// navigates away.
type Task struct {
	mu        sync.Mutex
	timer     *time.Timer
	done      bool
	cancelled bool
	stop      func() bool
}

// ScheduleFallback runs fn after delay unless the task is cancelled first or
// ctx is done.
func ScheduleFallback(ctx context.Context, delay time.Duration, fn func()) *Task {
	t := &Task{}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.timer = time.AfterFunc(delay, func() {
		t.mu.Lock()
		if t.done {
			t.mu.Unlock()
			return
		}
		t.done = true
		t.mu.Unlock()
		fn()
	})
	t.stop = context.AfterFunc(ctx, func() { t.Cancel() })
	return t
}

// Cancel prevents the fallback from running. It reports whether this call
// prevented it; cancelling twice, or after the fallback ran, returns false.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.cancelled = true
	t.timer.Stop()
	if t.stop != nil {
		t.stop()
	}
	return true
}

// Cancelled reports whether the task was cancelled before running.
func (t *Task) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}
