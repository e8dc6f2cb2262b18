package engine

import (
	"sync"
	"time"
)

// autosaver coalesces rapid updates into a single trailing-edge write.
// Every Trigger re-arms the timer; only the most recent state is
// written when it fires.
type autosaver struct {
	interval time.Duration
	save     func()

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	stopped bool
}

func newAutosaver(interval time.Duration, save func()) *autosaver {
	return &autosaver{interval: interval, save: save}
}

// Trigger marks a save pending and (re)arms the debounce timer.
func (a *autosaver) Trigger() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}

	a.pending = true
	if a.timer == nil {
		a.timer = time.AfterFunc(a.interval, a.fire)
	} else {
		a.timer.Reset(a.interval)
	}
}

// Drop discards any pending save without writing it.
func (a *autosaver) Drop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = false
	if a.timer != nil {
		a.timer.Stop()
	}
}

// Stop disables the autosaver permanently.
func (a *autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	a.pending = false
	if a.timer != nil {
		a.timer.Stop()
	}
}

func (a *autosaver) fire() {
	a.mu.Lock()
	if !a.pending || a.stopped {
		a.mu.Unlock()
		return
	}
	a.pending = false
	a.mu.Unlock()

	a.save()
}
