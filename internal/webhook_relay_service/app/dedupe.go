package app

import (
	"sync"
	"time"
)

// DedupeWindow remembers provider message ids for a fixed duration.
type DedupeWindow struct {
	mu        sync.Mutex
	ttl       time.Duration
	seen      map[string]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// NewDedupeWindow returns nil for ttl <= 0, which disables deduplication.
func NewDedupeWindow(ttl time.Duration) *DedupeWindow {
	if ttl <= 0 {
		return nil
	}
	return &DedupeWindow{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

// SeenRecently records id and reports whether it was already recorded within
// the window. Empty ids are never considered duplicates.
func (w *DedupeWindow) SeenRecently(id string) bool {
	if w == nil || id == "" {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.sweepLocked(now)

	if at, ok := w.seen[id]; ok && now.Sub(at) < w.ttl {
		return true
	}
	w.seen[id] = now
	return false
}

// sweepLocked drops expired ids at most once per ttl, so the map stays
// bounded by the ids seen in roughly two windows.
func (w *DedupeWindow) sweepLocked(now time.Time) {
	if w.lastSweep.IsZero() {
		w.lastSweep = now
		return
	}
	if now.Sub(w.lastSweep) < w.ttl {
		return
	}
	for key, at := range w.seen {
		if now.Sub(at) >= w.ttl {
			delete(w.seen, key)
		}
	}
	w.lastSweep = now
}
