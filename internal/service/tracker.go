package service

import (
	"context"
	"sync"
)

// scanTracker enforces one live scan per principal. Beginning a new
// scan cancels the previous in-flight one; the superseded scan's result
// is discarded.
type scanTracker struct {
	mu     sync.Mutex
	cancel map[string]context.CancelFunc
	gen    map[string]uint64
}

func newScanTracker() *scanTracker {
	return &scanTracker{
		cancel: make(map[string]context.CancelFunc),
		gen:    make(map[string]uint64),
	}
}

// begin registers a new scan for the principal, cancelling any scan
// already in flight, and returns the new scan's generation.
func (t *scanTracker) begin(principal string, cancel context.CancelFunc) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.cancel[principal]; ok {
		prev()
	}
	t.gen[principal]++
	t.cancel[principal] = cancel
	return t.gen[principal]
}

// isCurrent reports whether the scan of the given generation is still
// the principal's latest submission.
func (t *scanTracker) isCurrent(principal string, gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen[principal] == gen
}

// end clears the principal's slot if it still belongs to this scan.
func (t *scanTracker) end(principal string, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.gen[principal] == gen {
		delete(t.cancel, principal)
	}
}
