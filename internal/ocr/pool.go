package ocr

import (
	"context"
	"runtime"
)

// slotPool bounds the number of engine invocations running at once.
// Tesseract clients are not safe for concurrent use and each holds a
// native context, so every extraction takes a slot, creates a fresh
// client and releases the slot when recognition ends.
type slotPool struct {
	slots chan struct{}
}

func newSlotPool(size int) *slotPool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &slotPool{slots: make(chan struct{}, size)}
	for i := 0; i < size; i++ {
		p.slots <- struct{}{}
	}
	return p
}

// acquire blocks until a slot is free or the context is done.
func (p *slotPool) acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.slots:
		return nil
	}
}

func (p *slotPool) release() {
	p.slots <- struct{}{}
}
