// Package ocr wraps the external recognition engine behind a small
// adapter: it configures the engine, translates its output into a
// RawOCRResult and turns engine failures into the application's OCR
// error kind. No recognition logic lives here.
package ocr

import "context"

// RawOCRResult is the transient product of one recognition pass. It is
// consumed immediately by the receipt parser and never persisted.
type RawOCRResult struct {
	// Text is the full recognized document text including line breaks.
	Text string

	// Confidence summarizes the engine's estimate of correctness,
	// normalized to 0-1 regardless of the engine's native scale.
	Confidence float64
}

// ProgressFunc receives recognition progress as a percentage. Values
// are non-decreasing and reach 100 on success; no guarantee is made
// about when they fire relative to wall-clock time.
type ProgressFunc func(percent int)

// TextExtractor produces raw text from image bytes. Implementations
// hold no cross-call state; concurrent invocations are independent.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte, progress ProgressFunc) (RawOCRResult, error)
}

// progressReporter enforces the monotonic, clamped progress contract on
// behalf of implementations.
type progressReporter struct {
	fn   ProgressFunc
	last int
}

func (r *progressReporter) report(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent < r.last {
		percent = r.last
	}
	r.last = percent
	if r.fn != nil {
		r.fn(percent)
	}
}
