package ocr

import (
	"context"

	"github.com/otiai10/gosseract/v2"

	apperrors "go-receipt-scanner/internal/errors"
)

// TesseractExtractor adapts the Tesseract engine (via gosseract) to the
// TextExtractor contract.
type TesseractExtractor struct {
	language string
	pool     *slotPool
}

// NewTesseractExtractor creates an extractor configured for the given
// language ("eng" when empty). maxConcurrent bounds simultaneous engine
// invocations; zero means one per CPU.
func NewTesseractExtractor(language string, maxConcurrent int) *TesseractExtractor {
	if language == "" {
		language = "eng"
	}
	return &TesseractExtractor{
		language: language,
		pool:     newSlotPool(maxConcurrent),
	}
}

// ExtractText runs one recognition pass over the image bytes. Any
// engine failure (corrupt file, unsupported encoding, internal error)
// is returned as the OCR error kind with the engine message attached;
// no partial result is produced. Progress reaches 100 only on success.
func (e *TesseractExtractor) ExtractText(ctx context.Context, image []byte, progress ProgressFunc) (RawOCRResult, error) {
	reporter := &progressReporter{fn: progress}
	reporter.report(0)

	if err := e.pool.acquire(ctx); err != nil {
		return RawOCRResult{}, err
	}
	defer e.pool.release()

	if err := ctx.Err(); err != nil {
		return RawOCRResult{}, err
	}
	reporter.report(10)

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.language); err != nil {
		return RawOCRResult{}, apperrors.NewOCRError("failed to configure recognition language", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return RawOCRResult{}, apperrors.NewOCRError("engine rejected image", err)
	}
	reporter.report(25)

	text, err := client.Text()
	if err != nil {
		return RawOCRResult{}, apperrors.NewOCRError("recognition failed", err)
	}
	reporter.report(90)

	if err := ctx.Err(); err != nil {
		return RawOCRResult{}, err
	}

	result := RawOCRResult{
		Text:       text,
		Confidence: e.meanWordConfidence(client),
	}
	reporter.report(100)
	return result, nil
}

// meanWordConfidence averages Tesseract's per-word confidences and
// normalizes the engine's 0-100 scale to 0-1. A receipt with no
// recognized words scores zero.
func (e *TesseractExtractor) meanWordConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}

	var sum float64
	for _, box := range boxes {
		sum += box.Confidence
	}
	return sum / float64(len(boxes)) / 100
}
