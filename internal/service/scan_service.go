// Package service orchestrates the scan pipeline: quality preflight,
// text extraction, parsing and event publication.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"time"

	"go-receipt-scanner/internal/imagecheck"
	"go-receipt-scanner/internal/logger"
	"go-receipt-scanner/internal/observer"
	"go-receipt-scanner/internal/ocr"
	"go-receipt-scanner/internal/receipt"
	"go-receipt-scanner/internal/storage"

	apperrors "go-receipt-scanner/internal/errors"
)

// ErrScanSuperseded signals that a newer submission from the same
// principal replaced this scan before it finished.
var ErrScanSuperseded = errors.New("scan superseded by a newer submission")

// ScanResult is the full product of one receipt scan.
type ScanResult struct {
	FileName          string                       `json:"fileName,omitempty"`
	SourceURL         string                       `json:"sourceUrl,omitempty"`
	Timestamp         string                       `json:"timestamp"`
	ProcessingTimeSec float64                      `json:"processingTimeSec"`
	OCRText           string                       `json:"ocrText"`
	Confidence        float64                      `json:"confidence"`
	ExtractedData     receipt.ExtractedReceiptData `json:"extractedData"`
	QualityWarnings   []string                     `json:"qualityWarnings,omitempty"`
	Accuracy          *ocr.AccuracyReport          `json:"accuracy,omitempty"`
}

// ScanService runs the receipt scan pipeline for uploads and remote
// URLs. Per principal, only the latest submission survives; an older
// in-flight scan is cancelled and reported as superseded.
type ScanService interface {
	ScanUpload(ctx context.Context, principal, filename string, data []byte, expectedText string, progress ocr.ProgressFunc) (*ScanResult, error)
	ScanURL(ctx context.Context, principal, imageURL, expectedText string, progress ocr.ProgressFunc) (*ScanResult, error)
}

type scanService struct {
	extractor  ocr.TextExtractor
	files      storage.FileStore
	fetcher    storage.ImageFetcher
	publisher  observer.Subject
	tracker    *scanTracker
	ocrTimeout time.Duration
}

// NewScanService wires the pipeline's collaborators together.
func NewScanService(
	extractor ocr.TextExtractor,
	files storage.FileStore,
	fetcher storage.ImageFetcher,
	publisher observer.Subject,
	ocrTimeout time.Duration,
) ScanService {
	return &scanService{
		extractor:  extractor,
		files:      files,
		fetcher:    fetcher,
		publisher:  publisher,
		tracker:    newScanTracker(),
		ocrTimeout: ocrTimeout,
	}
}

// ScanUpload stores the uploaded image and runs the scan pipeline over
// it. The stored file is removed again if the scan fails.
func (s *scanService) ScanUpload(ctx context.Context, principal, filename string, data []byte, expectedText string, progress ocr.ProgressFunc) (*ScanResult, error) {
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("empty image upload", nil)
	}

	storedName, err := s.files.Save(ctx, fmt.Sprintf("%d-%s", time.Now().UnixNano(), filename), data)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to store uploaded image", err)
	}

	result, err := s.run(ctx, principal, storedName, data, expectedText, progress)
	if err != nil {
		// The stored file is only useful alongside a scan result.
		if delErr := s.files.Delete(context.Background(), storedName); delErr != nil {
			logger.WithError(delErr).WithField("file", storedName).Warn("Failed to remove stored image after scan failure")
		}
		return nil, err
	}

	result.FileName = storedName
	return result, nil
}

// ScanURL downloads the image and runs the scan pipeline over it. The
// image is not persisted.
func (s *scanService) ScanURL(ctx context.Context, principal, imageURL, expectedText string, progress ocr.ProgressFunc) (*ScanResult, error) {
	if err := validateImageURL(imageURL); err != nil {
		return nil, apperrors.NewValidationError("invalid image URL", err)
	}

	data, err := s.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		s.publisher.NotifyObservers(ctx, observer.ScanEvent{
			EventType:    observer.ImageFetchFailed,
			Timestamp:    time.Now(),
			Source:       imageURL,
			ErrorMessage: err.Error(),
		})
		return nil, apperrors.NewNetworkError("failed to fetch image", err)
	}
	s.publisher.NotifyObservers(ctx, observer.ScanEvent{
		EventType: observer.ImageFetched,
		Timestamp: time.Now(),
		Source:    imageURL,
		Success:   true,
		Metadata:  map[string]interface{}{"bytes": len(data)},
	})

	result, err := s.run(ctx, principal, imageURL, data, expectedText, progress)
	if err != nil {
		return nil, err
	}
	result.SourceURL = imageURL
	return result, nil
}

// run is the shared pipeline: preflight, OCR, parse, score.
func (s *scanService) run(ctx context.Context, principal, source string, data []byte, expectedText string, progress ocr.ProgressFunc) (*ScanResult, error) {
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	gen := s.tracker.begin(principal, cancel)
	defer s.tracker.end(principal, gen)

	started := time.Now()
	s.publisher.NotifyObservers(ctx, observer.ScanEvent{
		EventType: observer.ScanStarted,
		Timestamp: started,
		Source:    source,
	})

	// Preflight is advisory. An image the decoder cannot read still goes
	// to the OCR engine, which has its own format support.
	var warnings []string
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		warnings = imagecheck.Inspect(img).Warnings
	}

	ocrCtx, cancelOCR := context.WithTimeout(scanCtx, s.ocrTimeout)
	defer cancelOCR()

	raw, err := s.extractor.ExtractText(ocrCtx, data, progress)
	if err != nil {
		return nil, s.failed(ctx, principal, gen, source, started, err)
	}
	if !s.tracker.isCurrent(principal, gen) {
		return nil, s.failed(ctx, principal, gen, source, started, ErrScanSuperseded)
	}

	extracted := receipt.Parse(raw.Text)

	result := &ScanResult{
		Timestamp:         started.UTC().Format(time.RFC3339),
		ProcessingTimeSec: time.Since(started).Seconds(),
		OCRText:           raw.Text,
		Confidence:        raw.Confidence,
		ExtractedData:     extracted,
		QualityWarnings:   warnings,
	}
	if expectedText != "" {
		report := ocr.ScoreAccuracy(raw.Text, expectedText)
		result.Accuracy = &report
	}

	s.publisher.NotifyObservers(ctx, observer.ScanEvent{
		EventType:      observer.ScanCompleted,
		Timestamp:      time.Now(),
		Source:         source,
		ProcessingTime: time.Since(started),
		Success:        true,
		Metadata: map[string]interface{}{
			"confidence": raw.Confidence,
			"category":   extracted.Category,
		},
	})
	return result, nil
}

// failed classifies a pipeline error, publishes the matching event and
// returns the error the transport layer should surface.
func (s *scanService) failed(ctx context.Context, principal string, gen uint64, source string, started time.Time, err error) error {
	elapsed := time.Since(started)

	superseded := errors.Is(err, ErrScanSuperseded) ||
		(errors.Is(err, context.Canceled) && !s.tracker.isCurrent(principal, gen))
	if superseded {
		s.publisher.NotifyObservers(ctx, observer.ScanEvent{
			EventType:      observer.ScanSuperseded,
			Timestamp:      time.Now(),
			Source:         source,
			ProcessingTime: elapsed,
			ErrorMessage:   ErrScanSuperseded.Error(),
		})
		return apperrors.NewConflictError("scan superseded by a newer submission", ErrScanSuperseded)
	}

	s.publisher.NotifyObservers(ctx, observer.ScanEvent{
		EventType:      observer.ScanFailed,
		Timestamp:      time.Now(),
		Source:         source,
		ProcessingTime: elapsed,
		ErrorMessage:   err.Error(),
	})

	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("text extraction timed out", err)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.NewOCRError("text extraction failed", err)
}

func validateImageURL(imageURL string) error {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}
