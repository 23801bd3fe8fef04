package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
)

// HTTPFetcher implements ImageFetcher over plain HTTP(S) with a small
// retry budget for transient upstream failures.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates a fetcher with connection pooling sized for
// one-off image downloads. maxBytes caps the response body.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxBytes: maxBytes,
	}
}

// Fetch downloads the image bytes. 4xx responses fail immediately;
// network errors and 5xx responses are retried up to three attempts.
func (f *HTTPFetcher) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	var body []byte

	err := retry.Do(
		func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
			if err != nil {
				return fmt.Errorf("invalid URL: %w", err)
			}
			req.Header.Set("Accept", "image/jpeg, image/png, image/gif, image/bmp, */*")
			req.Header.Set("User-Agent", "go-receipt-scanner/1.0")

			resp, err := f.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return &statusError{code: resp.StatusCode}
			}

			contentType := resp.Header.Get("Content-Type")
			if contentType != "" && !strings.HasPrefix(contentType, "image/") {
				return &statusError{code: resp.StatusCode, badContentType: contentType}
			}

			body, err = io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
			return err
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	return body, nil
}

type statusError struct {
	code           int
	badContentType string
}

func (e *statusError) Error() string {
	if e.badContentType != "" {
		return fmt.Sprintf("unexpected content type %q", e.badContentType)
	}
	return fmt.Sprintf("unexpected status code %d", e.code)
}

// isTransient keeps client errors and content-type mismatches out of
// the retry loop; only network failures and 5xx responses are retried.
func isTransient(err error) bool {
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return statusErr.badContentType == "" && statusErr.code >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
