package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"irve/pkg/utils"
)

// DefaultTimeout bounds a single catalog or resource request.
const DefaultTimeout = 60 * time.Second

// ErrUnexpectedStatusCode indicates an HTTP response with a non-2xx status.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

// Scraper performs single-attempt HTTP GETs. Redirects are followed by the
// underlying client and failures are returned as-is, without retry.
type Scraper struct {
	client  *http.Client
	helper  *utils.HTTPHelper
	headers http.Header
}

// NewScraper creates a new scraper instance with the default timeout.
func NewScraper() *Scraper {
	return NewScraperWithTimeout(DefaultTimeout)
}

// NewScraperWithTimeout creates a scraper whose client gives up after timeout.
func NewScraperWithTimeout(timeout time.Duration) *Scraper {
	return NewScraperWithClient(&http.Client{Timeout: timeout})
}

// NewScraperWithClient creates a scraper around an existing HTTP client.
func NewScraperWithClient(client *http.Client) *Scraper {
	helper := utils.NewHTTPHelper()

	return &Scraper{
		client:  client,
		helper:  helper,
		headers: helper.BuildHeaders(nil),
	}
}

// FetchWithMetrics returns (content, statusCode, duration, error).
func (s *Scraper) FetchWithMetrics(ctx context.Context, url string) ([]byte, int, time.Duration, error) {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, 0, time.Since(startTime), fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = s.headers.Clone()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, time.Since(startTime), fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if !s.helper.IsSuccessStatus(resp.StatusCode) {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil, resp.StatusCode, time.Since(startTime), fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, time.Since(startTime), fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, time.Since(startTime), nil
}

// Fetch fetches and returns the body of the given URL.
func (s *Scraper) Fetch(ctx context.Context, url string) ([]byte, error) {
	content, _, _, err := s.FetchWithMetrics(ctx, url)

	return content, err
}

// ReadLocalFileWithMetrics returns (content, fileSize, duration, error).
func (s *Scraper) ReadLocalFileWithMetrics(filePath string) ([]byte, int64, time.Duration, error) {
	startTime := time.Now()

	content, err := os.ReadFile(filePath)
	duration := time.Since(startTime)

	if err != nil {
		return nil, 0, duration, fmt.Errorf("failed to read local file %s: %w", filePath, err)
	}

	return content, int64(len(content)), duration, nil
}
