package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const acceptHeader = "application/rss+xml, application/xml, text/xml, application/atom+xml"

// FetchError reports a non-2xx response or transport failure for one feed.
// A fetch failure abandons that source for the current pass; it is never
// fatal to the monitoring loop.
type FetchError struct {
	URL     string
	Status  int
	Message string
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d %s", e.URL, e.Status, e.Message)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(client *http.Client, userAgent string) *Fetcher {
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
	}
}

// Run performs a single GET for the feed URL. No retries: the caller decides
// whether to try again on a later pass.
func (f *Fetcher) Run(ctx context.Context, feedURL string, timeout time.Duration) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: feedURL, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: feedURL, Status: resp.StatusCode, Message: resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: feedURL, Message: err.Error()}
	}

	return data, nil
}
