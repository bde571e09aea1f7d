// Package downloader fetches the GTFS feeds over HTTP. Both poll loops
// go through a Downloader so that no network fetch ever happens while
// the store lock is held, and so tests can stub the transport.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GetOptions control a single fetch. With Cache set, implementations
// may serve a previously fetched body until CacheTTL has passed.
type GetOptions struct {
	MaxSize  int
	Timeout  time.Duration
	Cache    bool
	CacheTTL time.Duration
}

type Downloader interface {
	Get(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error)
}

// fetch performs one uncached HTTP GET, honouring the timeout and size
// limit from options.
func fetch(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	client := &http.Client{Timeout: options.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}

	var body io.Reader = resp.Body
	if options.MaxSize > 0 {
		body = io.LimitReader(body, int64(options.MaxSize))
	}

	buf, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return buf, nil
}
