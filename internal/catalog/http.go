package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FeedURL is the official catalog feed location.
const FeedURL = "https://www.gesetze-im-internet.de/gii-toc.xml"

const fetchTimeout = 30 * time.Second

// HTTPFetcher retrieves the catalog feed over HTTP.
type HTTPFetcher struct {
	client *http.Client
	url    string
}

// NewHTTPFetcher creates a fetcher for the official feed. A nil client gets
// a default with a 30 second timeout.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &HTTPFetcher{client: client, url: FeedURL}
}

// FetchCatalogFeed downloads the raw feed bytes.
func (f *HTTPFetcher) FetchCatalogFeed(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch catalog feed: unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
