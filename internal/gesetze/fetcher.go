// Package gesetze downloads full-text law documents from
// gesetze-im-internet.de. Each law is published as a ZIP archive holding a
// single gii-norm XML file.
package gesetze

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnavailable marks a document that could not be retrieved from the
// source (network failure or non-200 status).
var ErrUnavailable = errors.New("document source unavailable")

const (
	baseURL      = "https://www.gesetze-im-internet.de"
	fetchTimeout = 60 * time.Second
)

// Fetcher retrieves law documents and unwraps their ZIP container, so
// callers receive raw gii-norm XML bytes.
type Fetcher struct {
	client  *http.Client
	baseURL string
}

// NewFetcher creates a document fetcher. A nil client gets a default with a
// 60 second timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Fetcher{client: client, baseURL: baseURL}
}

// Fetch downloads the XML archive for a code and returns the extracted XML
// of its first member.
func (f *Fetcher) Fetch(ctx context.Context, code string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/xml.zip", f.baseURL, code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s for %s", ErrUnavailable, resp.Status, url)
	}

	archive, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return extractXML(archive)
}

// extractXML reads the first member of the ZIP archive.
func extractXML(archive []byte) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("open document archive: %w", err)
	}
	if len(reader.File) == 0 {
		return nil, errors.New("document archive is empty")
	}

	file, err := reader.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("open archive member %s: %w", reader.File[0].Name, err)
	}
	defer file.Close()

	return io.ReadAll(file)
}
