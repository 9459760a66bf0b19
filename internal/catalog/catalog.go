// Package catalog fetches and caches the index of importable legal codes
// published by gesetze-im-internet.de (the gii-toc feed).
package catalog

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html/charset"
)

var (
	// ErrFetch marks a catalog that could not be retrieved from the source.
	// Callers validating codes must treat this as "unknown", not "invalid".
	ErrFetch = errors.New("catalog fetch failed")
	// ErrParse marks a catalog payload that is not well-formed XML.
	ErrParse = errors.New("catalog parse failed")
)

// CacheTTL is how long a fetched catalog stays valid.
const CacheTTL = 24 * time.Hour

// Entry is one importable legal code from the catalog feed.
type Entry struct {
	Code  string
	Title string
	URL   string
}

// Fetcher retrieves the raw catalog feed bytes.
type Fetcher interface {
	FetchCatalogFeed(ctx context.Context) ([]byte, error)
}

// Service serves the catalog from a process-lifetime cache, refetching
// through its Fetcher once the cache ages past the TTL.
type Service struct {
	fetcher Fetcher
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.RWMutex
	entries   []Entry
	fetchedAt time.Time
}

// NewService creates a catalog service around the given fetcher.
func NewService(fetcher Fetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher: fetcher,
		ttl:     CacheTTL,
		logger:  logger,
		now:     time.Now,
	}
}

// GetCatalog returns the cached entries when fresh, otherwise fetches and
// parses the feed, replacing (entries, timestamp) atomically. Two callers
// observing an expired cache may both fetch; the last writer wins.
func (s *Service) GetCatalog(ctx context.Context) ([]Entry, error) {
	if entries, ok := s.cached(); ok {
		s.logger.Debug("using cached catalog", "entries", len(entries))
		return entries, nil
	}

	s.logger.Info("fetching fresh catalog")
	raw, err := s.fetcher.FetchCatalogFeed(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	entries, err := parseFeed(raw, s.logger)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.entries = entries
	s.fetchedAt = s.now()
	s.mu.Unlock()

	return entries, nil
}

// IsValidCode reports whether the catalog contains an entry whose code
// equals the argument exactly. Fetch failures propagate so callers can
// distinguish "unknown" from "invalid".
func (s *Service) IsValidCode(ctx context.Context, code string) (bool, error) {
	entries, err := s.GetCatalog(ctx)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) cached() ([]Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entries == nil || s.fetchedAt.IsZero() {
		return nil, false
	}
	if s.now().Sub(s.fetchedAt) >= s.ttl {
		return nil, false
	}
	return s.entries, true
}

// codePattern matches download URLs like
// https://www.gesetze-im-internet.de/bgb/xml.zip and captures the code.
var codePattern = regexp.MustCompile(`^https?://www\.gesetze-im-internet\.de/([^/]+)/xml\.zip$`)

type feedItem struct {
	Title string `xml:"title"`
	Link  string `xml:"link"`
}

// parseFeed decodes the feed XML into entries, skipping malformed items
// individually. Only an unparseable document aborts.
func parseFeed(raw []byte, logger *slog.Logger) ([]Entry, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charset.NewReaderLabel

	entries := []Entry{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "item" {
			continue
		}

		var item feedItem
		if err := dec.DecodeElement(&item, &start); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}

		title := strings.TrimSpace(item.Title)
		url := strings.TrimSpace(item.Link)
		if title == "" || url == "" {
			logger.Warn("skipping catalog item with empty title or url", "title", title, "url", url)
			continue
		}
		code := extractCode(url)
		if code == "" {
			logger.Warn("could not extract code from catalog url", "url", url)
			continue
		}
		entries = append(entries, Entry{Code: code, Title: title, URL: url})
	}

	logger.Info("parsed catalog", "entries", len(entries))
	return entries, nil
}

func extractCode(url string) string {
	m := codePattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}
