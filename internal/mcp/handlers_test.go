package mcp

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/uni61182/ayunis-legal-mcp-Fork/internal/catalog"
	"github.com/uni61182/ayunis-legal-mcp-Fork/internal/importer"
	"github.com/uni61182/ayunis-legal-mcp-Fork/internal/storage"
)

type fakeStore struct {
	searchResults []storage.SearchResult
	searchByCode  map[string][]storage.SearchResult
	searchCutoff  *float64
	searchLimit   int
	lookupResults []*storage.LegalText
	lookupFilter  storage.Filter
	codes         []string
	count         int
	err           error
}

func (f *fakeStore) SemanticSearch(ctx context.Context, queryVector []float32, code string, limit int, cutoff *float64) ([]storage.SearchResult, error) {
	f.searchLimit = limit
	f.searchCutoff = cutoff
	if f.searchByCode != nil {
		return f.searchByCode[code], f.err
	}
	return f.searchResults, f.err
}

func (f *fakeStore) Lookup(ctx context.Context, filter storage.Filter) ([]*storage.LegalText, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	f.lookupFilter = filter
	return f.lookupResults, f.err
}

func (f *fakeStore) ListCodes(ctx context.Context) ([]string, error) {
	return f.codes, f.err
}

func (f *fakeStore) CountByCode(ctx context.Context, code string) (int, error) {
	return f.count, f.err
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1}
	}
	return vectors, nil
}

type fakeCatalog struct {
	entries []catalog.Entry
	err     error
}

func (f *fakeCatalog) GetCatalog(ctx context.Context) ([]catalog.Entry, error) {
	return f.entries, f.err
}

func (f *fakeCatalog) IsValidCode(ctx context.Context, code string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, e := range f.entries {
		if e.Code == code {
			return true, nil
		}
	}
	return false, nil
}

type fakeImporter struct {
	result *importer.Result
	err    error
	code   string
}

func (f *fakeImporter) ImportCode(ctx context.Context, code string) (*importer.Result, error) {
	f.code = code
	return f.result, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// TestSearchHandler_DefaultsAndResults tests default limit/cutoff and result
// mapping.
func TestSearchHandler_DefaultsAndResults(t *testing.T) {
	store := &fakeStore{
		searchResults: []storage.SearchResult{
			{LegalText: storage.LegalText{Text: "(1) Text.", Code: "bgb", Section: "§ 823", SubSection: "1"}, Distance: 0.21},
		},
	}
	handler := makeSearchHandler(store, &fakeEmbedder{}, discard())

	_, out, err := handler(context.Background(), nil, SearchLegalTextsInput{Code: "bgb", Query: "Schadensersatz"})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	if store.searchLimit != defaultSearchLimit {
		t.Errorf("Limit: expected default %d, got %d", defaultSearchLimit, store.searchLimit)
	}
	if store.searchCutoff == nil || *store.searchCutoff != defaultSearchCutoff {
		t.Errorf("Cutoff: expected default %v, got %v", defaultSearchCutoff, store.searchCutoff)
	}
	if len(out.Results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(out.Results))
	}
	hit := out.Results[0]
	if hit.Section != "§ 823" || hit.SubSection != "1" || hit.Distance != 0.21 {
		t.Errorf("Hit: got %+v", hit)
	}
}

// TestSearchHandler_EmptyOutcome tests the no-match message and limit
// clamping.
func TestSearchHandler_EmptyOutcome(t *testing.T) {
	store := &fakeStore{}
	handler := makeSearchHandler(store, &fakeEmbedder{}, discard())

	_, out, err := handler(context.Background(), nil, SearchLegalTextsInput{Code: "bgb", Query: "x", Limit: 500})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if store.searchLimit != maxSearchLimit {
		t.Errorf("Limit: expected clamp to %d, got %d", maxSearchLimit, store.searchLimit)
	}
	if out.Message == "" || len(out.Results) != 0 {
		t.Errorf("Expected empty result with message, got %+v", out)
	}
}

// TestSearchHandler_InputErrors tests rejection of bad codes and empty
// queries before any backend call.
func TestSearchHandler_InputErrors(t *testing.T) {
	handler := makeSearchHandler(&fakeStore{}, &fakeEmbedder{}, discard())

	if _, _, err := handler(context.Background(), nil, SearchLegalTextsInput{Code: "no spaces", Query: "x"}); !errors.Is(err, importer.ErrInvalidCode) {
		t.Errorf("Expected ErrInvalidCode, got %v", err)
	}
	if _, _, err := handler(context.Background(), nil, SearchLegalTextsInput{Code: "bgb", Query: "   "}); err == nil {
		t.Error("Expected error for empty query")
	}
}

// TestSearchHandler_SanitizedInternalError tests that backend failures are
// replaced with a correlation ID.
func TestSearchHandler_SanitizedInternalError(t *testing.T) {
	store := &fakeStore{err: errors.New("pq: connection reset at 10.0.0.7")}
	handler := makeSearchHandler(store, &fakeEmbedder{}, discard())

	_, _, err := handler(context.Background(), nil, SearchLegalTextsInput{Code: "bgb", Query: "x"})
	if err == nil {
		t.Fatal("Expected error")
	}
	if strings.Contains(err.Error(), "10.0.0.7") {
		t.Errorf("Backend details leaked: %v", err)
	}
	if !strings.Contains(err.Error(), "error id") {
		t.Errorf("Expected a correlation ID, got %v", err)
	}
}

// TestSearchAllHandler tests cross-code merging, distance ordering and the
// per-code limit clamp.
func TestSearchAllHandler(t *testing.T) {
	store := &fakeStore{
		codes: []string{"bgb", "stgb"},
		searchByCode: map[string][]storage.SearchResult{
			"bgb": {
				{LegalText: storage.LegalText{Code: "bgb", Section: "§ 823"}, Distance: 0.4},
			},
			"stgb": {
				{LegalText: storage.LegalText{Code: "stgb", Section: "§ 303"}, Distance: 0.2},
			},
		},
	}
	handler := makeSearchAllHandler(store, &fakeEmbedder{}, discard())

	_, out, err := handler(context.Background(), nil, SearchAllLegalTextsInput{Query: "Sachbeschädigung", Limit: 100})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if out.CodesSearched != 2 {
		t.Errorf("CodesSearched: expected 2, got %d", out.CodesSearched)
	}
	if store.searchLimit != maxSearchAllLimit {
		t.Errorf("Limit: expected clamp to %d, got %d", maxSearchAllLimit, store.searchLimit)
	}
	if len(out.Results) != 2 {
		t.Fatalf("Expected 2 merged results, got %d", len(out.Results))
	}
	// Sorted by ascending distance regardless of code order.
	if out.Results[0].Code != "stgb" || out.Results[1].Code != "bgb" {
		t.Errorf("Merge order: got %+v", out.Results)
	}
}

// TestGetSectionHandler tests citation lookup mapping and filter errors.
func TestGetSectionHandler(t *testing.T) {
	store := &fakeStore{
		lookupResults: []*storage.LegalText{
			{Text: "(1) Text.", Code: "bgb", Section: "§ 823", SubSection: "1"},
			{Text: "(2) Mehr.", Code: "bgb", Section: "§ 823", SubSection: "2"},
		},
	}
	handler := makeGetSectionHandler(store, discard())

	_, out, err := handler(context.Background(), nil, GetLegalSectionInput{Code: "bgb", Section: "§ 823"})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if out.Count != 2 || len(out.Texts) != 2 {
		t.Fatalf("Expected 2 texts, got %+v", out)
	}
	if store.lookupFilter.Code != "bgb" || store.lookupFilter.Section != "§ 823" {
		t.Errorf("Filter: got %+v", store.lookupFilter)
	}

	// A sub-section without a section is a caller error, passed through.
	_, _, err = handler(context.Background(), nil, GetLegalSectionInput{Code: "bgb", SubSection: "1"})
	if !errors.Is(err, storage.ErrInvalidFilter) {
		t.Errorf("Expected ErrInvalidFilter, got %v", err)
	}
}

// TestCatalogHandler tests substring filtering, limiting and per-entry
// import status.
func TestCatalogHandler(t *testing.T) {
	store := &fakeStore{codes: []string{"stgb"}}
	cat := &fakeCatalog{entries: []catalog.Entry{
		{Code: "bgb", Title: "Bürgerliches Gesetzbuch", URL: "https://www.gesetze-im-internet.de/bgb/xml.zip"},
		{Code: "stgb", Title: "Strafgesetzbuch", URL: "https://www.gesetze-im-internet.de/stgb/xml.zip"},
		{Code: "stvo", Title: "Straßenverkehrs-Ordnung", URL: "https://www.gesetze-im-internet.de/stvo/xml.zip"},
	}}
	handler := makeCatalogHandler(store, cat, discard())

	_, out, err := handler(context.Background(), nil, GetCatalogEntriesInput{Search: "STRAF"})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if out.Count != 1 || out.Entries[0].Code != "stgb" {
		t.Errorf("Filtered entries: got %+v", out)
	}
	if !out.Entries[0].IsImported {
		t.Error("stgb should be marked imported")
	}
	if out.Total != 3 {
		t.Errorf("Total: expected 3, got %d", out.Total)
	}

	_, out, err = handler(context.Background(), nil, GetCatalogEntriesInput{Limit: 2})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if out.Count != 2 || len(out.Entries) != 2 {
		t.Errorf("Limited entries: got %+v", out)
	}
	if out.Entries[0].IsImported {
		t.Error("bgb should not be marked imported")
	}
}

// TestCodeInfoHandler tests the combined catalog and store view, including
// catalog outage degradation and the metadata-only distinction.
func TestCodeInfoHandler(t *testing.T) {
	store := &fakeStore{count: 120}
	cat := &fakeCatalog{entries: []catalog.Entry{
		{Code: "bgb", Title: "Bürgerliches Gesetzbuch", URL: "https://www.gesetze-im-internet.de/bgb/xml.zip"},
	}}
	handler := makeCodeInfoHandler(store, cat, discard())

	_, out, err := handler(context.Background(), nil, GetLegalCodeInfoInput{Code: "BGB"})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if out.Code != "bgb" || !out.InCatalog || out.Title != "Bürgerliches Gesetzbuch" {
		t.Errorf("Info: got %+v", out)
	}
	if !out.IsImported || !out.HasFullText || out.SectionCount != 120 {
		t.Errorf("Import status: got %+v", out)
	}
	if out.PDFURL != "https://www.gesetze-im-internet.de/bgb/bgb.pdf" {
		t.Errorf("PDFURL: got %q", out.PDFURL)
	}
	if !strings.Contains(out.Message, "120") {
		t.Errorf("Message: got %q", out.Message)
	}

	// A single "Metadaten" unit means no searchable full text.
	metaOnly := &fakeStore{
		count: 1,
		lookupResults: []*storage.LegalText{
			{Text: "[METADATA-ONLY] ...", Code: "dba_usa", Section: "Metadaten"},
		},
	}
	handler = makeCodeInfoHandler(metaOnly, cat, discard())
	_, out, err = handler(context.Background(), nil, GetLegalCodeInfoInput{Code: "dba_usa"})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !out.IsImported || out.HasFullText {
		t.Errorf("Metadata-only status: got %+v", out)
	}
	if out.Title != "DBA_USA" {
		t.Errorf("Title fallback: got %q", out.Title)
	}

	// Catalog outage: still answer from the store.
	down := &fakeCatalog{err: errors.New("feed down")}
	handler = makeCodeInfoHandler(&fakeStore{count: 0}, down, discard())
	_, out, err = handler(context.Background(), nil, GetLegalCodeInfoInput{Code: "bgb"})
	if err != nil {
		t.Fatalf("handler should tolerate catalog outage: %v", err)
	}
	if out.InCatalog || out.IsImported || out.SectionCount != 0 {
		t.Errorf("Degraded info: got %+v", out)
	}
}

// TestImportHandler tests outcome reporting and error classification.
func TestImportHandler(t *testing.T) {
	imp := &fakeImporter{result: &importer.Result{Code: "bgb", TextsImported: 2385}}
	handler := makeImportHandler(imp, discard())

	_, out, err := handler(context.Background(), nil, ImportLegalCodeInput{Code: "bgb"})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if out.TextsImported != 2385 || !strings.Contains(out.Message, "2385") {
		t.Errorf("Output: got %+v", out)
	}

	// Caller-addressable failures pass through unchanged.
	imp = &fakeImporter{err: importer.ErrUnknownCode}
	handler = makeImportHandler(imp, discard())
	if _, _, err := handler(context.Background(), nil, ImportLegalCodeInput{Code: "nosuchlaw"}); !errors.Is(err, importer.ErrUnknownCode) {
		t.Errorf("Expected ErrUnknownCode, got %v", err)
	}

	// Infrastructure failures are sanitized.
	imp = &fakeImporter{err: errors.New("pgx: broken pipe")}
	handler = makeImportHandler(imp, discard())
	_, _, err = handler(context.Background(), nil, ImportLegalCodeInput{Code: "bgb"})
	if err == nil || strings.Contains(err.Error(), "broken pipe") {
		t.Errorf("Expected sanitized error, got %v", err)
	}
}
