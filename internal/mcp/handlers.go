package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/uni61182/ayunis-legal-mcp-Fork/internal/gii"
	"github.com/uni61182/ayunis-legal-mcp-Fork/internal/importer"
	"github.com/uni61182/ayunis-legal-mcp-Fork/internal/storage"
)

const (
	defaultSearchLimit  = 10
	maxSearchLimit      = 50
	maxSearchAllLimit   = 20
	defaultSearchCutoff = 0.7
)

// internalError logs the full failure under a correlation ID and returns a
// sanitized error carrying only that ID. Callers never see backend details.
func internalError(logger *slog.Logger, tool string, err error) error {
	errID := uuid.NewString()
	logger.Error("tool failed", "tool", tool, "error_id", errID, "error", err)
	return fmt.Errorf("%s failed, see server logs (error id %s)", tool, errID)
}

// makeSearchHandler creates the search_legal_texts tool handler.
// Embeds the query, then ranks the code's sections by cosine distance.
func makeSearchHandler(store Store, embedder Embedder, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, SearchLegalTextsInput,
) (*mcp.CallToolResult, SearchLegalTextsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchLegalTextsInput) (
		*mcp.CallToolResult, SearchLegalTextsOutput, error,
	) {
		code, err := importer.ValidateCode(input.Code)
		if err != nil {
			return nil, SearchLegalTextsOutput{}, err
		}
		if strings.TrimSpace(input.Query) == "" {
			return nil, SearchLegalTextsOutput{}, errors.New("query cannot be empty")
		}

		limit := input.Limit
		if limit <= 0 {
			limit = defaultSearchLimit
		}
		if limit > maxSearchLimit {
			limit = maxSearchLimit
		}
		cutoff := defaultSearchCutoff
		if input.Cutoff != nil {
			cutoff = *input.Cutoff
		}

		vectors, err := embedder.GenerateEmbeddings(ctx, []string{input.Query})
		if err != nil {
			return nil, SearchLegalTextsOutput{}, internalError(logger, "search_legal_texts", fmt.Errorf("embed query: %w", err))
		}

		matches, err := store.SemanticSearch(ctx, vectors[0], code, limit, &cutoff)
		if err != nil {
			return nil, SearchLegalTextsOutput{}, internalError(logger, "search_legal_texts", err)
		}

		results := make([]SearchHit, 0, len(matches))
		for _, m := range matches {
			results = append(results, SearchHit{
				Text:       m.Text,
				Code:       m.Code,
				Section:    m.Section,
				SubSection: m.SubSection,
				Distance:   m.Distance,
			})
		}

		if len(results) == 0 {
			return nil, SearchLegalTextsOutput{
				Results: []SearchHit{},
				Message: fmt.Sprintf("No sections of %q matched within the distance cutoff. Try broader terms, a higher cutoff, or import the code first.", code),
			}, nil
		}
		return nil, SearchLegalTextsOutput{Results: results}, nil
	}
}

// makeSearchAllHandler creates the search_all_legal_texts tool handler.
// Embeds the query once, searches every imported code, and merges the
// results by ascending distance. A failure in one code skips that code
// rather than aborting the whole search.
func makeSearchAllHandler(store Store, embedder Embedder, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, SearchAllLegalTextsInput,
) (*mcp.CallToolResult, SearchAllLegalTextsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchAllLegalTextsInput) (
		*mcp.CallToolResult, SearchAllLegalTextsOutput, error,
	) {
		if strings.TrimSpace(input.Query) == "" {
			return nil, SearchAllLegalTextsOutput{}, errors.New("query cannot be empty")
		}

		limit := input.Limit
		if limit <= 0 {
			limit = defaultSearchLimit
		}
		if limit > maxSearchAllLimit {
			limit = maxSearchAllLimit
		}
		cutoff := defaultSearchCutoff
		if input.Cutoff != nil {
			cutoff = *input.Cutoff
		}

		codes, err := store.ListCodes(ctx)
		if err != nil {
			return nil, SearchAllLegalTextsOutput{}, internalError(logger, "search_all_legal_texts", err)
		}

		vectors, err := embedder.GenerateEmbeddings(ctx, []string{input.Query})
		if err != nil {
			return nil, SearchAllLegalTextsOutput{}, internalError(logger, "search_all_legal_texts", fmt.Errorf("embed query: %w", err))
		}

		var results []SearchHit
		for _, code := range codes {
			matches, err := store.SemanticSearch(ctx, vectors[0], code, limit, &cutoff)
			if err != nil {
				logger.Warn("skipping code in cross-code search", "code", code, "error", err)
				continue
			}
			for _, m := range matches {
				results = append(results, SearchHit{
					Text:       m.Text,
					Code:       m.Code,
					Section:    m.Section,
					SubSection: m.SubSection,
					Distance:   m.Distance,
				})
			}
		}

		sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })

		out := SearchAllLegalTextsOutput{Results: results, CodesSearched: len(codes)}
		if len(results) == 0 {
			out.Results = []SearchHit{}
			out.Message = "No sections matched across the imported codes. Try broader terms or a higher cutoff."
		}
		return nil, out, nil
	}
}

// makeGetSectionHandler creates the get_legal_section tool handler.
// Exact citation lookup, ordered by section and sub-section.
func makeGetSectionHandler(store Store, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, GetLegalSectionInput,
) (*mcp.CallToolResult, GetLegalSectionOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetLegalSectionInput) (
		*mcp.CallToolResult, GetLegalSectionOutput, error,
	) {
		code, err := importer.ValidateCode(input.Code)
		if err != nil {
			return nil, GetLegalSectionOutput{}, err
		}

		units, err := store.Lookup(ctx, storage.Filter{
			Code:       code,
			Section:    input.Section,
			SubSection: input.SubSection,
		})
		if err != nil {
			if errors.Is(err, storage.ErrInvalidFilter) {
				return nil, GetLegalSectionOutput{}, err
			}
			return nil, GetLegalSectionOutput{}, internalError(logger, "get_legal_section", err)
		}

		texts := make([]TextUnit, 0, len(units))
		for _, u := range units {
			texts = append(texts, TextUnit{
				Text:       u.Text,
				Code:       u.Code,
				Section:    u.Section,
				SubSection: u.SubSection,
			})
		}

		out := GetLegalSectionOutput{Texts: texts, Count: len(texts)}
		if len(texts) == 0 {
			out.Message = fmt.Sprintf("No stored text for this citation in %q. The code may not be imported yet.", code)
		}
		return nil, out, nil
	}
}

// makeListCodesHandler creates the list_available_codes tool handler.
func makeListCodesHandler(store Store, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, ListAvailableCodesInput,
) (*mcp.CallToolResult, ListAvailableCodesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListAvailableCodesInput) (
		*mcp.CallToolResult, ListAvailableCodesOutput, error,
	) {
		codes, err := store.ListCodes(ctx)
		if err != nil {
			return nil, ListAvailableCodesOutput{}, internalError(logger, "list_available_codes", err)
		}
		return nil, ListAvailableCodesOutput{Codes: codes, Count: len(codes)}, nil
	}
}

// makeCatalogHandler creates the get_catalog_entries tool handler.
// Serves from the cached catalog; the substring filter matches title or
// code case-insensitively. Each entry carries its import status.
func makeCatalogHandler(store Store, cat Catalog, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, GetCatalogEntriesInput,
) (*mcp.CallToolResult, GetCatalogEntriesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetCatalogEntriesInput) (
		*mcp.CallToolResult, GetCatalogEntriesOutput, error,
	) {
		entries, err := cat.GetCatalog(ctx)
		if err != nil {
			return nil, GetCatalogEntriesOutput{}, internalError(logger, "get_catalog_entries", err)
		}

		codes, err := store.ListCodes(ctx)
		if err != nil {
			return nil, GetCatalogEntriesOutput{}, internalError(logger, "get_catalog_entries", err)
		}
		imported := make(map[string]bool, len(codes))
		for _, c := range codes {
			imported[strings.ToLower(c)] = true
		}

		needle := strings.ToLower(strings.TrimSpace(input.Search))
		matched := make([]CatalogEntry, 0, len(entries))
		for _, e := range entries {
			if needle != "" &&
				!strings.Contains(strings.ToLower(e.Title), needle) &&
				!strings.Contains(strings.ToLower(e.Code), needle) {
				continue
			}
			matched = append(matched, CatalogEntry{
				Code:       e.Code,
				Title:      e.Title,
				URL:        e.URL,
				IsImported: imported[strings.ToLower(e.Code)],
			})
		}

		if input.Limit > 0 && len(matched) > input.Limit {
			matched = matched[:input.Limit]
		}
		return nil, GetCatalogEntriesOutput{
			Entries: matched,
			Count:   len(matched),
			Total:   len(entries),
		}, nil
	}
}

// makeCodeInfoHandler creates the get_legal_code_info tool handler.
// Catalog metadata is best-effort: a catalog outage still yields import
// status and document URLs.
func makeCodeInfoHandler(store Store, cat Catalog, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, GetLegalCodeInfoInput,
) (*mcp.CallToolResult, GetLegalCodeInfoOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetLegalCodeInfoInput) (
		*mcp.CallToolResult, GetLegalCodeInfoOutput, error,
	) {
		code, err := importer.ValidateCode(input.Code)
		if err != nil {
			return nil, GetLegalCodeInfoOutput{}, err
		}

		out := GetLegalCodeInfoOutput{
			Code:    code,
			PDFURL:  gii.PDFURL(code),
			HTMLURL: gii.HTMLURL(code),
		}

		entries, err := cat.GetCatalog(ctx)
		if err != nil {
			logger.Warn("catalog unavailable for code info", "code", code, "error", err)
		} else {
			for _, e := range entries {
				if e.Code == code {
					out.InCatalog = true
					out.Title = e.Title
					break
				}
			}
		}
		if out.Title == "" {
			out.Title = strings.ToUpper(code)
		}

		count, err := store.CountByCode(ctx, code)
		if err != nil {
			return nil, GetLegalCodeInfoOutput{}, internalError(logger, "get_legal_code_info", err)
		}
		out.SectionCount = count
		out.IsImported = count > 0

		// A metadata-only import stores exactly one synthesized "Metadaten"
		// unit; anything else counts as full text.
		if out.IsImported {
			metaRows, err := store.Lookup(ctx, storage.Filter{Code: code, Section: "Metadaten"})
			if err != nil {
				return nil, GetLegalCodeInfoOutput{}, internalError(logger, "get_legal_code_info", err)
			}
			out.HasFullText = !(count == 1 && len(metaRows) == 1)
		}

		switch {
		case out.HasFullText:
			out.Message = fmt.Sprintf("Vollständig importiert mit %d Abschnitten. Nutze search_legal_texts oder get_legal_section für Abfragen.", count)
		case out.IsImported:
			out.Message = fmt.Sprintf("Importiert, aber nur Metadaten vorhanden. Lies das PDF für den vollständigen Text: %s", out.PDFURL)
		default:
			out.Message = fmt.Sprintf("Nicht importiert. Dies ist vermutlich ein internationales Abkommen oder Vertrag. Lies das PDF direkt: %s", out.PDFURL)
		}

		return nil, out, nil
	}
}

// makeImportHandler creates the import_legal_code tool handler.
func makeImportHandler(imp Importer, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, ImportLegalCodeInput,
) (*mcp.CallToolResult, ImportLegalCodeOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ImportLegalCodeInput) (
		*mcp.CallToolResult, ImportLegalCodeOutput, error,
	) {
		result, err := imp.ImportCode(ctx, input.Code)
		if err != nil {
			// Input-level failures carry actionable messages as-is.
			if errors.Is(err, importer.ErrInvalidCode) ||
				errors.Is(err, importer.ErrUnknownCode) ||
				errors.Is(err, importer.ErrNoTexts) {
				return nil, ImportLegalCodeOutput{}, err
			}
			return nil, ImportLegalCodeOutput{}, internalError(logger, "import_legal_code", err)
		}

		return nil, ImportLegalCodeOutput{
			Code:          result.Code,
			TextsImported: result.TextsImported,
			Message:       fmt.Sprintf("Imported %d sections of %q in %s.", result.TextsImported, result.Code, result.Duration.Round(time.Millisecond)),
		}, nil
	}
}
