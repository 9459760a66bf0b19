// Package mcp exposes the legal text store and importer as Model Context
// Protocol tools.
package mcp

// SearchLegalTextsInput defines the input parameters for the
// search_legal_texts tool.
type SearchLegalTextsInput struct {
	// Code is the legal code to search within (e.g. "bgb").
	Code string `json:"code" jsonschema:"required,description=The legal code to search within (e.g. bgb or stgb)"`
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=The semantic search query in natural language"`
	// Limit is the maximum number of sections to return.
	Limit int `json:"limit,omitempty" jsonschema:"minimum=1,maximum=50,default=10,description=Maximum number of sections to return"`
	// Cutoff is the maximum cosine distance for a match (0-2).
	Cutoff *float64 `json:"cutoff,omitempty" jsonschema:"minimum=0,maximum=2,default=0.7,description=Maximum cosine distance for a match (lower is closer)"`
}

// SearchLegalTextsOutput contains the search results.
type SearchLegalTextsOutput struct {
	// Results is the list of matching sections, closest first.
	Results []SearchHit `json:"results"`
	// Message provides informational context when no results match.
	Message string `json:"message,omitempty"`
}

// SearchHit is a single section match from semantic search.
type SearchHit struct {
	// Text is the full section text.
	Text string `json:"text"`
	// Code is the legal code the section belongs to.
	Code string `json:"code"`
	// Section is the section label (e.g. "§ 823").
	Section string `json:"section"`
	// SubSection is the paragraph number within the section, if any.
	SubSection string `json:"sub_section,omitempty"`
	// Distance is the cosine distance to the query (0 = identical).
	Distance float64 `json:"distance"`
}

// SearchAllLegalTextsInput defines the input parameters for the
// search_all_legal_texts tool.
type SearchAllLegalTextsInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=The semantic search query in natural language"`
	// Limit is the maximum number of sections to return per code.
	Limit int `json:"limit,omitempty" jsonschema:"minimum=1,maximum=20,default=10,description=Maximum number of sections to return per legal code"`
	// Cutoff is the maximum cosine distance for a match (0-2).
	Cutoff *float64 `json:"cutoff,omitempty" jsonschema:"minimum=0,maximum=2,default=0.7,description=Maximum cosine distance for a match (lower is closer)"`
}

// SearchAllLegalTextsOutput contains the merged cross-code results.
type SearchAllLegalTextsOutput struct {
	// Results is the merged matches across all codes, closest first.
	Results []SearchHit `json:"results"`
	// CodesSearched is the number of imported codes that were searched.
	CodesSearched int `json:"codes_searched"`
	// Message provides informational context when no results match.
	Message string `json:"message,omitempty"`
}

// GetLegalSectionInput defines the input parameters for the
// get_legal_section tool.
type GetLegalSectionInput struct {
	// Code is the legal code to look up (e.g. "bgb").
	Code string `json:"code" jsonschema:"required,description=The legal code to look up (e.g. bgb)"`
	// Section is the section label (e.g. "§ 823").
	Section string `json:"section,omitempty" jsonschema:"description=The section label to look up (e.g. § 823)"`
	// SubSection narrows the lookup to one paragraph; requires Section.
	SubSection string `json:"sub_section,omitempty" jsonschema:"description=The paragraph number within the section; requires section"`
}

// GetLegalSectionOutput contains the citation lookup results.
type GetLegalSectionOutput struct {
	// Texts is the matching units ordered by section and sub-section.
	Texts []TextUnit `json:"texts"`
	// Count is the number of returned units.
	Count int `json:"count"`
	// Message provides informational context when nothing matches.
	Message string `json:"message,omitempty"`
}

// TextUnit is one stored legal text unit.
type TextUnit struct {
	// Text is the full unit text.
	Text string `json:"text"`
	// Code is the legal code the unit belongs to.
	Code string `json:"code"`
	// Section is the section label.
	Section string `json:"section"`
	// SubSection is the paragraph number within the section, if any.
	SubSection string `json:"sub_section,omitempty"`
}

// ListAvailableCodesInput defines the input parameters for the
// list_available_codes tool. It takes no parameters.
type ListAvailableCodesInput struct {
	// No input parameters required
}

// ListAvailableCodesOutput contains the codes currently in the store.
type ListAvailableCodesOutput struct {
	// Codes is the distinct imported codes, ascending.
	Codes []string `json:"codes"`
	// Count is the number of imported codes.
	Count int `json:"count"`
}

// GetCatalogEntriesInput defines the input parameters for the
// get_catalog_entries tool.
type GetCatalogEntriesInput struct {
	// Search filters entries by a case-insensitive title or code substring.
	Search string `json:"search,omitempty" jsonschema:"description=Case-insensitive substring filter on entry title or code"`
	// Limit caps the number of returned entries; 0 returns all.
	Limit int `json:"limit,omitempty" jsonschema:"minimum=0,default=0,description=Maximum number of entries to return; 0 returns all"`
}

// GetCatalogEntriesOutput contains the importable catalog entries.
type GetCatalogEntriesOutput struct {
	// Entries is the matching catalog entries.
	Entries []CatalogEntry `json:"entries"`
	// Count is the number of returned entries.
	Count int `json:"count"`
	// Total is the number of entries in the full catalog.
	Total int `json:"total"`
}

// CatalogEntry is one importable legal code in the official catalog.
type CatalogEntry struct {
	// Code is the short identifier used for import and lookup.
	Code string `json:"code"`
	// Title is the official title of the legal code.
	Title string `json:"title"`
	// URL is the source archive location.
	URL string `json:"url"`
	// IsImported indicates whether the code already has units in the store.
	IsImported bool `json:"is_imported"`
}

// GetLegalCodeInfoInput defines the input parameters for the
// get_legal_code_info tool.
type GetLegalCodeInfoInput struct {
	// Code is the legal code to describe (e.g. "bgb").
	Code string `json:"code" jsonschema:"required,description=The legal code to describe (e.g. bgb)"`
}

// GetLegalCodeInfoOutput describes one legal code.
type GetLegalCodeInfoOutput struct {
	// Code is the normalized code identifier.
	Code string `json:"code"`
	// Title is the official title from the catalog, if known.
	Title string `json:"title,omitempty"`
	// InCatalog indicates whether the code exists in the official catalog.
	InCatalog bool `json:"in_catalog"`
	// IsImported indicates whether the code has units in the store.
	IsImported bool `json:"is_imported"`
	// HasFullText indicates whether stored sections exist to search.
	HasFullText bool `json:"has_full_text"`
	// SectionCount is the number of stored units for the code.
	SectionCount int `json:"section_count"`
	// PDFURL points at the official PDF rendition.
	PDFURL string `json:"pdf_url"`
	// HTMLURL points at the official HTML rendition.
	HTMLURL string `json:"html_url"`
	// Message summarizes availability for the caller.
	Message string `json:"message"`
}

// ImportLegalCodeInput defines the input parameters for the
// import_legal_code tool.
type ImportLegalCodeInput struct {
	// Code is the legal code to import (e.g. "bgb").
	Code string `json:"code" jsonschema:"required,description=The legal code to import (e.g. bgb)"`
}

// ImportLegalCodeOutput reports the import outcome.
type ImportLegalCodeOutput struct {
	// Code is the normalized code that was imported.
	Code string `json:"code"`
	// TextsImported is the number of units written to the store.
	TextsImported int `json:"texts_imported"`
	// Message summarizes the outcome for the caller.
	Message string `json:"message"`
}
