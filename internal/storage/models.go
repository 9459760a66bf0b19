// Package storage persists citable legal text units with their embedding
// vectors in Postgres and serves citation lookup and cosine-distance
// search through pgvector.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// VectorDimension is the embedding size the vector column is created with.
// It must match embedding.Dimension; a mismatch is a configuration error.
const VectorDimension = 1536

// TableName is the single table holding all imported units.
const TableName = "legal_texts"

// ConstraintName is the uniqueness constraint over the citation triple.
// Upserts resolve conflicts against it.
const ConstraintName = "uq_legal_texts_code_section_subsection"

// LegalText is one stored unit: the citable text keyed by its citation
// triple, plus its embedding and a content hash for change detection.
type LegalText struct {
	ID         int64
	Text       string
	Code       string
	Section    string
	SubSection string
	TextHash   string
	Vector     []float32
}

// SearchResult pairs a unit with its cosine distance to the query vector
// (0 = identical direction, 2 = opposite).
type SearchResult struct {
	LegalText
	Distance float64
}

// Filter selects units by citation. SubSection may only be set together
// with Section.
type Filter struct {
	Code       string
	Section    string
	SubSection string
}

// Validate rejects a sub-section filter supplied without a section.
func (f Filter) Validate() error {
	if f.SubSection != "" && f.Section == "" {
		return fmt.Errorf("%w: sub_section filter can only be used when section filter is also provided", ErrInvalidFilter)
	}
	return nil
}

// HashText returns the SHA-256 hex digest stored alongside a unit's text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
