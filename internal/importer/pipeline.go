// Package importer sequences a full legal code import: validation, catalog
// check, document fetch, parsing, citation extraction, embedding and
// storage.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/uni61182/ayunis-legal-mcp-Fork/internal/gii"
	"github.com/uni61182/ayunis-legal-mcp-Fork/internal/storage"
)

var (
	// ErrInvalidCode marks a code that fails surface syntax validation.
	// Nothing is fetched or parsed for such input.
	ErrInvalidCode = errors.New("invalid legal code")
	// ErrUnknownCode marks a code the catalog confirmed does not exist.
	ErrUnknownCode = errors.New("unknown legal code")
	// ErrNoTexts marks an import whose document yielded zero units.
	ErrNoTexts = errors.New("no legal texts found")
)

// MaxCodeLength bounds accepted code identifiers.
const MaxCodeLength = 50

// Codes are path segments of the source URL; restricting the alphabet
// keeps request construction injection-free.
var codePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ValidateCode normalizes a code to lowercase and rejects anything outside
// the allowed alphabet or length bound.
func ValidateCode(code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("%w: code cannot be empty", ErrInvalidCode)
	}
	if len(code) > MaxCodeLength {
		return "", fmt.Errorf("%w: code too long, maximum %d characters", ErrInvalidCode, MaxCodeLength)
	}
	code = strings.ToLower(code)
	if !codePattern.MatchString(code) {
		return "", fmt.Errorf("%w: code must contain only letters, numbers, hyphens, and underscores", ErrInvalidCode)
	}
	return code, nil
}

// DocumentSource fetches the raw gii-norm XML for a code, container
// already unwrapped.
type DocumentSource interface {
	Fetch(ctx context.Context, code string) ([]byte, error)
}

// CodeValidator checks a code against the importable catalog.
type CodeValidator interface {
	IsValidCode(ctx context.Context, code string) (bool, error)
}

// Embedder generates one vector per input text.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Store upserts units with their vectors.
type Store interface {
	UpsertBatch(ctx context.Context, units []*storage.LegalText) error
}

// Result holds the outcome of one import.
type Result struct {
	Code          string
	TextsImported int
	Duration      time.Duration
}

// Pipeline coordinates one import end to end. It owns no storage state:
// all persistence goes through the store's upsert.
type Pipeline struct {
	source   DocumentSource
	catalog  CodeValidator
	embedder Embedder
	store    Store
	logger   *slog.Logger
}

// NewPipeline creates an import pipeline with the given collaborators.
func NewPipeline(source DocumentSource, catalog CodeValidator, embedder Embedder, store Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:   source,
		catalog:  catalog,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// ImportCode imports one legal code. Catalog validation is best-effort: a
// catalog outage degrades to an unvalidated import, while a confirmed
// catalog miss aborts. Any later failure aborts the import; re-running is
// safe because storage resolves repeated citations by upsert.
func (p *Pipeline) ImportCode(ctx context.Context, code string) (*Result, error) {
	start := time.Now()

	code, err := ValidateCode(code)
	if err != nil {
		return nil, err
	}
	p.logger.Info("starting import", "code", code)

	valid, err := p.catalog.IsValidCode(ctx, code)
	if err != nil {
		p.logger.Warn("could not validate code against catalog, proceeding with import attempt",
			"code", code, "error", err)
	} else if !valid {
		p.logger.Warn("code not found in catalog", "code", code)
		return nil, fmt.Errorf("%w: %s", ErrUnknownCode, code)
	}

	raw, err := p.source.Fetch(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}

	doc, err := gii.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	p.logger.Debug("parsed document", "code", code, "norms", len(doc.Norms))

	units := gii.Extract(doc, code)
	if len(units) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTexts, code)
	}
	p.logger.Info("extracted legal text sections", "code", code, "sections", len(units))

	texts := make([]string, len(units))
	for i, unit := range units {
		texts[i] = unit.Text
	}
	vectors, err := p.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("generate embeddings: %w", err)
	}

	rows := make([]*storage.LegalText, len(units))
	for i, unit := range units {
		rows[i] = &storage.LegalText{
			Text:       unit.Text,
			Code:       unit.Code,
			Section:    unit.Section,
			SubSection: unit.SubSection,
			Vector:     vectors[i],
		}
	}
	if err := p.store.UpsertBatch(ctx, rows); err != nil {
		return nil, fmt.Errorf("store units: %w", err)
	}

	result := &Result{
		Code:          code,
		TextsImported: len(rows),
		Duration:      time.Since(start),
	}
	p.logger.Info("import complete", "code", code, "imported", result.TextsImported, "duration", result.Duration)
	return result, nil
}
