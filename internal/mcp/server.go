package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/uni61182/ayunis-legal-mcp-Fork/internal/catalog"
	"github.com/uni61182/ayunis-legal-mcp-Fork/internal/importer"
	"github.com/uni61182/ayunis-legal-mcp-Fork/internal/storage"
)

// Store is the retrieval surface the tools read from.
type Store interface {
	SemanticSearch(ctx context.Context, queryVector []float32, code string, limit int, cutoff *float64) ([]storage.SearchResult, error)
	Lookup(ctx context.Context, filter storage.Filter) ([]*storage.LegalText, error)
	ListCodes(ctx context.Context) ([]string, error)
	CountByCode(ctx context.Context, code string) (int, error)
}

// Embedder turns a query into its vector.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Catalog serves the importable code catalog.
type Catalog interface {
	GetCatalog(ctx context.Context) ([]catalog.Entry, error)
	IsValidCode(ctx context.Context, code string) (bool, error)
}

// Importer runs a full legal code import.
type Importer interface {
	ImportCode(ctx context.Context, code string) (*importer.Result, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server   *mcp.Server
	store    Store
	embedder Embedder
	catalog  Catalog
	importer Importer
	logger   *slog.Logger
}

// Config holds server dependencies.
type Config struct {
	Store    Store
	Embedder Embedder
	Catalog  Catalog
	Importer Importer
	Logger   *slog.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	impl := &mcp.Implementation{
		Name:    "legal-mcp",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_legal_texts",
		Description: "Semantically search the sections of an imported German legal code. Returns the closest sections with their citations and distances.",
	}, makeSearchHandler(cfg.Store, cfg.Embedder, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_all_legal_texts",
		Description: "Semantically search across every imported legal code at once and return the closest sections from any law, sorted by distance.",
	}, makeSearchAllHandler(cfg.Store, cfg.Embedder, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_legal_section",
		Description: "Look up stored legal text by exact citation: code, optionally a section (e.g. § 823), optionally a paragraph within it.",
	}, makeGetSectionHandler(cfg.Store, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_available_codes",
		Description: "List the legal codes that have been imported and are searchable.",
	}, makeListCodesHandler(cfg.Store, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_catalog_entries",
		Description: "Browse the official catalog of importable German legal codes, optionally filtered by a title or code substring.",
	}, makeCatalogHandler(cfg.Store, cfg.Catalog, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_legal_code_info",
		Description: "Describe a legal code: catalog title, import status, stored section count, and official PDF/HTML locations.",
	}, makeCodeInfoHandler(cfg.Store, cfg.Catalog, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "import_legal_code",
		Description: "Download, parse, embed and store a German legal code so it becomes searchable. Re-importing updates existing sections in place.",
	}, makeImportHandler(cfg.Importer, logger))

	return &Server{
		server:   server,
		store:    cfg.Store,
		embedder: cfg.Embedder,
		catalog:  cfg.Catalog,
		importer: cfg.Importer,
		logger:   logger,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
