package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HTTPHandlerOptions configures the Streamable HTTP transport.
type HTTPHandlerOptions struct {
	// Stateless disables session management. The legal tool set is pure
	// request/response, so stateless mode is safe when clients want it.
	// Default: false (stateful).
	Stateless bool
}

// NewHTTPHandler exposes the legal MCP server over Streamable HTTP. The
// server entry point mounts it at /mcp next to the landing page and the
// /health endpoint:
//
//	mux.Handle("/", mcpserver.NewLandingHandler())
//	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))
//	mux.HandleFunc("/health", mcpserver.NewHealthHandler(store))
func NewHTTPHandler(server *Server, opts *HTTPHandlerOptions) http.Handler {
	if opts == nil {
		opts = &HTTPHandlerOptions{}
	}

	sdkOpts := &mcp.StreamableHTTPOptions{
		Stateless: opts.Stateless,
	}

	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server.MCPServer()
	}, sdkOpts)
}
