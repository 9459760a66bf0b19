// Package embedding generates fixed-dimension text embeddings through an
// OpenAI-compatible API.
package embedding

import (
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI-compatible client used for embedding generation.
type Client struct {
	client *openai.Client
}

// NewClient creates an embedding client from the environment.
//
// OPENAI_API_KEY must be set unless EMBEDDING_BASE_URL points at a local
// OpenAI-compatible endpoint (e.g. an Ollama /v1 server), which ignores the
// key.
func NewClient() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	baseURL := os.Getenv("EMBEDDING_BASE_URL")

	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	var opts []option.RequestOption
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	client := openai.NewClient(opts...)
	return &Client{client: &client}, nil
}

// NewClientWithOptions creates a client with explicit request options.
// Tests use this to point the client at a fake endpoint.
func NewClientWithOptions(opts ...option.RequestOption) *Client {
	client := openai.NewClient(opts...)
	return &Client{client: &client}
}
