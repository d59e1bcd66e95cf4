// Package llm provides the embedding and text-generation backends.
package llm

import (
	"context"
	"errors"
	"fmt"

	"docchat/internal/config"
)

// ErrModelUnavailable marks failures to reach the embedding or language model.
var ErrModelUnavailable = errors.New("model unavailable")

// Embedder converts text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// ModelName identifies the embedding model, recorded with the index so a
	// reload can detect a mismatch.
	ModelName() string
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Provider bundles the embedder and generator of one backend.
type Provider struct {
	Embedder  Embedder
	Generator Generator
	closeFn   func()
}

// Close releases backend resources. Safe on a provider without any.
func (p *Provider) Close() {
	if p.closeFn != nil {
		p.closeFn()
	}
}

// NewProvider builds the backend selected by cfg.LLMProvider.
func NewProvider(ctx context.Context, cfg config.Config) (*Provider, error) {
	switch cfg.LLMProvider {
	case "ollama", "":
		client := NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel, cfg.OllamaEmbedModel)
		return &Provider{Embedder: client, Generator: client}, nil
	case "gemini":
		client, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiEmbedModel)
		if err != nil {
			return nil, err
		}
		return &Provider{Embedder: client, Generator: client, closeFn: client.Close}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
