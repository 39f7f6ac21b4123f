package translation

import (
	"context"
	"fmt"
	"strings"
)

// Provider names
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Backend sends one prompt to a model and returns the raw reply text.
// Implementations classify their own transport errors with newError.
type Backend interface {
	Name() string
	Model() string
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Config selects and configures a backend
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Seed        int
}

// DefaultModel returns the model used when none is configured
func DefaultModel(provider string) string {
	switch provider {
	case ProviderGemini:
		return "gemini-2.5-flash"
	case ProviderOllama:
		return "llama3.1"
	default:
		return "gpt-4o-mini"
	}
}

// NewBackend creates the backend named by cfg.Provider
func NewBackend(ctx context.Context, cfg Config) (Backend, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		return NewOpenAIBackend(cfg)
	case ProviderGemini:
		return NewGeminiBackend(ctx, cfg)
	case ProviderOllama:
		return NewOllamaBackend(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want openai, gemini or ollama)", cfg.Provider)
	}
}
