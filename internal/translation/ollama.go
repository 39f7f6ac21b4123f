package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaBackend talks to a local Ollama server
type OllamaBackend struct {
	http        *resty.Client
	baseURL     string
	model       string
	temperature float32
	seed        int
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format"`
	Options  map[string]any  `json:"options"`
}

type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
}

// NewOllamaBackend creates an Ollama backend. No key is needed.
func NewOllamaBackend(cfg Config) *OllamaBackend {
	base := cfg.BaseURL
	if base == "" {
		base = defaultOllamaURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel(ProviderOllama)
	}
	return &OllamaBackend{
		http:        resty.New(),
		baseURL:     strings.TrimRight(base, "/"),
		model:       model,
		temperature: cfg.Temperature,
		seed:        cfg.Seed,
	}
}

func (b *OllamaBackend) Name() string  { return ProviderOllama }
func (b *OllamaBackend) Model() string { return b.model }

// Complete sends one non-streaming chat request
func (b *OllamaBackend) Complete(ctx context.Context, p Prompt) (string, error) {
	body := ollamaRequest{
		Model: b.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		Format:  "json",
		Options: map[string]any{"temperature": b.temperature, "seed": b.seed},
	}

	var resp ollamaResponse
	rr, err := b.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&resp).
		ForceContentType("application/json").
		Post(b.baseURL + "/api/chat")
	if err != nil {
		return "", newError(ProviderOllama, 0, err)
	}
	if rr.IsError() {
		return "", newError(ProviderOllama, rr.StatusCode(), fmt.Errorf("%s; body: %s", rr.Status(), rr.String()))
	}
	if resp.Message.Content == "" {
		return "", &ResponseShapeError{Expected: len(p.Segments), Got: -1, Err: errors.New("empty message")}
	}
	return resp.Message.Content, nil
}

// ListModels returns the models pulled on the server
func (b *OllamaBackend) ListModels(ctx context.Context) ([]string, error) {
	var resp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	rr, err := b.http.R().
		SetContext(ctx).
		SetResult(&resp).
		ForceContentType("application/json").
		Get(b.baseURL + "/api/tags")
	if err != nil {
		return nil, newError(ProviderOllama, 0, err)
	}
	if rr.IsError() {
		return nil, newError(ProviderOllama, rr.StatusCode(), fmt.Errorf("%s; body: %s", rr.Status(), rr.String()))
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
