package translation

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiBackend talks to the Gemini API
type GeminiBackend struct {
	client      *genai.Client
	model       string
	temperature float32
	seed        int32
}

// NewGeminiBackend creates a Gemini backend
func NewGeminiBackend(ctx context.Context, cfg Config) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key not found")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel(ProviderGemini)
	}
	return &GeminiBackend{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		seed:        int32(cfg.Seed),
	}, nil
}

func (b *GeminiBackend) Name() string  { return ProviderGemini }
func (b *GeminiBackend) Model() string { return b.model }

// Complete sends one generate content request
func (b *GeminiBackend) Complete(ctx context.Context, p Prompt) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
		Temperature:       genai.Ptr(b.temperature),
		Seed:              genai.Ptr(b.seed),
		ResponseMIMEType:  "application/json",
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(p.User), config)
	if err != nil {
		return "", newError(ProviderGemini, geminiStatus(err), err)
	}
	text := resp.Text()
	if text == "" {
		return "", &ResponseShapeError{Expected: len(p.Segments), Got: -1, Err: errors.New("empty response")}
	}
	return text, nil
}

func geminiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code
	}
	return 0
}
