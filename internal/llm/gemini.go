package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	genai "google.golang.org/genai"
)

// GeminiProvider is a thin wrapper around the official genai client.
// Structured output is requested via the application/json response MIME
// type; retries and throttling are left to the middleware stack.
type GeminiProvider struct {
	cli  *genai.Client
	name string
}

// NewGeminiProvider creates a provider registered under name. When
// apiKeyEnv is empty the genai client falls back to GEMINI_API_KEY.
func NewGeminiProvider(ctx context.Context, name, apiKeyEnv string) (*GeminiProvider, error) {
	cfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if apiKeyEnv != "" {
		cfg.APIKey = os.Getenv(apiKeyEnv)
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{cli: cli, name: name}, nil
}

func (g *GeminiProvider) Name() string { return g.name }
func (g *GeminiProvider) Close() error { return nil }

func (g *GeminiProvider) Execute(ctx context.Context, req Request) (*Response, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return nil, Permanent(fmt.Errorf("gemini: model is required"))
	}

	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}

	resp, err := g.cli.Models.GenerateContent(ctx, model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: req.Prompt}}}},
		cfg,
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrInvalidJSON
	}
	txt := resp.Candidates[0].Content.Parts[0].Text
	var scratch any
	if err := json.Unmarshal([]byte(txt), &scratch); err != nil {
		return nil, ErrInvalidJSON
	}
	return &Response{
		Text: txt,
		Meta: Meta{Provider: g.name, Model: model},
	}, nil
}
