package llm

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CatalogEntry configures one provider. Kind selects the adapter; the
// remaining fields are adapter- and middleware-specific knobs.
type CatalogEntry struct {
	Name      string  `yaml:"name"`
	Kind      string  `yaml:"kind"`
	BaseURL   string  `yaml:"baseUrl,omitempty"`
	APIKeyEnv string  `yaml:"apiKeyEnv,omitempty"`
	RPS       float64 `yaml:"rps,omitempty"`
	Burst     int     `yaml:"burst,omitempty"`
	Retries   int     `yaml:"retries,omitempty"`
	Reply     string  `yaml:"reply,omitempty"`
}

// Catalog is the YAML document listing the providers a deployment offers.
type Catalog struct {
	Providers []CatalogEntry `yaml:"providers"`
}

// LoadCatalog reads and parses a provider catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load provider catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse provider catalog %s: %w", path, err)
	}
	return &c, nil
}

// DefaultCatalog lists the providers available without any configuration
// file: Gemini and the Groq OpenAI-compatible endpoint, both throttled
// conservatively.
func DefaultCatalog() *Catalog {
	return &Catalog{Providers: []CatalogEntry{
		{Name: "gemini", Kind: "gemini", RPS: 1, Burst: 2, Retries: 3},
		{Name: "groq", Kind: "openai", RPS: 1, Burst: 2, Retries: 3},
	}}
}

// Build instantiates every catalog entry, wraps it in the configured
// middleware stack and registers it. logger may be nil.
func (c *Catalog) Build(ctx context.Context, logger *log.Logger) (*Registry, error) {
	reg := NewRegistry()
	for _, e := range c.Providers {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("provider catalog: entry without a name")
		}

		var (
			p   Provider
			err error
		)
		switch strings.ToLower(strings.TrimSpace(e.Kind)) {
		case "gemini":
			p, err = NewGeminiProvider(ctx, name, e.APIKeyEnv)
		case "openai", "groq":
			p, err = NewOpenAICompatProvider(name, e.BaseURL, e.APIKeyEnv)
		case "fake":
			p = NewFakeProvider(name, e.Reply)
		default:
			err = fmt.Errorf("provider catalog: unknown kind %q for %s", e.Kind, name)
		}
		if err != nil {
			return nil, err
		}

		mws := []Middleware{WithLogging(logger)}
		if e.Retries > 0 {
			mws = append(mws, Retry(e.Retries, 300*time.Millisecond))
		}
		if e.RPS > 0 {
			mws = append(mws, RateLimit(e.RPS, e.Burst))
		}
		if err := reg.Register(Wrap(p, mws...)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
