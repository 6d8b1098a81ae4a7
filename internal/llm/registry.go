package llm

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrUnknownProvider = errors.New("llm provider is not registered")

// Registry maps policy provider names to Provider instances. Lookup is
// case-insensitive so "Gemini" in an app definition finds the provider
// registered as "gemini".
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: map[string]Provider{}}
}

func keyFor(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces a provider under its own name.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return fmt.Errorf("register provider: nil provider")
	}
	k := keyFor(p.Name())
	if k == "" {
		return fmt.Errorf("register provider: name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[k] = p
	return nil
}

// Get resolves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.providers[keyFor(name)]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: provider=%s", ErrUnknownProvider, strings.TrimSpace(name))
}

// Names lists the registered provider keys, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Close closes every registered provider, returning the first error.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for _, p := range r.providers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.providers = map[string]Provider{}
	return first
}
