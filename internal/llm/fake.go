package llm

import (
	"context"
	"sync"
)

// FakeProvider returns a canned payload and records every request it
// receives. It backs offline runs and tests that assert on call counts.
type FakeProvider struct {
	name string
	text string
	err  error

	mu    sync.Mutex
	calls []Request
}

// NewFakeProvider returns a provider answering every request with text.
// Empty text falls back to an empty JSON object.
func NewFakeProvider(name, text string) *FakeProvider {
	if name == "" {
		name = "fake"
	}
	if text == "" {
		text = "{}"
	}
	return &FakeProvider{name: name, text: text}
}

// Fail makes every subsequent Execute return err.
func (f *FakeProvider) Fail(err error) *FakeProvider {
	f.err = err
	return f
}

func (f *FakeProvider) Name() string { return f.name }
func (f *FakeProvider) Close() error { return nil }

func (f *FakeProvider) Execute(ctx context.Context, req Request) (*Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &Response{
		Text: f.text,
		Meta: Meta{Provider: f.name, Model: req.Model},
	}, nil
}

// Calls returns a copy of the recorded requests.
func (f *FakeProvider) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.calls))
	copy(out, f.calls)
	return out
}
