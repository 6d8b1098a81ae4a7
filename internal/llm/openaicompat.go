package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// OpenAICompatProvider calls an OpenAI-compatible Chat Completions API
// (Groq, OpenAI, or any endpoint speaking the same dialect) and asks for
// a JSON object response.
type OpenAICompatProvider struct {
	http    *http.Client
	name    string
	apiKey  string
	baseURL string
}

const defaultChatCompletionsURL = "https://api.groq.com/openai/v1/chat/completions"

// NewOpenAICompatProvider creates a provider registered under name.
// baseURL defaults to the Groq endpoint; the API key is read from
// apiKeyEnv (falling back to GROQ_API_KEY).
func NewOpenAICompatProvider(name, baseURL, apiKeyEnv string) (*OpenAICompatProvider, error) {
	if baseURL == "" {
		baseURL = defaultChatCompletionsURL
	}
	if apiKeyEnv == "" {
		apiKeyEnv = "GROQ_API_KEY"
	}
	return &OpenAICompatProvider{
		http:    &http.Client{Timeout: 60 * time.Second},
		name:    name,
		apiKey:  os.Getenv(apiKeyEnv),
		baseURL: baseURL,
	}, nil
}

func (p *OpenAICompatProvider) Name() string { return p.name }
func (p *OpenAICompatProvider) Close() error { return nil }

type chatReq struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    *float64          `json:"temperature,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
type chatResp struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *OpenAICompatProvider) Execute(ctx context.Context, req Request) (*Response, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return nil, Permanent(fmt.Errorf("%s: model is required", p.name))
	}

	body := chatReq{
		Model:          model,
		Messages:       []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature:    req.Temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	b, _ := json.Marshal(body)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("%s: unexpected status %s", p.name, resp.Status)
		// 429 stays retryable; other client errors are permanent.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, Permanent(err)
		}
		return nil, err
	}

	var out chatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return nil, ErrInvalidJSON
	}
	content := out.Choices[0].Message.Content
	var scratch any
	if err := json.Unmarshal([]byte(content), &scratch); err != nil {
		return nil, ErrInvalidJSON
	}
	respModel := out.Model
	if respModel == "" {
		respModel = model
	}
	return &Response{
		Text: content,
		Meta: Meta{Provider: p.name, Model: respModel, ID: out.ID},
	}, nil
}
