// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
)

// ChatMessage is one chat turn for the LLM. A non-empty ImageBase64 attaches
// a PNG image to the turn for vision models.
type ChatMessage struct {
	Role        string `json:"role"`
	Content     string `json:"content"`
	ImageBase64 string `json:"-"`
}

// CompletionRequest is a single completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64

	// JSONResponse requests strict JSON output mode where the provider
	// supports it.
	JSONResponse bool
}

// CompletionResponse is the provider's completion result.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return NewOpenAIClient(apiKey)
	}
}
