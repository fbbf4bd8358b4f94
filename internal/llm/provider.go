package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/dooshek/duologue/internal/types"
)

// ErrIdleTimeout is returned when a streaming response stops producing data
var ErrIdleTimeout = errors.New("no data received within idle timeout")

// ChatCompletionMessage represents a message in a chat completion request
type ChatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest represents the parameters for a completion request
type CompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []ChatCompletionMessage `json:"messages"`
	MaxTokens   int                     `json:"max_tokens,omitempty"`
	Temperature float32                 `json:"temperature,omitempty"`
}

// Provider defines the interface for chat-completion backends
type Provider interface {
	// Completion returns the whole response at once
	Completion(ctx context.Context, req CompletionRequest) (string, error)

	// Stream calls onChunk for every content delta and returns the
	// accumulated text. On error the text received so far is returned with it.
	Stream(ctx context.Context, req CompletionRequest, onChunk func(string)) (string, error)
}

// NewProvider creates the provider described by cfg. Any OpenAI-compatible
// endpoint works through BaseURL.
func NewProvider(cfg types.LLMConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key provided for LLM endpoint %q", cfg.BaseURL)
	}
	return NewOpenAIProvider(cfg), nil
}
