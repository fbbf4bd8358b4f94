package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dooshek/duologue/internal/logger"
	"github.com/dooshek/duologue/internal/types"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider using an OpenAI-compatible API
type OpenAIProvider struct {
	client      *openai.Client
	idleTimeout time.Duration
}

// NewOpenAIProvider creates new OpenAI provider instance
func NewOpenAIProvider(cfg types.LLMConfig) *OpenAIProvider {
	logger.Debugf("Creating OpenAI provider")

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	idle := time.Duration(cfg.IdleTimeoutSeconds) * time.Second
	if idle <= 0 {
		idle = 30 * time.Second
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientConfig),
		idleTimeout: idle,
	}
}

// SetIdleTimeout changes how long Stream waits between chunks
func (p *OpenAIProvider) SetIdleTimeout(d time.Duration) {
	p.idleTimeout = d
}

func toOpenAIRequest(req CompletionRequest) openai.ChatCompletionRequest {
	if req.Temperature == 0 {
		req.Temperature = 0.5
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	return openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
}

// Completion sends a completion request to OpenAI API
func (p *OpenAIProvider) Completion(ctx context.Context, req CompletionRequest) (string, error) {
	logger.Debugf("Sending completion request with model: %s", req.Model)

	resp, err := p.client.CreateChatCompletion(ctx, toOpenAIRequest(req))
	if err != nil {
		return "", fmt.Errorf("error creating completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

// Stream sends a streaming completion request. The stream is abandoned when
// no chunk arrives within the idle timeout.
func (p *OpenAIProvider) Stream(ctx context.Context, req CompletionRequest, onChunk func(string)) (string, error) {
	logger.Debugf("Sending streaming completion request with model: %s", req.Model)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var idle atomic.Bool
	timer := time.AfterFunc(p.idleTimeout, func() {
		idle.Store(true)
		cancel()
	})
	defer timer.Stop()

	oaReq := toOpenAIRequest(req)
	oaReq.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, oaReq)
	if err != nil {
		if idle.Load() {
			return "", ErrIdleTimeout
		}
		return "", fmt.Errorf("error creating completion stream with OpenAI: %w", err)
	}
	defer stream.Close()

	var out strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return out.String(), nil
		}
		if err != nil {
			if idle.Load() {
				return out.String(), fmt.Errorf("%w (%s)", ErrIdleTimeout, p.idleTimeout)
			}
			return out.String(), fmt.Errorf("stream failed: %w", err)
		}

		timer.Reset(p.idleTimeout)
		if len(resp.Choices) == 0 {
			continue
		}
		if chunk := resp.Choices[0].Delta.Content; chunk != "" {
			out.WriteString(chunk)
			if onChunk != nil {
				onChunk(chunk)
			}
		}
	}
}
