// Package openai provides an LLM service adapter using OpenAI API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/ragchat/internal/adapters/driven/httpx"
	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = domain.DefaultLLMTimeout
)

const (
	provider   = "openai"
	doneMarker = "[DONE]"
)

var errIncompleteStream = errors.New("openai: stream ended before [DONE]")

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	Model string

	// Timeout bounds a whole streamed response (default: 120s).
	Timeout time.Duration
}

// LLMService streams chat completions from the OpenAI API.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
	Stream      bool                `json:"stream"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionChunk is one SSE payload of a streamed completion.
type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai: API key is required", domain.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		client:  &http.Client{},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// ChatStream requests a streamed completion and forwards each delta.
// The stream is complete when the server sends the [DONE] sentinel.
func (s *LLMService) ChatStream(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
) (<-chan driven.StreamChunk, error) {
	msgs := make([]chatCompletionMsg, len(messages))
	for i, m := range messages {
		msgs[i] = chatCompletionMsg{Role: m.Role, Content: m.Content}
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	resp, err := httpx.PostJSON(reqCtx, s.client, s.baseURL+"/chat/completions", s.headers(), chatCompletionRequest{
		Model:       s.model,
		Messages:    msgs,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stream:      true,
	})
	if err != nil {
		cancel()
		return nil, httpx.ServiceError(reqCtx, domain.ErrModelService, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer cancel()
		defer resp.Body.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrModelService, statusError(resp))
	}

	out := make(chan driven.StreamChunk)
	go func() {
		defer cancel()
		defer close(out)
		defer resp.Body.Close()

		fail := func(err error) {
			httpx.Send(ctx, out, driven.StreamChunk{Err: httpx.ServiceError(reqCtx, domain.ErrModelService, err)})
		}

		events := httpx.NewEventReader(resp.Body)
		for {
			ev, err := events.Next()
			if errors.Is(err, io.EOF) {
				fail(errIncompleteStream)
				return
			}
			if err != nil {
				fail(err)
				return
			}
			if ev.Data == doneMarker {
				httpx.Send(ctx, out, driven.StreamChunk{Done: true})
				return
			}

			var chunk chatCompletionChunk
			if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
				fail(fmt.Errorf("decode stream event: %w", err))
				return
			}
			if chunk.Error != nil {
				fail(fmt.Errorf("openai: %s", chunk.Error.Message))
				return
			}
			for _, choice := range chunk.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				if !httpx.Send(ctx, out, driven.StreamChunk{Content: choice.Delta.Content}) {
					return
				}
			}
		}
	}()

	return out, nil
}

// statusError prefers the API's JSON error message over the raw body.
func statusError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err != nil {
		return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var payload struct {
		Error *apiError `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != nil {
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, payload.Error.Message)
	}
	return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func (s *LLMService) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + s.apiKey,
		"Accept":        "text/event-stream",
	}
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks the /models endpoint, which validates the API key without inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return httpx.Get(ctx, s.client, provider, s.baseURL+"/models",
		map[string]string{"Authorization": "Bearer " + s.apiKey})
}

// Close releases resources.
func (s *LLMService) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
