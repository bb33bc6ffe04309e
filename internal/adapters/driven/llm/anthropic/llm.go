// Package anthropic provides an LLM service adapter using Anthropic API.
package anthropic

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
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = domain.DefaultLLMTimeout
	DefaultMaxTokens = 1024

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"

	provider = "anthropic"
)

var errIncompleteStream = errors.New("anthropic: stream ended before message_stop")

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the LLM model to use (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout bounds a whole streamed response (default: 120s).
	Timeout time.Duration
}

// LLMService streams responses from the Anthropic Messages API.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	Stream      bool              `json:"stream"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// streamEvent covers the fields used from every streamed event type.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic: API key is required", domain.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &LLMService{
		client:  &http.Client{},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// ChatStream streams a Messages API response. System messages are lifted
// into the request's system field; text_delta events become fragments.
func (s *LLMService) ChatStream(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
) (<-chan driven.StreamChunk, error) {
	var system []string
	apiMessages := make([]messagesMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == string(domain.RoleSystem) {
			system = append(system, msg.Content)
			continue
		}
		apiMessages = append(apiMessages, messagesMessage{Role: msg.Role, Content: msg.Content})
	}

	// Anthropic requires max_tokens to be set
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	resp, err := httpx.PostJSON(reqCtx, s.client, s.baseURL+"/v1/messages", s.headers(), messagesRequest{
		Model:       s.model,
		Messages:    apiMessages,
		MaxTokens:   maxTokens,
		System:      strings.Join(system, "\n\n"),
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
			if ev.Data == "" {
				continue
			}

			var payload streamEvent
			if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
				fail(fmt.Errorf("decode %s event: %w", ev.Name, err))
				return
			}

			switch payload.Type {
			case "content_block_delta":
				if payload.Delta.Type != "text_delta" || payload.Delta.Text == "" {
					continue
				}
				if !httpx.Send(ctx, out, driven.StreamChunk{Content: payload.Delta.Text}) {
					return
				}
			case "message_stop":
				httpx.Send(ctx, out, driven.StreamChunk{Done: true})
				return
			case "error":
				msg := "unknown error"
				if payload.Error != nil {
					msg = payload.Error.Type + ": " + payload.Error.Message
				}
				fail(fmt.Errorf("anthropic: %s", msg))
				return
			}
		}
	}()

	return out, nil
}

func statusError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err != nil {
		return fmt.Errorf("anthropic: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var payload struct {
		Error *apiError `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != nil {
		return fmt.Errorf("anthropic: API returned status %d: %s", resp.StatusCode, payload.Error.Message)
	}
	return fmt.Errorf("anthropic: API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func (s *LLMService) headers() map[string]string {
	return map[string]string{
		"x-api-key":         s.apiKey,
		"anthropic-version": anthropicVersion,
	}
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which validates the API key without inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return httpx.Get(ctx, s.client, provider, s.baseURL+"/v1/models", s.headers())
}

// Close releases resources.
func (s *LLMService) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
