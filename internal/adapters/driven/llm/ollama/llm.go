// Package ollama provides an LLM service adapter using Ollama.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/custodia-labs/ragchat/internal/adapters/driven/httpx"
	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = domain.DefaultOllamaURL
	DefaultLLMModel   = "llama3.2:3b"
	DefaultLLMTimeout = domain.DefaultLLMTimeout
)

// errIncompleteStream is reported when the body ends without a done message.
var errIncompleteStream = errors.New("ollama: stream ended before completion")

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2:3b).
	Model string

	// Timeout bounds a whole streamed response (default: 120s).
	Timeout time.Duration
}

// LLMService streams chat completions from Ollama through its Go client.
type LLMService struct {
	http      *http.Client
	client    *api.Client
	clientErr error
	baseURL   string
	model     string
	timeout   time.Duration
}

// NewLLMService creates a new Ollama LLM service. An unparsable BaseURL is
// reported by the first call rather than here.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	s := &LLMService{
		// No client timeout: it would cut long streams. The request context bounds them.
		http:    &http.Client{},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
	s.client, s.clientErr = newClient(s.baseURL, s.http)
	return s
}

func newClient(baseURL string, hc *http.Client) (*api.Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid base URL %q: %w", baseURL, err)
	}
	return api.NewClient(base, hc), nil
}

// ChatStream sends the conversation to /api/chat with streaming enabled and
// forwards each message fragment as it arrives. Errors reported by the
// server, including a failed status, arrive on the channel.
func (s *LLMService) ChatStream(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
) (<-chan driven.StreamChunk, error) {
	if s.clientErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrModelService, s.clientErr)
	}

	chatMessages := make([]api.Message, len(messages))
	for i, msg := range messages {
		chatMessages[i] = api.Message{Role: msg.Role, Content: msg.Content}
	}

	stream := true
	req := &api.ChatRequest{
		Model:    s.model,
		Messages: chatMessages,
		Stream:   &stream,
		Options:  requestOptions(opts),
	}

	out := make(chan driven.StreamChunk)
	go func() {
		reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		defer close(out)

		done := false
		err := s.client.Chat(reqCtx, req, func(resp api.ChatResponse) error {
			if resp.Message.Content != "" {
				if !httpx.Send(ctx, out, driven.StreamChunk{Content: resp.Message.Content}) {
					return ctx.Err()
				}
			}
			done = resp.Done
			return nil
		})

		if ctx.Err() != nil {
			// Consumer gone.
			return
		}
		if err == nil && !done {
			err = errIncompleteStream
		}
		if err != nil {
			httpx.Send(ctx, out, driven.StreamChunk{Err: httpx.ServiceError(reqCtx, domain.ErrModelService, err)})
			return
		}
		httpx.Send(ctx, out, driven.StreamChunk{Done: true})
	}()

	return out, nil
}

// requestOptions maps chat options onto Ollama's options object, leaving it
// out entirely when nothing is set.
func requestOptions(opts driven.ChatOptions) map[string]any {
	if opts.MaxTokens <= 0 && opts.Temperature <= 0 {
		return nil
	}
	o := make(map[string]any, 2)
	if opts.MaxTokens > 0 {
		o["num_predict"] = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		o["temperature"] = opts.Temperature
	}
	return o
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists local models, which needs no inference.
func (s *LLMService) Ping(ctx context.Context) error {
	if s.clientErr != nil {
		return s.clientErr
	}
	if _, err := s.client.List(ctx); err != nil {
		return fmt.Errorf("ollama: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	s.http.CloseIdleConnections()
	return nil
}
