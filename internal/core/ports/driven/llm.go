package driven

import "context"

// LLMService streams language model responses.
//
// Implementations include Ollama (local), OpenAI and Anthropic.
type LLMService interface {
	// ChatStream starts a multi-turn completion and returns a channel of
	// fragments in arrival order. The channel is closed after a chunk with
	// Done or Err set. Cancelling ctx stops the producer.
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions) (<-chan StreamChunk, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// StreamChunk is one element of a streamed response.
type StreamChunk struct {
	// Content is the text fragment. May be empty on the final chunk.
	Content string

	// Done marks the successful end of the stream.
	Done bool

	// Err is set when the stream failed. It is the last chunk sent.
	Err error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
