package driving

import (
	"context"

	"github.com/custodia-labs/ragchat/internal/core/domain"
)

// StreamSink receives response fragments in arrival order.
// Returning an error stops the stream.
type StreamSink func(fragment string) error

// ChatService answers questions within a session.
type ChatService interface {
	// Ask retrieves context for the question, streams the model's answer
	// into sink and records the exchange in the session history.
	Ask(ctx context.Context, req AskRequest, sink StreamSink) (*AskResult, error)

	// Retrieve returns the chunks that would ground an answer to query,
	// without invoking the model.
	Retrieve(ctx context.Context, query string) ([]domain.RetrievedChunk, error)
}

// AskRequest is a question within a session.
type AskRequest struct {
	// SessionID identifies the conversation. Empty starts a new session.
	SessionID string

	// Question is the user's message.
	Question string
}

// AskResult describes a completed (or partially completed) answer.
type AskResult struct {
	// SessionID is the session the exchange was recorded in.
	SessionID string

	// Answer is the text streamed so far.
	Answer string

	// Grounded reports whether the answer was conditioned on document context.
	Grounded bool

	// Sources are the chunks used as context.
	Sources []domain.RetrievedChunk

	// States lists the orchestration states visited, in order.
	States []domain.ChatState
}
