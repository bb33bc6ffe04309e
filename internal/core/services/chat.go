package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driven"
	"github.com/custodia-labs/ragchat/internal/core/ports/driving"
	"github.com/custodia-labs/ragchat/internal/logger"
)

// Ensure ChatOrchestrator implements the interface.
var _ driving.ChatService = (*ChatOrchestrator)(nil)

// contextSeparator joins retrieved chunk texts.
const contextSeparator = "\n\n"

// errStreamIncomplete is reported when a stream closes without a final chunk.
var errStreamIncomplete = errors.New("stream closed before completion")

// ChatConfig configures the orchestrator.
type ChatConfig struct {
	// Retrieval controls context lookup.
	Retrieval domain.RetrievalOptions

	// Chat is passed to the language model on every request.
	Chat driven.ChatOptions

	// PersistPartial stores answers interrupted by the caller with a marker.
	PersistPartial bool
}

// ChatConfigFrom derives the orchestrator configuration from settings.
func ChatConfigFrom(settings *domain.AppSettings) ChatConfig {
	return ChatConfig{
		Retrieval: settings.Retrieval.Options(),
		Chat: driven.ChatOptions{
			MaxTokens:   settings.LLM.MaxTokens,
			Temperature: settings.LLM.Temperature,
		},
		PersistPartial: settings.History.PersistPartial,
	}
}

// ChatOrchestrator answers questions: it retrieves context from the shared
// vector index, assembles the prompt, streams the model's answer and records
// the exchange in the session history.
type ChatOrchestrator struct {
	index     driven.VectorIndex
	llm       driven.LLMService
	history   driven.HistoryStore
	sessions  driven.SessionStore
	assembler *PromptAssembler
	cfg       ChatConfig
}

// NewChatOrchestrator creates a chat orchestrator.
// The index parameter is optional (can be nil); without it every answer is
// ungrounded.
func NewChatOrchestrator(
	index driven.VectorIndex,
	llm driven.LLMService,
	history driven.HistoryStore,
	sessions driven.SessionStore,
	assembler *PromptAssembler,
	cfg ChatConfig,
) *ChatOrchestrator {
	if assembler == nil {
		assembler = NewPromptAssembler(nil)
	}
	cfg.Retrieval = cfg.Retrieval.Normalised()
	return &ChatOrchestrator{
		index:     index,
		llm:       llm,
		history:   history,
		sessions:  sessions,
		assembler: assembler,
		cfg:       cfg,
	}
}

// run tracks the states visited by one question.
type run struct {
	result *driving.AskResult
	start  time.Time
}

func (r *run) enter(state domain.ChatState) {
	r.result.States = append(r.result.States, state)
	logger.Debug("chat %s: %s", r.result.SessionID, state)
}

func (r *run) fail(err error) (*driving.AskResult, error) {
	r.enter(domain.StateFailed)
	logger.Debug("chat %s failed after %v: %v", r.result.SessionID, time.Since(r.start), err)
	return r.result, err
}

// Ask answers a question within a session. An empty SessionID starts a new
// session. The result is returned even on failure and carries whatever was
// streamed.
func (c *ChatOrchestrator) Ask(
	ctx context.Context, req driving.AskRequest, sink driving.StreamSink,
) (*driving.AskResult, error) {
	logger.Section("Chat")

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	r := &run{result: &driving.AskResult{SessionID: sessionID}, start: time.Now()}
	r.enter(domain.StateReceived)

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return r.fail(fmt.Errorf("%w: question is empty", domain.ErrInvalidInput))
	}
	if c.llm == nil {
		return r.fail(domain.ErrLLMUnavailable)
	}
	if err := c.registerSession(ctx, sessionID, question); err != nil {
		return r.fail(err)
	}

	r.enter(domain.StateContextLookup)
	sources, err := c.lookup(ctx, question)
	if err != nil {
		return r.fail(err)
	}
	r.result.Sources = sources

	r.enter(domain.StatePromptBuild)
	history, err := c.history.Load(ctx, sessionID)
	if err != nil {
		return r.fail(fmt.Errorf("load history: %w", err))
	}
	variant := domain.VariantFor(joinContext(sources))
	r.result.Grounded = variant.Grounded()
	input := c.assembler.Assemble(history, question, variant)
	logger.Debug("Prompt: %s, %d prior turns, %d sources", variant.Kind(), len(history), len(sources))

	r.enter(domain.StateModelStreaming)
	answer, streamErr := c.stream(ctx, ToChatMessages(input), sink)
	r.result.Answer = answer

	if streamErr != nil {
		return c.finishFailed(ctx, r, question, answer, streamErr)
	}

	r.enter(domain.StateHistoryAppend)
	if err := c.appendExchange(ctx, sessionID, question, answer); err != nil {
		return r.fail(err)
	}

	r.enter(domain.StateDone)
	logger.Elapsed("Chat", r.start)
	return r.result, nil
}

// finishFailed records what the history should keep after a failed stream.
func (c *ChatOrchestrator) finishFailed(
	ctx context.Context, r *run, question, answer string, streamErr error,
) (*driving.AskResult, error) {
	if errors.Is(streamErr, domain.ErrStreamInterrupted) {
		if !c.cfg.PersistPartial || answer == "" {
			return r.fail(streamErr)
		}
		r.enter(domain.StateHistoryAppend)
		if err := c.appendExchange(ctx, r.result.SessionID, question, answer+domain.InterruptedMarker); err != nil {
			return r.fail(errors.Join(streamErr, err))
		}
		return r.fail(streamErr)
	}

	if answer == "" {
		return r.fail(streamErr)
	}
	r.enter(domain.StateHistoryAppend)
	partial := answer + fmt.Sprintf(domain.TruncatedMarkerFormat, streamErr)
	if err := c.appendExchange(ctx, r.result.SessionID, question, partial); err != nil {
		return r.fail(errors.Join(streamErr, err))
	}
	return r.fail(streamErr)
}

// Retrieve returns the chunks that would ground an answer to query.
// Returns domain.ErrNoIndex when nothing has been uploaded.
func (c *ChatOrchestrator) Retrieve(ctx context.Context, query string) ([]domain.RetrievedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if c.index == nil {
		return nil, domain.ErrNoIndex
	}
	return c.index.Search(ctx, query, c.cfg.Retrieval)
}

// lookup retrieves context. A missing index means no context.
func (c *ChatOrchestrator) lookup(ctx context.Context, question string) ([]domain.RetrievedChunk, error) {
	chunks, err := c.Retrieve(ctx, question)
	switch {
	case errors.Is(err, domain.ErrNoIndex):
		logger.Debug("No vector index, answering without context")
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	logger.Debug("Retrieved %d chunks", len(chunks))
	return chunks, nil
}

// stream forwards fragments to sink in arrival order and returns the text
// streamed so far. Consumption stops on the first sink error, on caller
// cancellation or on a failed chunk. The producer is cancelled on return.
func (c *ChatOrchestrator) stream(
	ctx context.Context, messages []driven.ChatMessage, sink driving.StreamSink,
) (string, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := c.llm.ChatStream(streamCtx, messages, c.cfg.Chat)
	if err != nil {
		return "", interrupted(ctx, err)
	}

	var answer strings.Builder
	for chunk := range ch {
		if chunk.Err != nil {
			return answer.String(), interrupted(ctx, chunk.Err)
		}
		if chunk.Content != "" {
			answer.WriteString(chunk.Content)
			if sink != nil {
				if err := sink(chunk.Content); err != nil {
					return answer.String(), fmt.Errorf("%w: %w", domain.ErrStreamInterrupted, err)
				}
			}
		}
		if chunk.Done {
			return answer.String(), nil
		}
	}
	return answer.String(), interrupted(ctx, fmt.Errorf("%w: %w", domain.ErrModelService, errStreamIncomplete))
}

// interrupted reports err as a stream interruption when the caller's
// context was cancelled, and unchanged otherwise.
func interrupted(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", domain.ErrStreamInterrupted, ctxErr)
	}
	return err
}

// registerSession creates the session on first use and titles it from the
// first question.
func (c *ChatOrchestrator) registerSession(ctx context.Context, id, question string) error {
	if c.sessions == nil {
		return nil
	}
	session, err := c.sessions.Get(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		now := time.Now()
		session = &domain.Session{ID: id, CreatedAt: now, UpdatedAt: now}
	case err != nil:
		return fmt.Errorf("get session: %w", err)
	case !session.HasDefaultTitle():
		return nil
	}
	session.Title = domain.TitleFromQuestion(question)
	if err := c.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	logger.Debug("Session %s titled %q", id, session.Title)
	return nil
}

// appendExchange stores the user turn then the assistant turn. The writes
// outlive a cancelled caller so an interrupted answer can still be kept.
func (c *ChatOrchestrator) appendExchange(ctx context.Context, sessionID, question, answer string) error {
	ctx = context.WithoutCancel(ctx)
	if err := c.history.Append(ctx, sessionID, domain.RoleUser, question); err != nil {
		return fmt.Errorf("append user turn: %w", err)
	}
	if err := c.history.Append(ctx, sessionID, domain.RoleAssistant, answer); err != nil {
		return fmt.Errorf("append assistant turn: %w", err)
	}
	c.touchSession(ctx, sessionID)
	return nil
}

// touchSession bumps the session's UpdatedAt so List keeps recent
// conversations first.
func (c *ChatOrchestrator) touchSession(ctx context.Context, id string) {
	if c.sessions == nil {
		return
	}
	session, err := c.sessions.Get(ctx, id)
	if err != nil {
		logger.Warn("Failed to update session %s: %v", id, err)
		return
	}
	session.UpdatedAt = time.Now()
	if err := c.sessions.Save(ctx, session); err != nil {
		logger.Warn("Failed to update session %s: %v", id, err)
	}
}

func joinContext(chunks []domain.RetrievedChunk) string {
	texts := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		texts = append(texts, ch.Content)
	}
	return strings.Join(texts, contextSeparator)
}
