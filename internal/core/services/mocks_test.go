package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockLLM implements driven.LLMService with a scripted stream.
type mockLLM struct {
	fragments []string
	streamErr error // sent after the fragments
	startErr  error // returned by ChatStream
	hang      bool  // after the fragments, wait for cancellation
	omitDone  bool  // close the stream without a final chunk

	mu       sync.Mutex
	calls    int
	messages [][]driven.ChatMessage
	opts     []driven.ChatOptions
}

func (m *mockLLM) ChatStream(ctx context.Context, msgs []driven.ChatMessage, opts driven.ChatOptions) (<-chan driven.StreamChunk, error) {
	m.mu.Lock()
	m.calls++
	m.messages = append(m.messages, msgs)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()

	if m.startErr != nil {
		return nil, m.startErr
	}

	out := make(chan driven.StreamChunk)
	go func() {
		defer close(out)
		for _, f := range m.fragments {
			if !send(ctx, out, driven.StreamChunk{Content: f}) {
				return
			}
		}
		switch {
		case m.streamErr != nil:
			send(ctx, out, driven.StreamChunk{Err: m.streamErr})
		case m.hang:
			<-ctx.Done()
		case m.omitDone:
		default:
			send(ctx, out, driven.StreamChunk{Done: true})
		}
	}()
	return out, nil
}

func (m *mockLLM) lastMessages() []driven.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil
	}
	return m.messages[len(m.messages)-1]
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

func send(ctx context.Context, out chan<- driven.StreamChunk, c driven.StreamChunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// mockVectorIndex implements driven.VectorIndex for testing.
type mockVectorIndex struct {
	results   []domain.RetrievedChunk
	searchErr error
	addErr    error
	clearErr  error
	stats     *domain.IndexStats

	searches []string
	opts     []domain.RetrievalOptions
	added    []domain.Chunk
	cleared  bool
}

func (m *mockVectorIndex) Add(_ context.Context, chunks []domain.Chunk) (int, error) {
	if m.addErr != nil {
		return 0, m.addErr
	}
	m.added = append(m.added, chunks...)
	return len(chunks), nil
}

func (m *mockVectorIndex) Search(_ context.Context, query string, opts domain.RetrievalOptions) ([]domain.RetrievedChunk, error) {
	m.searches = append(m.searches, query)
	m.opts = append(m.opts, opts)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.results, nil
}

func (m *mockVectorIndex) Clear(_ context.Context) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cleared = true
	m.added = nil
	return nil
}

func (m *mockVectorIndex) Exists() bool { return len(m.added) > 0 || m.results != nil }

func (m *mockVectorIndex) Stats(_ context.Context) (*domain.IndexStats, error) {
	if m.stats == nil {
		return nil, domain.ErrNoIndex
	}
	return m.stats, nil
}

func (m *mockVectorIndex) Path() string { return "/tmp/mock-index" }

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
	err     error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", errors.New("unknown prompt: " + name)
}

func (m *mockPromptStore) Reload() {}

// mockAIValidator implements driven.AIConfigValidator for testing.
type mockAIValidator struct {
	embeddingErr error
	llmErr       error

	embedding *domain.EmbeddingSettings
	llm       *domain.LLMSettings
}

func (m *mockAIValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	m.embedding = cfg
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateLLM(cfg *domain.LLMSettings) error {
	m.llm = cfg
	return m.llmErr
}

// letterEmbedder implements driven.EmbeddingService with letter counts,
// so texts sharing letters are similar.
type letterEmbedder struct{}

func (letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	v[0] += 0.01
	return v, nil
}

func (e letterEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func (letterEmbedder) Dimensions() int              { return 26 }
func (letterEmbedder) ModelName() string            { return "letters" }
func (letterEmbedder) Ping(_ context.Context) error { return nil }
func (letterEmbedder) Close() error                 { return nil }

// fakePDFRunner stands in for pdftotext.
type fakePDFRunner struct {
	out []byte
	err error
}

func (f *fakePDFRunner) Run(_ context.Context, _ string, _ ...string) ([]byte, error) {
	return f.out, f.err
}

// collect returns a sink that records fragments.
func collect(fragments *[]string) func(string) error {
	return func(f string) error {
		*fragments = append(*fragments, f)
		return nil
	}
}
