package cli

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driving"
)

// mockChatService streams fixed fragments.
type mockChatService struct {
	fragments []string
	sources   []domain.RetrievedChunk
	err       error
	requests  []driving.AskRequest
}

func (m *mockChatService) Ask(_ context.Context, req driving.AskRequest, sink driving.StreamSink) (*driving.AskResult, error) {
	m.requests = append(m.requests, req)
	id := req.SessionID
	if id == "" {
		id = "sess-new"
	}
	result := &driving.AskResult{SessionID: id, Sources: m.sources, Grounded: len(m.sources) > 0}
	for _, f := range m.fragments {
		if sink != nil {
			if err := sink(f); err != nil {
				return result, err
			}
		}
		result.Answer += f
	}
	return result, m.err
}

func (m *mockChatService) Retrieve(_ context.Context, _ string) ([]domain.RetrievedChunk, error) {
	return m.sources, m.err
}

// mockIngestService fails files whose name contains "bad".
type mockIngestService struct {
	stats   *domain.IndexStats
	docs    []domain.IngestedDocument
	err     error
	cleared bool
	paths   []string
}

func (m *mockIngestService) Upload(_ context.Context, name string, data []byte) (*driving.IngestResult, error) {
	return &driving.IngestResult{Filename: name, Characters: len(data), Chunks: 1}, m.err
}

func (m *mockIngestService) UploadFile(_ context.Context, path string) (*driving.IngestResult, error) {
	m.paths = append(m.paths, path)
	name := filepath.Base(path)
	if strings.Contains(name, "bad") {
		return nil, domain.ErrDocumentParse
	}
	if strings.Contains(name, "empty") {
		return &driving.IngestResult{Filename: name}, nil
	}
	return &driving.IngestResult{DocumentID: "doc-1", Filename: name, Characters: 2500, Chunks: 3}, nil
}

func (m *mockIngestService) ExtractText(_ context.Context, _ string, _ []byte) (string, error) {
	return "", m.err
}

func (m *mockIngestService) ClearIndex(_ context.Context) error {
	m.cleared = true
	return m.err
}

func (m *mockIngestService) Documents(_ context.Context) ([]domain.IngestedDocument, error) {
	return m.docs, m.err
}

func (m *mockIngestService) IndexStats(_ context.Context) (*domain.IndexStats, error) {
	if m.stats == nil {
		return nil, domain.ErrNoIndex
	}
	return m.stats, m.err
}

func (m *mockIngestService) Supports(name string) bool {
	return filepath.Ext(name) != ".png"
}

// mockSessionService keeps sessions in memory.
type mockSessionService struct {
	sessions map[string]*domain.Session
	turns    map[string][]domain.Turn
	err      error
}

func newMockSessionService() *mockSessionService {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &mockSessionService{
		sessions: map[string]*domain.Session{
			"sess-1": {ID: "sess-1", Title: "What is RAG?", CreatedAt: now, UpdatedAt: now},
		},
		turns: map[string][]domain.Turn{
			"sess-1": {
				{SessionID: "sess-1", Role: domain.RoleUser, Content: "What is RAG?"},
				{SessionID: "sess-1", Role: domain.RoleAssistant, Content: "Retrieval-augmented generation."},
			},
		},
	}
}

func (m *mockSessionService) Create(_ context.Context) (*domain.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := &domain.Session{ID: "sess-created", Title: domain.DefaultSessionTitle}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *mockSessionService) Get(_ context.Context, id string) (*domain.Session, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockSessionService) List(_ context.Context) ([]domain.Session, error) {
	out := make([]domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, m.err
}

func (m *mockSessionService) Delete(_ context.Context, id string) error {
	if _, ok := m.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.sessions, id)
	delete(m.turns, id)
	return nil
}

func (m *mockSessionService) History(_ context.Context, id string) ([]domain.Turn, error) {
	if _, ok := m.sessions[id]; !ok {
		return nil, domain.ErrNotFound
	}
	return m.turns[id], nil
}

func (m *mockSessionService) Export(_ context.Context, id, format string) ([]byte, error) {
	if _, ok := m.sessions[id]; !ok {
		return nil, domain.ErrNotFound
	}
	if format != driving.ExportJSON && format != driving.ExportYAML {
		return nil, domain.ErrInvalidInput
	}
	return []byte(format + ":" + id + "\n"), nil
}

// mockSettingsService stores raw values.
type mockSettingsService struct {
	values      map[string]string
	settings    domain.AppSettings
	validateErr error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		values: map[string]string{
			"llm.provider":       "ollama",
			"llm.model":          "llama3.2:3b",
			"llm.api_key":        "(not set)",
			"embedding.provider": "ollama",
			"embedding.model":    "nomic-embed-text",
			"retrieval.k":        "10",
		},
		settings: domain.DefaultAppSettings(),
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if _, ok := m.values[key]; !ok {
		return errors.New("unknown setting")
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Values() (map[string]string, error) {
	return m.values, nil
}

func (m *mockSettingsService) Keys() []string {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return m.validateErr
}

func (m *mockSettingsService) ValidateLLMConfig() error {
	return m.validateErr
}

var (
	_ driving.ChatService     = (*mockChatService)(nil)
	_ driving.IngestService   = (*mockIngestService)(nil)
	_ driving.SessionService  = (*mockSessionService)(nil)
	_ driving.SettingsService = (*mockSettingsService)(nil)
)
