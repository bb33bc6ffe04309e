package mcp

import (
	"context"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driving"
)

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	result  *driving.AskResult
	chunks  []domain.RetrievedChunk
	err     error
	lastReq driving.AskRequest
}

func (m *mockChatService) Ask(_ context.Context, req driving.AskRequest, _ driving.StreamSink) (*driving.AskResult, error) {
	m.lastReq = req
	return m.result, m.err
}

func (m *mockChatService) Retrieve(_ context.Context, _ string) ([]domain.RetrievedChunk, error) {
	return m.chunks, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	result   *driving.IngestResult
	err      error
	lastPath string
}

func (m *mockIngestService) Upload(_ context.Context, _ string, _ []byte) (*driving.IngestResult, error) {
	return m.result, m.err
}

func (m *mockIngestService) UploadFile(_ context.Context, path string) (*driving.IngestResult, error) {
	m.lastPath = path
	return m.result, m.err
}

func (m *mockIngestService) ExtractText(_ context.Context, _ string, _ []byte) (string, error) {
	return "", m.err
}

func (m *mockIngestService) ClearIndex(_ context.Context) error {
	return m.err
}

func (m *mockIngestService) Documents(_ context.Context) ([]domain.IngestedDocument, error) {
	return nil, m.err
}

func (m *mockIngestService) IndexStats(_ context.Context) (*domain.IndexStats, error) {
	return nil, m.err
}

func (m *mockIngestService) Supports(_ string) bool {
	return true
}

// mockSessionService is a mock implementation of driving.SessionService.
type mockSessionService struct {
	session  *domain.Session
	sessions []domain.Session
	turns    []domain.Turn
	err      error
}

func (m *mockSessionService) Create(_ context.Context) (*domain.Session, error) {
	return m.session, m.err
}

func (m *mockSessionService) Get(_ context.Context, _ string) (*domain.Session, error) {
	return m.session, m.err
}

func (m *mockSessionService) List(_ context.Context) ([]domain.Session, error) {
	return m.sessions, m.err
}

func (m *mockSessionService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockSessionService) History(_ context.Context, _ string) ([]domain.Turn, error) {
	return m.turns, m.err
}

func (m *mockSessionService) Export(_ context.Context, _, _ string) ([]byte, error) {
	return nil, m.err
}

var (
	_ driving.ChatService    = (*mockChatService)(nil)
	_ driving.IngestService  = (*mockIngestService)(nil)
	_ driving.SessionService = (*mockSessionService)(nil)
)
