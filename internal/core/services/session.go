package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driven"
	"github.com/custodia-labs/ragchat/internal/core/ports/driving"
	"github.com/custodia-labs/ragchat/internal/logger"
)

// Ensure SessionService implements the interface.
var _ driving.SessionService = (*SessionService)(nil)

// SessionService manages the session registry and its history.
type SessionService struct {
	sessions driven.SessionStore
	history  driven.HistoryStore
}

// NewSessionService creates a new session service.
func NewSessionService(sessions driven.SessionStore, history driven.HistoryStore) *SessionService {
	return &SessionService{sessions: sessions, history: history}
}

// Create starts a new, untitled session.
func (s *SessionService) Create(ctx context.Context) (*domain.Session, error) {
	now := time.Now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		Title:     domain.DefaultSessionTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	logger.Debug("Created session %s", session.ID)
	return session, nil
}

// Get retrieves a session by ID.
func (s *SessionService) Get(ctx context.Context, id string) (*domain.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	return s.sessions.Get(ctx, id)
}

// List returns all sessions, most recent first.
func (s *SessionService) List(ctx context.Context) ([]domain.Session, error) {
	return s.sessions.List(ctx)
}

// Delete removes a session and its history.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.history.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	logger.Debug("Deleted session %s", id)
	return nil
}

// History returns the session's turns in order.
func (s *SessionService) History(ctx context.Context, id string) ([]domain.Turn, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.history.Load(ctx, id)
}

// transcript is the exported form of a session.
type transcript struct {
	ID        string           `json:"id" yaml:"id"`
	Title     string           `json:"title" yaml:"title"`
	CreatedAt time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" yaml:"updated_at"`
	Messages  []transcriptTurn `json:"messages" yaml:"messages"`
}

type transcriptTurn struct {
	Role      string    `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Export renders the session and its history as json or yaml.
func (s *SessionService) Export(ctx context.Context, id, format string) ([]byte, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	turns, err := s.history.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	t := transcript{
		ID:        session.ID,
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		Messages:  make([]transcriptTurn, 0, len(turns)),
	}
	for _, turn := range turns {
		t.Messages = append(t.Messages, transcriptTurn{
			Role:      turn.Role.String(),
			Content:   turn.Content,
			CreatedAt: turn.CreatedAt,
		})
	}

	switch strings.ToLower(format) {
	case driving.ExportJSON, "":
		return json.MarshalIndent(t, "", "  ")
	case driving.ExportYAML, "yml":
		return yaml.Marshal(t)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q (use %s or %s)",
			domain.ErrInvalidInput, format, driving.ExportJSON, driving.ExportYAML)
	}
}
