package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultSessionTitle is used until the first question arrives.
const DefaultSessionTitle = "New Chat"

// SessionTitleLength is the number of characters of the first question
// kept as the session title.
const SessionTitleLength = 50

// Session is a conversation identified by an opaque ID.
type Session struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasDefaultTitle reports whether the session has not been titled yet.
func (s *Session) HasDefaultTitle() bool {
	return s.Title == "" || s.Title == DefaultSessionTitle
}

// TitleFromQuestion derives a session title from the first question.
func TitleFromQuestion(question string) string {
	q := strings.TrimSpace(question)
	if q == "" {
		return DefaultSessionTitle
	}
	if utf8.RuneCountInString(q) <= SessionTitleLength {
		return q
	}
	return string([]rune(q)[:SessionTitleLength])
}

// Role identifies the author of a turn.
type Role string

// Conversation roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid returns true for roles that may be stored in history.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// Turn is one message in a session's history.
// Order within a session is append order.
type Turn struct {
	SessionID string
	Role      Role
	Content   string
	CreatedAt time.Time
}

// Markers appended to partially streamed answers stored in history.
const (
	TruncatedMarkerFormat = "\n\n[response truncated: %s]"
	InterruptedMarker     = "\n\n[response interrupted]"
)
