package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragchat/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "ragchat-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.Equal(t, DatabaseFile, filepath.Base(store.Path()))
	_, err := os.Stat(store.Path())
	assert.NoError(t, err)

	version, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, store.HistoryStore().Append(ctx, "s1", domain.RoleUser, "hello"))
	require.NoError(t, store.Close())

	reopened, err := NewStore(tempDir)
	require.NoError(t, err)
	defer reopened.Close()

	version, err := reopened.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version, "migrations must not be re-applied")

	turns, err := reopened.HistoryStore().Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "hello", turns[0].Content)
}

func TestHistoryStore_AppendOrder(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	history := store.HistoryStore()

	require.NoError(t, history.Append(ctx, "s1", domain.RoleUser, "What is RAG?"))
	require.NoError(t, history.Append(ctx, "s1", domain.RoleAssistant, "Retrieval augmented generation."))
	require.NoError(t, history.Append(ctx, "s1", domain.RoleUser, "Thanks"))

	turns, err := history.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, domain.RoleUser, turns[0].Role)
	assert.Equal(t, "What is RAG?", turns[0].Content)
	assert.Equal(t, domain.RoleAssistant, turns[1].Role)
	assert.Equal(t, "Thanks", turns[2].Content)
	for _, turn := range turns {
		assert.Equal(t, "s1", turn.SessionID)
		assert.False(t, turn.CreatedAt.IsZero())
	}
}

func TestHistoryStore_UnknownSessionIsEmpty(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	turns, err := store.HistoryStore().Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, turns)
	assert.Empty(t, turns)
}

func TestHistoryStore_SessionsAreIsolated(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	history := store.HistoryStore()

	require.NoError(t, history.Append(ctx, "a", domain.RoleUser, "a1"))
	require.NoError(t, history.Append(ctx, "b", domain.RoleUser, "b1"))
	require.NoError(t, history.Append(ctx, "a", domain.RoleAssistant, "a2"))
	require.NoError(t, history.Append(ctx, "b", domain.RoleAssistant, "b2"))

	a, err := history.Load(ctx, "a")
	require.NoError(t, err)
	b, err := history.Load(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, []string{"a1", "a2"}, contents(a))
	assert.Equal(t, []string{"b1", "b2"}, contents(b))
}

func TestHistoryStore_RejectsInvalidRole(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	err := store.HistoryStore().Append(ctx, "s1", domain.RoleSystem, "not stored")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = store.HistoryStore().Append(ctx, "", domain.RoleUser, "no session")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHistoryStore_Delete(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	history := store.HistoryStore()

	require.NoError(t, history.Append(ctx, "a", domain.RoleUser, "a1"))
	require.NoError(t, history.Append(ctx, "b", domain.RoleUser, "b1"))
	require.NoError(t, history.Delete(ctx, "a"))

	a, err := history.Load(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, a)

	b, err := history.Load(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, b, 1)
}

func TestHistoryStore_ConcurrentSessions(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	history := store.HistoryStore()

	var wg sync.WaitGroup
	for s := 0; s < 4; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			id := fmt.Sprintf("session-%d", s)
			for i := 0; i < 10; i++ {
				assert.NoError(t, history.Append(ctx, id, domain.RoleUser, fmt.Sprintf("%d", i)))
			}
		}(s)
	}
	wg.Wait()

	for s := 0; s < 4; s++ {
		turns, err := history.Load(ctx, fmt.Sprintf("session-%d", s))
		require.NoError(t, err)
		require.Len(t, turns, 10)
		for i, turn := range turns {
			assert.Equal(t, fmt.Sprintf("%d", i), turn.Content)
		}
	}
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	sessions := store.SessionStore()

	session := &domain.Session{ID: "s1"}
	require.NoError(t, sessions.Save(ctx, session))
	assert.Equal(t, domain.DefaultSessionTitle, session.Title)
	assert.False(t, session.CreatedAt.IsZero())

	got, err := sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, domain.DefaultSessionTitle, got.Title)
	assert.WithinDuration(t, session.CreatedAt, got.CreatedAt, time.Second)
}

func TestSessionStore_UpdateKeepsCreatedAt(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	sessions := store.SessionStore()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, sessions.Save(ctx, &domain.Session{ID: "s1", CreatedAt: created, UpdatedAt: created}))

	later := created.Add(time.Hour)
	require.NoError(t, sessions.Save(ctx, &domain.Session{
		ID: "s1", Title: "What is RAG?", CreatedAt: later, UpdatedAt: later,
	}))

	got, err := sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "What is RAG?", got.Title)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.True(t, got.UpdatedAt.Equal(later))
}

func TestSessionStore_GetNotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.SessionStore().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_ListMostRecentFirst(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	sessions := store.SessionStore()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	offsets := map[string]time.Duration{"old": 0, "newest": 2 * time.Hour, "middle": time.Hour}
	for id, offset := range offsets {
		require.NoError(t, sessions.Save(ctx, &domain.Session{
			ID: id, CreatedAt: base, UpdatedAt: base.Add(offset),
		}))
	}

	list, err := sessions.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "newest", list[0].ID)
	assert.Equal(t, "middle", list[1].ID)
	assert.Equal(t, "old", list[2].ID)
}

func TestSessionStore_Delete(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	sessions := store.SessionStore()

	require.NoError(t, sessions.Save(ctx, &domain.Session{ID: "s1"}))
	require.NoError(t, sessions.Delete(ctx, "s1"))
	require.NoError(t, sessions.Delete(ctx, "s1"))

	_, err := sessions.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_SaveRequiresID(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.SessionStore().Save(context.Background(), &domain.Session{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentRegistry_RecordListClear(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	registry := store.DocumentRegistry()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, registry.Record(ctx, &domain.IngestedDocument{
		ID: "d1", Filename: "notes.md", Title: "Notes", Characters: 2500, ChunkCount: 3, CreatedAt: base,
	}))
	require.NoError(t, registry.Record(ctx, &domain.IngestedDocument{
		ID: "d2", Filename: "report.pdf", Characters: 10, ChunkCount: 1, CreatedAt: base.Add(time.Minute),
	}))

	docs, err := registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "d1", docs[0].ID)
	assert.Equal(t, "notes.md", docs[0].Filename)
	assert.Equal(t, "Notes", docs[0].Title)
	assert.Equal(t, 2500, docs[0].Characters)
	assert.Equal(t, 3, docs[0].ChunkCount)
	assert.Equal(t, "d2", docs[1].ID)

	require.NoError(t, registry.Clear(ctx))
	docs, err = registry.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocumentRegistry_RecordRequiresID(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.DocumentRegistry().Record(context.Background(), &domain.IngestedDocument{Filename: "x.txt"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func contents(turns []domain.Turn) []string {
	out := make([]string, 0, len(turns))
	for _, turn := range turns {
		out = append(out, turn.Content)
	}
	return out
}
