package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driven"
)

func TestPromptStore_ImplementsInterface(t *testing.T) {
	var _ driven.PromptStore = (*PromptStore)(nil)
}

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	// No I/O until the first Load
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptSystemGeneral)
	require.NoError(t, err)

	for _, f := range []string{
		"chat_system_context.txt",
		"chat_system_general.txt",
		"chat_context_template.txt",
		"README.md",
	} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_Load_ReturnsDefaultContent(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	tests := map[string]string{
		driven.PromptSystemContext:   domain.GroundedSystemPrompt,
		driven.PromptSystemGeneral:   domain.GeneralSystemPrompt,
		driven.PromptContextTemplate: domain.ContextTemplate,
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := store.Load(name)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestPromptStore_DefaultTemplateShape(t *testing.T) {
	tmpl, ok := DefaultPrompt(driven.PromptContextTemplate)
	require.True(t, ok)

	assert.Equal(t, 2, strings.Count(tmpl, "%s"))
	assert.Contains(t, tmpl, domain.InsufficientContextReply)

	rendered := fmt.Sprintf(tmpl, "CTX", "Q?")
	assert.Contains(t, rendered, "### Context:\nCTX\n\n### Question:\nQ?\n\n### Answer:")

	_, ok = DefaultPrompt("unknown")
	assert.False(t, ok)
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat_system_general.txt"), []byte("Be brief.\n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	got, err := store.Load(driven.PromptSystemGeneral)
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", got)

	// Existing files are not overwritten by initialisation
	data, err := os.ReadFile(filepath.Join(dir, "chat_system_general.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Be brief.\n", string(data))
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptSystemGeneral)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "chat_system_context.txt")))

	got, err := store.Load(driven.PromptSystemContext)
	require.NoError(t, err)
	assert.Equal(t, domain.GroundedSystemPrompt, got)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("does_not_exist")
	assert.Error(t, err)
}

func TestPromptStore_Reload_ClearsCache(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptSystemGeneral)
	require.NoError(t, err)
	assert.Equal(t, domain.GeneralSystemPrompt, first)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat_system_general.txt"), []byte("Edited."), 0600))

	cached, err := store.Load(driven.PromptSystemGeneral)
	require.NoError(t, err)
	assert.Equal(t, domain.GeneralSystemPrompt, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptSystemGeneral)
	require.NoError(t, err)
	assert.Equal(t, "Edited.", fresh)
}

func TestPromptStore_Load_InitFailureUsesDefaults(t *testing.T) {
	store, err := NewPromptStore("/dev/null/prompts")
	require.NoError(t, err)

	got, err := store.Load(driven.PromptSystemContext)
	require.NoError(t, err)
	assert.Equal(t, domain.GroundedSystemPrompt, got)

	_, err = store.Load("unknown")
	assert.Error(t, err)
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := store.Load(driven.PromptContextTemplate)
			assert.NoError(t, err)
			assert.Equal(t, domain.ContextTemplate, got)
		}()
	}
	wg.Wait()
}
