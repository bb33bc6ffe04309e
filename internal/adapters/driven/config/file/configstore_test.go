package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_NestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.model", "mistral"))

	_, err = os.Stat(filepath.Join(dir, "config.toml"))
	assert.NoError(t, err)
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_CorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("this is not valid TOML {{{[["), 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.provider", "openai"))
	require.NoError(t, store.Set("retrieval.k", 4))
	require.NoError(t, store.Set("retrieval.fetch_k", "12"))
	require.NoError(t, store.Set("retrieval.lambda", 0.3))
	require.NoError(t, store.Set("embedding.rate_limit", "2.5"))
	require.NoError(t, store.Set("history.persist_partial", true))
	require.NoError(t, store.Set("flag", "yes"))

	assert.Equal(t, "openai", store.GetString("llm.provider"))
	assert.Equal(t, 4, store.GetInt("retrieval.k"))
	assert.Equal(t, 12, store.GetInt("retrieval.fetch_k"))
	assert.InDelta(t, 0.3, store.GetFloat("retrieval.lambda"), 1e-9)
	assert.InDelta(t, 2.5, store.GetFloat("embedding.rate_limit"), 1e-9)
	assert.InDelta(t, 4.0, store.GetFloat("retrieval.k"), 1e-9)
	assert.True(t, store.GetBool("history.persist_partial"))

	// Wrong types and unparsable strings fall back to zero values
	assert.False(t, store.GetBool("flag"))
	assert.Equal(t, 0, store.GetInt("llm.provider"))
	assert.Equal(t, "", store.GetString("retrieval.k"))
	assert.Zero(t, store.GetFloat("missing"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_PersistsAsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.provider", "ollama"))
	require.NoError(t, store.Set("llm.model", "llama3.2:3b"))
	require.NoError(t, store.Set("chunking.size", 800))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[llm]")
	assert.Contains(t, string(data), "[chunking]")

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "ollama", reloaded.GetString("llm.provider"))
	assert.Equal(t, "llama3.2:3b", reloaded.GetString("llm.model"))
	assert.Equal(t, 800, reloaded.GetInt("chunking.size"))
	assert.Equal(t, []string{"chunking.size", "llm.model", "llm.provider"}, reloaded.Keys())
}

func TestConfigStore_LoadsHandWrittenFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[llm]
provider = "anthropic"
timeout = "90s"

[retrieval]
k = 6
type = "mmr"
lambda = 0.7
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", store.GetString("llm.provider"))
	assert.Equal(t, "90s", store.GetString("llm.timeout"))
	assert.Equal(t, 6, store.GetInt("retrieval.k"))
	assert.Equal(t, "mmr", store.GetString("retrieval.type"))
	assert.InDelta(t, 0.7, store.GetFloat("retrieval.lambda"), 1e-9)
}

func TestConfigStore_Load_NonExistent(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Load())
	assert.Empty(t, store.Keys())
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.api_key", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Save_WriteFileError(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("test", "value"))

	// Replace the file with a directory to cause a write error
	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("another", "value"))
}

func TestConfigStore_SetWithUnmarshallableValue(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	// Channels cannot be marshalled to TOML
	assert.Error(t, store.Set("channel", make(chan int)))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = store.Set("retrieval.k", i)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("retrieval.k")
		}()
	}
	wg.Wait()

	_, ok := store.Get("retrieval.k")
	assert.True(t, ok)
}

func TestNestMap(t *testing.T) {
	nested := nestMap(map[string]any{
		"llm.model":    "m",
		"llm.provider": "p",
		"top":          1,
	})

	llm, ok := nested["llm"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "m", llm["model"])
	assert.Equal(t, "p", llm["provider"])
	assert.Equal(t, 1, nested["top"])

	// A scalar that shadows a table prefix keeps the dotted key flat
	conflict := nestMap(map[string]any{"a": 1, "a.b": 2})
	assert.Equal(t, 1, conflict["a"])
	assert.Equal(t, 2, conflict["a.b"])
}

func TestFlattenMap(t *testing.T) {
	flat := flattenMap(map[string]any{
		"llm":  map[string]any{"model": "m", "opts": map[string]any{"t": 0.1}},
		"root": true,
	}, "")

	assert.Equal(t, map[string]any{"llm.model": "m", "llm.opts.t": 0.1, "root": true}, flat)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("RAGCHAT_TEST_KEY=from-file\nRAGCHAT_TEST_SET=from-file\n"), 0600))

	t.Setenv("RAGCHAT_TEST_SET", "from-env")
	t.Setenv("RAGCHAT_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("RAGCHAT_TEST_KEY"))

	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env"), envPath))

	assert.Equal(t, "from-file", os.Getenv("RAGCHAT_TEST_KEY"))
	assert.Equal(t, "from-env", os.Getenv("RAGCHAT_TEST_SET"), "existing variables are not overridden")
}
