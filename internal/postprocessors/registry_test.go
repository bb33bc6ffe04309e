package postprocessors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driven"
	"github.com/custodia-labs/ragchat/internal/postprocessors/chunker"
)

func TestRegistry_RegisterAndBuild(t *testing.T) {
	r := NewRegistry()
	r.Register("mock", func(_ map[string]any) (driven.PostProcessor, error) {
		return &mockProcessor{name: "mock"}, nil
	})

	assert.True(t, r.Has("mock"))
	assert.False(t, r.Has("missing"))

	proc, err := r.Build("mock", nil)
	require.NoError(t, err)
	assert.Equal(t, "mock", proc.Name())

	_, err = r.Build("missing", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorContains(t, err, `unknown processor "missing" (available: mock)`)
}

func TestRegistry_BuildWrapsBuilderErrors(t *testing.T) {
	r := NewDefaultRegistry()

	assert.Equal(t, []string{"chunker"}, r.Names())

	_, err := r.Build("chunker", map[string]any{"chunk_size": 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorContains(t, err, "configuring chunker")
	assert.ErrorContains(t, err, "chunk_size must be positive")
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := NewRegistry()
	build := func(_ map[string]any) (driven.PostProcessor, error) { return nil, nil }
	r.Register("zeta", build)
	r.Register("alpha", build)

	assert.Equal(t, []string{"alpha", "zeta"}, r.Names())
}

func TestBuildChunker(t *testing.T) {
	tests := []struct {
		name        string
		cfg         map[string]any
		wantSize    int
		wantOverlap int
		wantErr     bool
	}{
		{"nil config", nil, 1000, 100, false},
		{"ints", map[string]any{"chunk_size": 500, "overlap": 50}, 500, 50, false},
		{"toml int64", map[string]any{"chunk_size": int64(800), "overlap": int64(80)}, 800, 80, false},
		{"json float64", map[string]any{"chunk_size": 600.0}, 600, 100, false},
		{"zero overlap", map[string]any{"overlap": 0}, 1000, 0, false},
		{"non-positive size", map[string]any{"chunk_size": 0}, 0, 0, true},
		{"negative overlap", map[string]any{"overlap": -5}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, err := buildChunker(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			c, ok := proc.(*chunker.Processor)
			require.True(t, ok)
			assert.Equal(t, tt.wantSize, c.ChunkSize())
			assert.Equal(t, tt.wantOverlap, c.Overlap())
		})
	}
}

func TestGetIntFromConfig(t *testing.T) {
	v, ok := getIntFromConfig(map[string]any{"k": "12"}, "k")
	assert.False(t, ok)
	assert.Zero(t, v)

	_, ok = getIntFromConfig(nil, "k")
	assert.False(t, ok)
}
