package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragchat/internal/adapters/driven/vectorindex/bolt"
	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driving"
)

// Upload a three-page PDF, then ask about it in a fresh session.
func TestScenario_UploadThenAsk(t *testing.T) {
	ctx := context.Background()
	index := bolt.New(filepath.Join(t.TempDir(), IndexDirName), letterEmbedder{})
	history := memory.NewHistoryStore()
	sessions := memory.NewSessionStore()

	ingest := NewIngestService(
		newTestRegistry(&fakePDFRunner{out: []byte(threePages())}),
		newTestPipeline(),
		index,
		memory.NewDocumentRegistry(),
	)
	uploaded, err := ingest.Upload(ctx, "paper.pdf", []byte("%PDF-1.5 three pages"))
	require.NoError(t, err)
	assert.Equal(t, 2500, uploaded.Characters)
	assert.Equal(t, 3, uploaded.Chunks)
	require.True(t, index.Exists())

	llm := &mockLLM{fragments: []string{"The topic ", "is letters."}}
	chat := NewChatOrchestrator(index, llm, history, sessions, NewPromptAssembler(nil),
		ChatConfigFrom(&domain.AppSettings{Retrieval: domain.DefaultAppSettings().Retrieval}))

	session, err := NewSessionService(sessions, history).Create(ctx)
	require.NoError(t, err)

	var streamed []string
	result, err := chat.Ask(ctx, driving.AskRequest{SessionID: session.ID, Question: "What is the topic?"}, collect(&streamed))
	require.NoError(t, err)

	assert.Contains(t, result.States, domain.StateContextLookup)
	assert.True(t, result.Grounded)
	assert.NotEmpty(t, result.Sources)
	assert.LessOrEqual(t, len(result.Sources), domain.DefaultRetrievalK)
	assert.Equal(t, []string{"The topic ", "is letters."}, streamed)

	msgs := llm.lastMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.GroundedSystemPrompt, msgs[0].Content)
	assert.Contains(t, msgs[1].Content, "### Context:")
	assert.Contains(t, msgs[1].Content, "### Question:\nWhat is the topic?")

	turns, err := history.Load(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, domain.RoleUser, turns[0].Role)
	assert.Equal(t, "What is the topic?", turns[0].Content)
	assert.Equal(t, domain.RoleAssistant, turns[1].Role)
	assert.Equal(t, "The topic is letters.", turns[1].Content)
}

// Ask before anything was uploaded.
func TestScenario_AskWithoutIndex(t *testing.T) {
	ctx := context.Background()
	index := bolt.New(filepath.Join(t.TempDir(), IndexDirName), letterEmbedder{})
	require.False(t, index.Exists())

	llm := &mockLLM{fragments: []string{"Hello!"}}
	chat := NewChatOrchestrator(index, llm, memory.NewHistoryStore(), memory.NewSessionStore(), NewPromptAssembler(nil), ChatConfig{})

	result, err := chat.Ask(ctx, driving.AskRequest{Question: "Hi there"}, nil)

	require.NoError(t, err)
	assert.False(t, result.Grounded)
	assert.Empty(t, result.Sources)

	msgs := llm.lastMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.GeneralSystemPrompt, msgs[0].Content)
	assert.Equal(t, "Hi there", msgs[1].Content)
	assert.False(t, index.Exists(), "asking never creates the index")
}
