package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragchat/internal/core/domain"
)

func runChatWith(t *testing.T, input string) (string, error) {
	t.Helper()
	oldInput := chatInput
	defer func() {
		chatInput = oldInput
		chatSessionID = ""
	}()
	chatInput = strings.NewReader(input)
	return execute(t, "chat")
}

func TestChatCmd_AnswersAndKeepsSession(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := runChatWith(t, "first question\nsecond question\n/exit\n")

	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Hello world."))
	require.Len(t, ts.chat.requests, 2)
	assert.Empty(t, ts.chat.requests[0].SessionID)
	assert.Equal(t, "sess-new", ts.chat.requests[1].SessionID, "the session returned by the first answer is reused")
}

func TestChatCmd_NewStartsFreshSession(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := runChatWith(t, "hello\n/new\nagain\n")

	require.NoError(t, err)
	require.Len(t, ts.chat.requests, 2)
	assert.Empty(t, ts.chat.requests[1].SessionID)
}

func TestChatCmd_EndOfInputExits(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := runChatWith(t, "\n\n")

	require.NoError(t, err)
	assert.Empty(t, ts.chat.requests)
}

func TestChatCmd_HistoryAndSources(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.chat.sources = []domain.RetrievedChunk{{
		ChunkID:  "c1",
		Content:  "RAG combines retrieval with generation.",
		Metadata: map[string]any{domain.MetaSource: "rag.pdf"},
		Score:    0.8,
	}}

	oldID := chatSessionID
	defer func() { chatSessionID = oldID }()

	oldInput := chatInput
	defer func() { chatInput = oldInput }()
	chatInput = strings.NewReader("/history\n/sources\n/exit\n")

	out, err := execute(t, "chat", "--session", "sess-1")

	require.NoError(t, err)
	assert.Contains(t, out, "What is RAG?")
	assert.Contains(t, out, "Retrieval-augmented generation.")
	assert.Contains(t, out, "No sources for the last answer.")
}

func TestChatCmd_ErrorsDoNotEndTheLoop(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.chat.err = domain.ErrLLMUnavailable

	out, err := runChatWith(t, "one\ntwo\n/exit\n")

	require.NoError(t, err)
	assert.Len(t, ts.chat.requests, 2)
	assert.Equal(t, 2, strings.Count(out, "Error: LLM service unavailable"))
}

func TestChatCmd_UnknownCommand(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := runChatWith(t, "/bogus\n/quit\n")

	require.NoError(t, err)
	assert.Contains(t, out, "Unknown command")
}
