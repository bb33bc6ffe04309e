package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driving"
	"github.com/custodia-labs/ragchat/internal/logger"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question  string `json:"question" jsonschema:"the question to answer from the uploaded documents"`
	SessionID string `json:"session_id,omitempty" jsonschema:"session to continue; omit to start a new one"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	SessionID string        `json:"session_id"`
	Answer    string        `json:"answer"`
	Grounded  bool          `json:"grounded"`
	Sources   []ChunkOutput `json:"sources,omitempty"`
}

// ChunkOutput is a retrieved chunk.
type ChunkOutput struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source,omitempty"`
	Score   float64 `json:"score"`
	Content string  `json:"content"`
}

// UploadInput is the input schema for the upload tool.
type UploadInput struct {
	Path string `json:"path" jsonschema:"absolute path of the file to upload"`
}

// UploadOutput is the output schema for the upload tool.
type UploadOutput struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Title      string `json:"title,omitempty"`
	Characters int    `json:"characters"`
	Chunks     int    `json:"chunks"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"text to find relevant document chunks for"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	// Indexed is false when nothing has been uploaded yet.
	Indexed bool          `json:"indexed"`
	Chunks  []ChunkOutput `json:"chunks"`
	Count   int           `json:"count"`
}

// NewSessionInput is the input schema for the new_session tool.
type NewSessionInput struct{}

// NewSessionOutput is the output schema for the new_session tool.
type NewSessionOutput struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using the uploaded documents as context, continuing a chat session",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the document chunks most relevant to a query without generating an answer",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "upload",
		Description: "Extract, chunk and index a local document (PDF, DOCX, HTML, Markdown or text)",
	}, s.handleUpload)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "new_session",
		Description: "Start a new chat session",
	}, s.handleNewSession)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, AskOutput{}, errors.New("question is required")
	}

	req := driving.AskRequest{SessionID: input.SessionID, Question: input.Question}
	result, err := s.ports.Chat.Ask(ctx, req, nil)
	if err != nil {
		logger.Warn("mcp ask failed: %v", err)
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		SessionID: result.SessionID,
		Answer:    result.Answer,
		Grounded:  result.Grounded,
		Sources:   chunkOutputs(result.Sources),
	}, nil
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	chunks, err := s.ports.Chat.Retrieve(ctx, input.Query)
	if errors.Is(err, domain.ErrNoIndex) {
		return nil, RetrieveOutput{Indexed: false, Chunks: []ChunkOutput{}}, nil
	}
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	out := chunkOutputs(chunks)
	return nil, RetrieveOutput{Indexed: true, Chunks: out, Count: len(out)}, nil
}

// handleUpload handles the upload tool invocation.
func (s *Server) handleUpload(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UploadInput,
) (*mcp.CallToolResult, UploadOutput, error) {
	if s.ports.Ingest == nil {
		return nil, UploadOutput{}, errIngestUnavailable
	}
	if strings.TrimSpace(input.Path) == "" {
		return nil, UploadOutput{}, errors.New("path is required")
	}

	res, err := s.ports.Ingest.UploadFile(ctx, input.Path)
	if err != nil {
		return nil, UploadOutput{}, err
	}

	return nil, UploadOutput{
		DocumentID: res.DocumentID,
		Filename:   res.Filename,
		Title:      res.Title,
		Characters: res.Characters,
		Chunks:     res.Chunks,
	}, nil
}

// handleNewSession handles the new_session tool invocation.
func (s *Server) handleNewSession(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ NewSessionInput,
) (*mcp.CallToolResult, NewSessionOutput, error) {
	if s.ports.Sessions == nil {
		return nil, NewSessionOutput{}, errSessionsUnavailable
	}
	session, err := s.ports.Sessions.Create(ctx)
	if err != nil {
		return nil, NewSessionOutput{}, err
	}
	return nil, NewSessionOutput{SessionID: session.ID, Title: session.Title}, nil
}

func chunkOutputs(chunks []domain.RetrievedChunk) []ChunkOutput {
	out := make([]ChunkOutput, len(chunks))
	for i, c := range chunks {
		out[i] = ChunkOutput{
			ChunkID: c.ChunkID,
			Source:  c.Source(),
			Score:   c.Score,
			Content: c.Content,
		}
	}
	return out
}
