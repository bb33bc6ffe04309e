// Package mcp provides an MCP (Model Context Protocol) server adapter.
// It lets AI assistants ask questions over the uploaded documents, upload
// new ones and read conversation history.
package mcp

import "errors"

var (
	// ErrMissingChatService is returned when the chat service is not provided.
	ErrMissingChatService = errors.New("mcp: chat service is required")

	// errIngestUnavailable is returned by upload when no ingest service is wired.
	errIngestUnavailable = errors.New("upload is not available: ingest service not configured")

	// errSessionsUnavailable is returned by new_session when no session service is wired.
	errSessionsUnavailable = errors.New("sessions are not available: session service not configured")
)
