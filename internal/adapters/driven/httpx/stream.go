package httpx

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/custodia-labs/ragchat/internal/core/ports/driven"
)

// maxLine bounds a single SSE line.
const maxLine = 1 << 20

// NewLineScanner returns a scanner over line-oriented stream bodies.
func NewLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	return sc
}

// Event is one server-sent event.
type Event struct {
	Name string
	Data string
}

// EventReader splits a text/event-stream body into events.
type EventReader struct {
	sc *bufio.Scanner
}

// NewEventReader wraps an SSE response body.
func NewEventReader(r io.Reader) *EventReader {
	return &EventReader{sc: NewLineScanner(r)}
}

// Next returns the next event, or io.EOF once the body is exhausted.
// Comment lines are skipped and multiple data lines are joined with "\n".
func (r *EventReader) Next() (Event, error) {
	var ev Event
	var data []string
	pending := false

	for r.sc.Scan() {
		line := strings.TrimRight(r.sc.Text(), "\r")
		if line == "" {
			if pending {
				ev.Data = strings.Join(data, "\n")
				return ev, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Name = value
			pending = true
		case "data":
			data = append(data, value)
			pending = true
		}
	}
	if err := r.sc.Err(); err != nil {
		return Event{}, err
	}
	if pending {
		ev.Data = strings.Join(data, "\n")
		return ev, nil
	}
	return Event{}, io.EOF
}

// Send delivers chunk unless the consumer's context is done first.
// It reports whether the chunk was delivered.
func Send(ctx context.Context, out chan<- driven.StreamChunk, chunk driven.StreamChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
