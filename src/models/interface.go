package models

import (
	"context"
	"fmt"
)

// File is a lightweight in-memory attachment.
// Name is used for display; MIME should be best-effort (e.g., "image/png").
type File struct {
	Name string
	MIME string
	Data []byte
}

// StreamChunk is one increment of a streamed completion. Done is sent exactly
// once, carrying the full accumulated text and any terminal error.
type StreamChunk struct {
	Delta    string
	FullText string
	Done     bool
	Err      error
}

type Agent interface {
	Generate(context.Context, string) (any, error)
	GenerateWithFiles(context.Context, string, []File) (any, error)
	GenerateStream(context.Context, string) (<-chan StreamChunk, error)
}

// Text coerces a provider response to plain text.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// singleChunkStream wraps an immediate result in a one-chunk stream.
func singleChunkStream(val any, err error) <-chan StreamChunk {
	ch := make(chan StreamChunk, 1)
	if err != nil {
		ch <- StreamChunk{Done: true, Err: err}
	} else {
		text := Text(val)
		ch <- StreamChunk{Delta: text, FullText: text, Done: true}
	}
	close(ch)
	return ch
}
