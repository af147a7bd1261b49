package models

import (
	"context"
	"strings"
	"testing"
)

func TestNewDummyLLMDefaultPrefix(t *testing.T) {
	llm := NewDummyLLM("")
	resp, err := llm.Generate(context.Background(), "line1\nline2")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got := resp.(string); got != "Worked answer: line2" {
		t.Fatalf("unexpected response: %q", got)
	}
}

func TestDummyLLMUsesLastNonEmptyLine(t *testing.T) {
	llm := NewDummyLLM("Prefix:")
	resp, err := llm.Generate(context.Background(), "first\n\nsecond\n  \nthird")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got := resp.(string); got != "Prefix: third" {
		t.Fatalf("unexpected response: %q", got)
	}
}

func TestDummyLLMHandlesEmptyPrompt(t *testing.T) {
	llm := NewDummyLLM("Prefix")
	resp, err := llm.Generate(context.Background(), "\n\n\n")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got := resp.(string); got != "Prefix <empty prompt>" {
		t.Fatalf("unexpected response: %q", got)
	}
}

func TestDummyLLMGenerateWithFilesInlinesText(t *testing.T) {
	llm := NewDummyLLM("PFX")
	files := []File{
		{Name: "notes.md", MIME: "text/markdown", Data: []byte("# kinematics")},
		{Name: "diagram.png", MIME: "image/png", Data: []byte{0x89, 0x50, 0x4e, 0x47}},
	}

	out, err := llm.GenerateWithFiles(context.Background(), "summarize:", files)
	if err != nil {
		t.Fatalf("GenerateWithFiles returned error: %v", err)
	}
	got := out.(string)
	if !strings.Contains(got, "# kinematics") {
		t.Fatalf("expected text attachment inlined, got %q", got)
	}
	if !strings.Contains(got, "[Non-text attachment] diagram.png") {
		t.Fatalf("expected image referenced, got %q", got)
	}
}

func TestDummyLLMGenerateStream(t *testing.T) {
	llm := NewDummyLLM("PFX")
	ch, err := llm.GenerateStream(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("GenerateStream returned error: %v", err)
	}

	var full strings.Builder
	var done StreamChunk
	for chunk := range ch {
		if chunk.Done {
			done = chunk
			continue
		}
		full.WriteString(chunk.Delta)
	}
	if done.FullText == "" || done.FullText != full.String() {
		t.Fatalf("stream deltas %q do not match full text %q", full.String(), done.FullText)
	}
}

func TestNewLLMProviderErrorsOnUnknownProvider(t *testing.T) {
	if _, err := NewLLMProvider(context.Background(), "unknown", "model", ""); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestNewLLMProviderDummy(t *testing.T) {
	agent, err := NewLLMProvider(context.Background(), "dummy", "", "")
	if err != nil {
		t.Fatalf("NewLLMProvider returned error: %v", err)
	}
	if _, ok := agent.(*DummyLLM); !ok {
		t.Fatalf("expected *DummyLLM, got %T", agent)
	}
}

func TestText(t *testing.T) {
	if got := Text(nil); got != "" {
		t.Fatalf("Text(nil) = %q", got)
	}
	if got := Text("plain"); got != "plain" {
		t.Fatalf("Text(string) = %q", got)
	}
	if got := Text(42); got != "42" {
		t.Fatalf("Text(int) = %q", got)
	}
}
