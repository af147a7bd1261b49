package models

import (
	"context"
	"fmt"
	"strings"
)

// DummyLLM is an offline stand-in for a hosted tutor model. It answers by
// echoing the question under a fixed prefix, which keeps transcripts easy to
// assert on in tests and lets the CLI run without an API key.
type DummyLLM struct {
	Prefix string
}

func NewDummyLLM(prefix string) *DummyLLM {
	if strings.TrimSpace(prefix) == "" {
		prefix = "Worked answer:"
	}
	return &DummyLLM{Prefix: prefix}
}

// Generate answers the last non-empty line of the prompt, so multi-line
// submissions respond to the actual question rather than any preamble.
func (d *DummyLLM) Generate(_ context.Context, prompt string) (any, error) {
	question := lastNonEmptyLine(prompt)
	if question == "" {
		question = "<empty prompt>"
	}
	return fmt.Sprintf("%s %s", d.Prefix, question), nil
}

// GenerateWithFiles answers the composed prompt, attachments inlined, so
// tests can see exactly what a real multimodal call would have carried.
func (d *DummyLLM) GenerateWithFiles(_ context.Context, prompt string, files []File) (any, error) {
	return fmt.Sprintf("%s %s", d.Prefix, combinePromptWithFiles(prompt, files)), nil
}

// GenerateStream replays the answer word by word, mimicking how the hosted
// providers deliver a step-by-step solution.
func (d *DummyLLM) GenerateStream(_ context.Context, prompt string) (<-chan StreamChunk, error) {
	result, _ := d.Generate(context.Background(), prompt)
	text := Text(result)

	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		words := strings.Fields(text)
		var sb strings.Builder
		for i, word := range words {
			if i > 0 {
				word = " " + word
			}
			sb.WriteString(word)
			ch <- StreamChunk{Delta: word}
		}
		ch <- StreamChunk{Done: true, FullText: sb.String()}
	}()

	return ch, nil
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

var _ Agent = (*DummyLLM)(nil)
