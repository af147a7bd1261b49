package models

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// ---------------------------- Ollama -----------------------------------------

type OllamaLLM struct {
	Client            *ollama.Client
	Model             string
	SystemInstruction string
}

func NewOllamaLLM(model, systemInstruction string) (*OllamaLLM, error) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}

	return &OllamaLLM{
		Client:            ollama.NewClient(u, &http.Client{Timeout: 60 * time.Second}),
		Model:             model,
		SystemInstruction: systemInstruction,
	}, nil
}

func (o *OllamaLLM) Generate(ctx context.Context, prompt string) (any, error) {
	text, err := o.generate(ctx, prompt, nil)
	if err != nil {
		return nil, err
	}
	return text, nil
}

// GenerateWithFiles forwards image attachments as Ollama image data; text
// attachments are inlined into the prompt.
func (o *OllamaLLM) GenerateWithFiles(ctx context.Context, prompt string, files []File) (any, error) {
	var images []ollama.ImageData
	var textFiles []File
	for _, f := range files {
		mt := normalizeMIME(f.Name, f.MIME)
		if isImageMIME(mt) && len(f.Data) > 0 {
			images = append(images, ollama.ImageData(f.Data))
		} else if isTextMIME(mt) {
			textFiles = append(textFiles, f)
		}
	}

	text, err := o.generate(ctx, combinePromptWithFiles(prompt, textFiles), images)
	if err != nil {
		return nil, err
	}
	return text, nil
}

// GenerateStream leverages Ollama's native callback-based streaming.
func (o *OllamaLLM) GenerateStream(ctx context.Context, prompt string) (<-chan StreamChunk, error) {
	req := &ollama.GenerateRequest{
		Model:  o.Model,
		Prompt: prompt,
		System: o.SystemInstruction,
	}

	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		var full strings.Builder
		err := o.Client.Generate(ctx, req, func(gr ollama.GenerateResponse) error {
			if gr.Response != "" {
				full.WriteString(gr.Response)
				ch <- StreamChunk{Delta: gr.Response}
			}
			return nil
		})
		if err != nil {
			ch <- StreamChunk{Done: true, FullText: full.String(), Err: err}
			return
		}
		ch <- StreamChunk{Done: true, FullText: full.String()}
	}()

	return ch, nil
}

func (o *OllamaLLM) generate(ctx context.Context, prompt string, images []ollama.ImageData) (string, error) {
	stream := false
	req := &ollama.GenerateRequest{
		Model:  o.Model,
		Prompt: prompt,
		System: o.SystemInstruction,
		Images: images,
		Stream: &stream,
	}

	var text strings.Builder
	if err := o.Client.Generate(ctx, req, func(gr ollama.GenerateResponse) error {
		text.WriteString(gr.Response)
		return nil
	}); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return text.String(), nil
}

var _ Agent = (*OllamaLLM)(nil)
