package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ---------------------------- Google Gemini ----------------------------------

const (
	// DefaultGeminiTextModel answers text-only submissions.
	DefaultGeminiTextModel = "gemini-2.0-flash-exp"

	// DefaultGeminiVisionModel answers submissions carrying an image.
	DefaultGeminiVisionModel = "gemini-pro"
)

type GeminiLLM struct {
	Client            *genai.Client
	Model             string
	SystemInstruction string
}

// NewGeminiLLM builds a Gemini-backed Agent. The credential is injected from
// the environment (GOOGLE_API_KEY or GEMINI_API_KEY), never embedded.
func NewGeminiLLM(ctx context.Context, model, systemInstruction string) (*GeminiLLM, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY or GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	if model == "" {
		model = DefaultGeminiTextModel
	}
	return &GeminiLLM{Client: client, Model: model, SystemInstruction: systemInstruction}, nil
}

// generativeModel builds a fresh model handle per call; no state is carried
// between requests.
func (g *GeminiLLM) generativeModel() *genai.GenerativeModel {
	model := g.Client.GenerativeModel(g.Model)
	if sys := strings.TrimSpace(g.SystemInstruction); sys != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(sys)}}
	}
	return model
}

func (g *GeminiLLM) Generate(ctx context.Context, prompt string) (any, error) {
	resp, err := g.generativeModel().GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return geminiText(resp)
}

// GenerateWithFiles sends the multimodal request shape: inline image bytes
// plus the (optional) prompt. Text attachments are inlined into the prompt;
// unsupported attachment types are referenced but not sent.
func (g *GeminiLLM) GenerateWithFiles(ctx context.Context, prompt string, files []File) (any, error) {
	var blobs []genai.Part
	var textFiles []File
	for _, f := range files {
		mt := normalizeMIME(f.Name, f.MIME)
		if sanitized := sanitizeImageMIME(mt); sanitized != "" && len(f.Data) > 0 {
			blobs = append(blobs, genai.Blob{MIMEType: sanitized, Data: f.Data})
		} else if isTextMIME(mt) {
			textFiles = append(textFiles, f)
		}
	}

	fullPrompt := combinePromptWithFiles(prompt, textFiles)
	parts := blobs
	if strings.TrimSpace(fullPrompt) != "" {
		parts = append(parts, genai.Text(fullPrompt))
	}
	if len(parts) == 0 {
		return nil, errors.New("gemini: nothing to send")
	}

	resp, err := g.generativeModel().GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return geminiText(resp)
}

// GenerateStream streams the completion chunk by chunk.
func (g *GeminiLLM) GenerateStream(ctx context.Context, prompt string) (<-chan StreamChunk, error) {
	iter := g.generativeModel().GenerateContentStream(ctx, genai.Text(prompt))

	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		var full strings.Builder
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				ch <- StreamChunk{Done: true, FullText: full.String(), Err: fmt.Errorf("gemini stream: %w", err)}
				return
			}
			delta, err := geminiText(resp)
			if err != nil {
				continue
			}
			full.WriteString(delta)
			ch <- StreamChunk{Delta: delta}
		}
		ch <- StreamChunk{Done: true, FullText: full.String()}
	}()

	return ch, nil
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String(), nil
}

var _ Agent = (*GeminiLLM)(nil)
