package models

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
)

// ---------------------------- Anthropic ---------------------------------------

const anthropicMaxTokens = 2048

type AnthropicLLM struct {
	Model             string
	SystemInstruction string
}

// NewAnthropicLLM builds a Claude-backed Agent. The SDK reads
// ANTHROPIC_API_KEY from the environment.
func NewAnthropicLLM(model, systemInstruction string) *AnthropicLLM {
	if model == "" {
		model = "claude-sonnet-4-0"
	}
	return &AnthropicLLM{Model: model, SystemInstruction: systemInstruction}
}

func (a *AnthropicLLM) params(blocks ...anthropic.ContentBlockParamUnion) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: anthropicMaxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	}
	if sys := strings.TrimSpace(a.SystemInstruction); sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}
	return params
}

func (a *AnthropicLLM) Generate(ctx context.Context, prompt string) (any, error) {
	client := anthropic.NewClient()
	msg, err := client.Messages.New(ctx, a.params(anthropic.NewTextBlock(prompt)))
	if err != nil {
		return nil, fmt.Errorf("anthropic generate: %w", err)
	}
	return anthropicText(msg)
}

// GenerateWithFiles attaches images as base64 blocks; text attachments are
// inlined into the prompt.
func (a *AnthropicLLM) GenerateWithFiles(ctx context.Context, prompt string, files []File) (any, error) {
	var blocks []anthropic.ContentBlockParamUnion
	var textFiles []File
	for _, f := range files {
		mt := normalizeMIME(f.Name, f.MIME)
		if sanitized := sanitizeImageMIME(mt); sanitized != "" && len(f.Data) > 0 {
			blocks = append(blocks, anthropic.NewImageBlockBase64(sanitized, base64.StdEncoding.EncodeToString(f.Data)))
		} else if isTextMIME(mt) {
			textFiles = append(textFiles, f)
		}
	}

	fullPrompt := combinePromptWithFiles(prompt, textFiles)
	if strings.TrimSpace(fullPrompt) != "" {
		blocks = append(blocks, anthropic.NewTextBlock(fullPrompt))
	}
	if len(blocks) == 0 {
		return nil, errors.New("anthropic: nothing to send")
	}

	client := anthropic.NewClient()
	msg, err := client.Messages.New(ctx, a.params(blocks...))
	if err != nil {
		return nil, fmt.Errorf("anthropic generate: %w", err)
	}
	return anthropicText(msg)
}

// GenerateStream returns the completion as a single chunk; the Claude path
// does not stream partial deltas.
func (a *AnthropicLLM) GenerateStream(ctx context.Context, prompt string) (<-chan StreamChunk, error) {
	return singleChunkStream(a.Generate(ctx, prompt)), nil
}

func anthropicText(msg *anthropic.Message) (string, error) {
	if msg == nil || len(msg.Content) == 0 {
		return "", errors.New("anthropic: empty response")
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

var _ Agent = (*AnthropicLLM)(nil)
