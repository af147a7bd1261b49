package models

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ---------------------------- OpenAI ------------------------------------------

type OpenAILLM struct {
	Model             string
	SystemInstruction string
}

func NewOpenAILLM(model, systemInstruction string) *OpenAILLM {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAILLM{Model: model, SystemInstruction: systemInstruction}
}

// client builds a fresh client per call from the environment credential.
func (o *OpenAILLM) client() *openai.Client {
	return openai.NewClient(os.Getenv("OPENAI_API_KEY"))
}

func (o *OpenAILLM) messages(content any) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	if sys := strings.TrimSpace(o.SystemInstruction); sys != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: sys,
		})
	}
	switch c := content.(type) {
	case string:
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: c,
		})
	case []openai.ChatMessagePart:
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:         openai.ChatMessageRoleUser,
			MultiContent: c,
		})
	}
	return msgs
}

func (o *OpenAILLM) Generate(ctx context.Context, prompt string) (any, error) {
	resp, err := o.client().CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.Model,
		Messages: o.messages(prompt),
	})
	if err != nil {
		return nil, fmt.Errorf("openai generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateWithFiles attaches images as inline data URLs; text attachments are
// inlined into the prompt.
func (o *OpenAILLM) GenerateWithFiles(ctx context.Context, prompt string, files []File) (any, error) {
	var parts []openai.ChatMessagePart
	var textFiles []File
	for _, f := range files {
		mt := normalizeMIME(f.Name, f.MIME)
		if sanitized := sanitizeImageMIME(mt); sanitized != "" && len(f.Data) > 0 {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    "data:" + sanitized + ";base64," + base64.StdEncoding.EncodeToString(f.Data),
					Detail: openai.ImageURLDetailAuto,
				},
			})
		} else if isTextMIME(mt) {
			textFiles = append(textFiles, f)
		}
	}

	fullPrompt := combinePromptWithFiles(prompt, textFiles)
	if strings.TrimSpace(fullPrompt) != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: fullPrompt,
		})
	}
	if len(parts) == 0 {
		return nil, errors.New("openai: nothing to send")
	}

	resp, err := o.client().CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.Model,
		Messages: o.messages(parts),
	})
	if err != nil {
		return nil, fmt.Errorf("openai generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAILLM) GenerateStream(ctx context.Context, prompt string) (<-chan StreamChunk, error) {
	stream, err := o.client().CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    o.Model,
		Messages: o.messages(prompt),
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}

	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		defer stream.Close()
		var full strings.Builder
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				ch <- StreamChunk{Done: true, FullText: full.String(), Err: fmt.Errorf("openai stream: %w", err)}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta != "" {
				full.WriteString(delta)
				ch <- StreamChunk{Delta: delta}
			}
		}
		ch <- StreamChunk{Done: true, FullText: full.String()}
	}()

	return ch, nil
}

var _ Agent = (*OpenAILLM)(nil)
