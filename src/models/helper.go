package models

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// MIME lookup tables shared by the provider adapters.
var (
	mimeExtMap = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".webp": "image/webp",
		".bmp":  "image/bmp",
		".heic": "image/heic",
		".txt":  "text/plain",
		".md":   "text/markdown",
		".json": "application/json",
	}

	mimeAliasMap = map[string]string{
		"image/jpg":   "image/jpeg",
		"image/pjpeg": "image/jpeg",
		"image/x-png": "image/png",
	}
)

// NewLLMProvider returns a concrete Agent.
func NewLLMProvider(ctx context.Context, provider, model, systemInstruction string) (Agent, error) {
	switch provider {
	case "openai":
		return NewOpenAILLM(model, systemInstruction), nil
	case "gemini", "google":
		return NewGeminiLLM(ctx, model, systemInstruction)
	case "ollama":
		return NewOllamaLLM(model, systemInstruction)
	case "anthropic", "claude":
		return NewAnthropicLLM(model, systemInstruction), nil
	case "dummy":
		return NewDummyLLM(""), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

// normalizeMIME fixes messy/alias MIMEs and falls back to the file extension.
func normalizeMIME(name, m string) string {
	strip := func(s string) string {
		if i := strings.IndexByte(s, ';'); i >= 0 {
			return strings.TrimSpace(s[:i])
		}
		return strings.TrimSpace(s)
	}

	fromExt := func() string {
		ext := strings.ToLower(filepath.Ext(name))
		if ext == "" {
			return ""
		}
		if mt, ok := mimeExtMap[ext]; ok {
			return mt
		}
		if mt := mime.TypeByExtension(ext); mt != "" {
			return strip(mt)
		}
		return ""
	}

	raw := strip(strings.ToLower(m))
	if raw == "" {
		return fromExt()
	}
	if normalized, ok := mimeAliasMap[raw]; ok {
		return normalized
	}
	// Malformed MIME -> trust the extension instead.
	if !strings.Contains(raw, "/") || strings.HasSuffix(raw, "/") {
		if via := fromExt(); via != "" {
			return via
		}
	}
	return raw
}

// sanitizeImageMIME filters to the image types the hosted models accept.
// Returns "" to skip attaching (fallback to text-only).
func sanitizeImageMIME(mt string) string {
	switch normalizeMIME("", mt) {
	case "image/png":
		return "image/png"
	case "image/jpeg":
		return "image/jpeg"
	case "image/webp":
		return "image/webp"
	case "image/gif":
		return "image/gif"
	default:
		return ""
	}
}

func isImageMIME(m string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(m)), "image/")
}

func isTextMIME(m string) bool {
	m = strings.ToLower(strings.TrimSpace(m))
	if m == "" {
		return false
	}
	if strings.HasPrefix(m, "text/") {
		return true
	}
	switch m {
	case "application/json", "application/xml", "application/x-yaml", "application/yaml":
		return true
	default:
		return false
	}
}

// combinePromptWithFiles inlines text attachments into the prompt. Non-text
// attachments are only referenced; the provider path attaches their bytes.
func combinePromptWithFiles(base string, files []File) string {
	if len(files) == 0 {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\n---\nATTACHMENTS — BEGIN\n")
	for i, f := range files {
		title := strings.TrimSpace(f.Name)
		if title == "" {
			title = fmt.Sprintf("file_%d", i+1)
		}
		mt := normalizeMIME(f.Name, f.MIME)
		if isTextMIME(mt) && len(f.Data) > 0 {
			b.WriteString("\n<<<FILE ")
			b.WriteString(title)
			b.WriteString(">>>:\n")
			b.Write(f.Data)
			b.WriteString("\n<<<END FILE ")
			b.WriteString(title)
			b.WriteString(">>>\n")
		} else {
			b.WriteString("\n[Non-text attachment] ")
			b.WriteString(title)
			if mt != "" {
				b.WriteString(" (")
				b.WriteString(mt)
				b.WriteString(")")
			}
		}
	}
	b.WriteString("\nATTACHMENTS — END\n---\n")
	return b.String()
}
