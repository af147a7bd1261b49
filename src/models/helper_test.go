package models

import (
	"strings"
	"testing"
)

func TestNormalizeMIME(t *testing.T) {
	cases := []struct {
		name, mime, want string
	}{
		{"photo.jpg", "", "image/jpeg"},
		{"photo.bin", "image/jpg", "image/jpeg"},
		{"photo.bin", "image/pjpeg", "image/jpeg"},
		{"shot.PNG", "", "image/png"},
		{"clip.bin", "image/png; charset=binary", "image/png"},
		{"notes.md", "", "text/markdown"},
		{"junk.png", "garbage", "image/png"},
	}
	for _, tc := range cases {
		if got := normalizeMIME(tc.name, tc.mime); got != tc.want {
			t.Fatalf("normalizeMIME(%q, %q) = %q, want %q", tc.name, tc.mime, got, tc.want)
		}
	}
}

func TestSanitizeImageMIME(t *testing.T) {
	if got := sanitizeImageMIME("image/jpg"); got != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %q", got)
	}
	if got := sanitizeImageMIME("application/pdf"); got != "" {
		t.Fatalf("expected unsupported type to be skipped, got %q", got)
	}
	if got := sanitizeImageMIME("image/webp"); got != "image/webp" {
		t.Fatalf("expected image/webp, got %q", got)
	}
}

func TestIsTextMIME(t *testing.T) {
	for _, mt := range []string{"text/plain", "text/markdown", "application/json"} {
		if !isTextMIME(mt) {
			t.Fatalf("expected %q to be text", mt)
		}
	}
	for _, mt := range []string{"", "image/png", "application/pdf"} {
		if isTextMIME(mt) {
			t.Fatalf("expected %q to be non-text", mt)
		}
	}
}

func TestCombinePromptWithFiles(t *testing.T) {
	if got := combinePromptWithFiles("base", nil); got != "base" {
		t.Fatalf("expected base prompt unchanged, got %q", got)
	}

	files := []File{
		{Name: "a.txt", MIME: "text/plain", Data: []byte("alpha")},
		{Name: "", MIME: "image/png", Data: []byte{1}},
	}
	got := combinePromptWithFiles("base", files)
	if !strings.HasPrefix(got, "base") {
		t.Fatalf("prompt should lead, got %q", got)
	}
	if !strings.Contains(got, "alpha") {
		t.Fatalf("text file content missing: %q", got)
	}
	if !strings.Contains(got, "file_2") {
		t.Fatalf("unnamed attachment should get a fallback title: %q", got)
	}
}
