package tutorchat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/edustack/tutorchat/src/encode"
	"github.com/edustack/tutorchat/src/models"
	"github.com/edustack/tutorchat/src/notify"
	"github.com/edustack/tutorchat/src/retry"
)

type stubModel struct {
	response   string
	failures   int   // rate-limit failures before succeeding
	failWith   error // non-retryable error returned on every call
	calls      int
	fileCalls  int
	lastPrompt string
	lastFiles  []models.File
	onGenerate func()
}

func (s *stubModel) generate(prompt string) (any, error) {
	s.calls++
	s.lastPrompt = prompt
	if s.onGenerate != nil {
		s.onGenerate()
	}
	if s.failWith != nil {
		return nil, s.failWith
	}
	if s.calls <= s.failures {
		return nil, fmt.Errorf("model call: %w", retry.ErrRateLimited)
	}
	return s.response, nil
}

func (s *stubModel) Generate(_ context.Context, prompt string) (any, error) {
	return s.generate(prompt)
}

func (s *stubModel) GenerateWithFiles(_ context.Context, prompt string, files []models.File) (any, error) {
	s.fileCalls++
	s.lastFiles = files
	return s.generate(prompt)
}

func (s *stubModel) GenerateStream(_ context.Context, prompt string) (<-chan models.StreamChunk, error) {
	resp, err := s.generate(prompt)
	if err != nil {
		return nil, err
	}
	text := models.Text(resp)
	ch := make(chan models.StreamChunk, 8)
	go func() {
		defer close(ch)
		for _, word := range strings.SplitAfter(text, " ") {
			ch <- models.StreamChunk{Delta: word}
		}
		ch <- models.StreamChunk{Done: true, FullText: text}
	}()
	return ch, nil
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, Delay: time.Millisecond}
}

func newTestChat(t *testing.T, model, vision models.Agent) (*Chat, *notify.Buffer) {
	t.Helper()
	toasts := notify.NewBuffer()
	chat, err := New(Options{
		Model:       model,
		VisionModel: vision,
		Policy:      fastPolicy(),
		Notifier:    toasts,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return chat, toasts
}

func pngAttachment() *encode.Attachment {
	return &encode.Attachment{
		Name: "pixel.png",
		MIME: "image/png",
		Data: []byte{0x89, 'P', 'N', 'G'},
	}
}

func TestNewRequiresModel(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error when no model is provided")
	}
}

func TestSendAppendsUserAndAssistantTurns(t *testing.T) {
	model := &stubModel{response: "F = ma"}
	chat, _ := newTestChat(t, model, nil)

	answer, err := chat.Send(context.Background(), "What is Newton's second law?", nil)
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if answer.Content != "F = ma" || answer.IsUser {
		t.Fatalf("unexpected assistant turn: %+v", answer)
	}

	msgs := chat.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "What is Newton's second law?" || !msgs[0].IsUser {
		t.Fatalf("unexpected user turn: %+v", msgs[0])
	}
	if msgs[1].Content != "F = ma" || msgs[1].IsUser || msgs[1].Image != "" {
		t.Fatalf("unexpected assistant turn: %+v", msgs[1])
	}
	if chat.Busy() {
		t.Fatalf("chat should not be busy after settlement")
	}
}

func TestRepeatedSendsGrowTranscriptByTwo(t *testing.T) {
	model := &stubModel{response: "answer"}
	chat, _ := newTestChat(t, model, nil)

	for n := 1; n <= 3; n++ {
		if _, err := chat.Send(context.Background(), fmt.Sprintf("question %d", n), nil); err != nil {
			t.Fatalf("Send %d returned error: %v", n, err)
		}
		if got := len(chat.Messages()); got != 2*n {
			t.Fatalf("after %d submissions expected %d messages, got %d", n, 2*n, got)
		}
	}
}

func TestImageOnlySubmissionUsesPlaceholder(t *testing.T) {
	vision := &stubModel{response: "a free-body diagram"}
	chat, _ := newTestChat(t, &stubModel{response: "unused"}, vision)

	if _, err := chat.Send(context.Background(), "", pngAttachment()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	msgs := chat.Messages()
	if msgs[0].Content != placeholderImageContent {
		t.Fatalf("expected placeholder content, got %q", msgs[0].Content)
	}
	if !strings.HasPrefix(msgs[0].Image, "data:image/png;base64,") {
		t.Fatalf("expected data-URL display reference, got %q", msgs[0].Image)
	}
	if vision.fileCalls != 1 || len(vision.lastFiles) != 1 || vision.lastFiles[0].MIME != "image/png" {
		t.Fatalf("vision model did not receive the attachment: %+v", vision.lastFiles)
	}
	if vision.lastPrompt != "" {
		t.Fatalf("expected empty prompt for image-only submission, got %q", vision.lastPrompt)
	}
}

func TestImageSubmissionPicksVisionModel(t *testing.T) {
	text := &stubModel{response: "text"}
	vision := &stubModel{response: "vision"}
	chat, _ := newTestChat(t, text, vision)

	answer, err := chat.Send(context.Background(), "what does this show?", pngAttachment())
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if answer.Content != "vision" {
		t.Fatalf("expected vision model answer, got %q", answer.Content)
	}
	if text.calls != 0 {
		t.Fatalf("text model should not be called, got %d calls", text.calls)
	}
}

func TestRateLimitRetriesThenSucceeds(t *testing.T) {
	model := &stubModel{response: "eventually", failures: 2}
	chat, toasts := newTestChat(t, model, nil)

	if _, err := chat.Send(context.Background(), "q", nil); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if model.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", model.calls)
	}
	if got := toasts.Drain(); len(got) != 0 {
		t.Fatalf("expected no toasts on success, got %+v", got)
	}
	if len(chat.Messages()) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(chat.Messages()))
	}
}

func TestRateLimitExhaustionNotifies(t *testing.T) {
	model := &stubModel{failures: 100}
	chat, toasts := newTestChat(t, model, nil)

	_, err := chat.Send(context.Background(), "q", nil)
	if err == nil {
		t.Fatalf("expected error after retry exhaustion")
	}
	if !retry.IsRateLimit(err) {
		t.Fatalf("expected rate-limit error, got %v", err)
	}
	if model.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", model.calls)
	}

	got := toasts.Drain()
	if len(got) != 1 || got[0].Message != rateLimitNotice || got[0].Level != "error" {
		t.Fatalf("expected rate-limit toast, got %+v", got)
	}

	// The user turn stays; no assistant turn is appended.
	msgs := chat.Messages()
	if len(msgs) != 1 || !msgs[0].IsUser {
		t.Fatalf("expected only the user turn, got %+v", msgs)
	}
	if chat.Busy() {
		t.Fatalf("chat should not be busy after failure")
	}
}

func TestNonRetryableFailureIsImmediate(t *testing.T) {
	boom := errors.New("bad request")
	model := &stubModel{failWith: boom}
	chat, toasts := newTestChat(t, model, nil)

	_, err := chat.Send(context.Background(), "q", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if model.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", model.calls)
	}

	got := toasts.Drain()
	if len(got) != 1 || got[0].Message != genericNotice {
		t.Fatalf("expected generic toast, got %+v", got)
	}
}

func TestBusyStrictlyDuringSubmission(t *testing.T) {
	model := &stubModel{response: "ok"}
	chat, _ := newTestChat(t, model, nil)

	if chat.Busy() {
		t.Fatalf("chat should start idle")
	}
	model.onGenerate = func() {
		if !chat.Busy() {
			t.Errorf("chat should be busy during the model call")
		}
	}
	if _, err := chat.Send(context.Background(), "q", nil); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if chat.Busy() {
		t.Fatalf("chat should be idle after settlement")
	}
}

func TestClearEmptiesAndNotifies(t *testing.T) {
	model := &stubModel{response: "a"}
	chat, toasts := newTestChat(t, model, nil)

	if _, err := chat.Send(context.Background(), "q", nil); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	chat.Clear()

	if len(chat.Messages()) != 0 {
		t.Fatalf("expected empty transcript after clear")
	}
	got := toasts.Drain()
	if len(got) != 1 || got[0].Message != clearedNotice || got[0].Level != "info" {
		t.Fatalf("expected clear confirmation toast, got %+v", got)
	}

	// Clearing an already-empty conversation works too.
	chat.Clear()
	if len(chat.Messages()) != 0 {
		t.Fatalf("expected transcript to stay empty")
	}
}

func TestEmptySubmissionRejected(t *testing.T) {
	model := &stubModel{response: "never"}
	chat, _ := newTestChat(t, model, nil)

	if _, err := chat.Send(context.Background(), "   ", nil); err == nil {
		t.Fatalf("expected error for empty submission")
	}
	if model.calls != 0 {
		t.Fatalf("model should not be called, got %d calls", model.calls)
	}
	if len(chat.Messages()) != 0 {
		t.Fatalf("no turns should be appended, got %d", len(chat.Messages()))
	}
}

func TestSendStreamAppendsFullAnswer(t *testing.T) {
	model := &stubModel{response: "step one, step two"}
	chat, _ := newTestChat(t, model, nil)

	stream, err := chat.SendStream(context.Background(), "walk me through it")
	if err != nil {
		t.Fatalf("SendStream returned error: %v", err)
	}

	var deltas strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			t.Fatalf("stream error: %v", chunk.Err)
		}
		if !chunk.Done {
			deltas.WriteString(chunk.Delta)
		}
	}

	msgs := chat.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[1].Content != "step one, step two" {
		t.Fatalf("unexpected assistant turn: %q", msgs[1].Content)
	}
	if deltas.String() != "step one, step two" {
		t.Fatalf("unexpected streamed text: %q", deltas.String())
	}
	if chat.Busy() {
		t.Fatalf("chat should be idle after the stream closes")
	}
}

func TestAbandonedStreamReleasesPipeline(t *testing.T) {
	model := &stubModel{response: "first second third"}
	chat, _ := newTestChat(t, model, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := chat.SendStream(ctx, "walk me through it"); err != nil {
		t.Fatalf("SendStream returned error: %v", err)
	}
	// Read nothing from the stream; just walk away.
	cancel()

	sendCtx, sendCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer sendCancel()
	if _, err := chat.Send(sendCtx, "next question", nil); err != nil {
		t.Fatalf("Send after abandoned stream returned error: %v", err)
	}
	if chat.Busy() {
		t.Fatalf("chat should be idle after settlement")
	}
	// The abandoned stream keeps its user turn; the follow-up adds two more.
	if got := len(chat.Messages()); got != 3 {
		t.Fatalf("expected 3 messages, got %d", got)
	}
}
