// Package web serves the landing and chat surfaces over HTTP.
//
// Endpoints:
//   - GET  /                 - landing page (search entry point + chat panel)
//   - POST /api/chat         - one submission (multipart text + optional image)
//   - POST /api/chat/stream  - streaming submission (SSE)
//   - POST /api/clear        - clear the conversation
//   - GET  /api/messages     - current transcript + busy flag
//   - GET  /health           - health check
package web

import (
	_ "embed"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	tutorchat "github.com/edustack/tutorchat"
	"github.com/edustack/tutorchat/src/conversation"
	"github.com/edustack/tutorchat/src/encode"
	"github.com/edustack/tutorchat/src/notify"
	"github.com/edustack/tutorchat/src/retry"
)

//go:embed index.html
var indexHTML []byte

// MaxUploadBytes caps the multipart form we are willing to parse.
const MaxUploadBytes = 8 << 20

type Server struct {
	chat   *tutorchat.Chat
	toasts *notify.Buffer
	mux    *http.ServeMux
}

// NewServer wires the chat pipeline to the HTTP surface. toasts must be the
// same buffer the Chat notifies into.
func NewServer(chat *tutorchat.Chat, toasts *notify.Buffer) *Server {
	s := &Server{chat: chat, toasts: toasts, mux: http.NewServeMux()}
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/api/chat", s.handleChat)
	s.mux.HandleFunc("/api/chat/stream", s.handleChatStream)
	s.mux.HandleFunc("/api/clear", s.handleClear)
	s.mux.HandleFunc("/api/messages", s.handleMessages)
	s.mux.HandleFunc("/health", s.handleHealth)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

type apiResponse struct {
	Answer   string                 `json:"answer,omitempty"`
	Busy     bool                   `json:"busy"`
	Messages []conversation.Message `json:"messages"`
	Toasts   []notify.Toast         `json:"toasts,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)

	text := strings.TrimSpace(r.FormValue("q"))
	att, err := formAttachment(r)
	if err != nil {
		http.Error(w, "unreadable attachment", http.StatusBadRequest)
		return
	}
	if text == "" && att == nil {
		http.Error(w, "empty submission", http.StatusBadRequest)
		return
	}

	answer, err := s.chat.Send(r.Context(), text, att)
	if err != nil {
		status := http.StatusBadGateway
		if retry.IsRateLimit(err) {
			status = http.StatusTooManyRequests
		}
		s.writeState(w, status, "")
		return
	}
	s.writeState(w, http.StatusOK, answer.Content)
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	text := strings.TrimSpace(r.FormValue("q"))
	if text == "" {
		http.Error(w, "empty submission", http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	stream, err := s.chat.SendStream(r.Context(), text)
	if err != nil {
		http.Error(w, "submission failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	enc := json.NewEncoder(w)
	// Once a write fails (client gone mid-stream) we must keep consuming
	// the channel; abandoning it would leave the submission pipeline held.
	writeBroken := false
	for chunk := range stream {
		if writeBroken {
			continue
		}
		payload := struct {
			Delta string `json:"delta,omitempty"`
			Done  bool   `json:"done,omitempty"`
			Error string `json:"error,omitempty"`
		}{Delta: chunk.Delta, Done: chunk.Done}
		if chunk.Err != nil {
			payload.Error = chunk.Err.Error()
		}
		if err := writeEvent(w, enc, payload); err != nil {
			writeBroken = true
			continue
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, enc *json.Encoder, payload any) error {
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if err := enc.Encode(payload); err != nil {
		return err
	}
	_, err := w.Write([]byte("\n"))
	return err
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.chat.Clear()
	s.writeState(w, http.StatusOK, "")
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeState(w, http.StatusOK, "")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// formAttachment pulls the optional image upload out of the request. A
// missing file or a non-multipart form is not an error.
func formAttachment(r *http.Request) (*encode.Attachment, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	att, err := encode.FromReader(header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		return nil, err
	}
	return &att, nil
}

func (s *Server) writeState(w http.ResponseWriter, status int, answer string) {
	messages := s.chat.Messages()
	if messages == nil {
		messages = []conversation.Message{}
	}
	writeJSON(w, status, apiResponse{
		Answer:   answer,
		Busy:     s.chat.Busy(),
		Messages: messages,
		Toasts:   s.toasts.Drain(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: write response: %v", err)
	}
}
