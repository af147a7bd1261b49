// Package conversation holds the in-memory chat transcript: an append-only
// ordered sequence of turns plus a busy flag for the in-flight submission.
package conversation

import (
	"sync"
	"time"
)

// Message is a single turn. Image, when set, is a data-URL display reference
// for the attachment the user sent. Messages are never mutated after append.
type Message struct {
	Content string    `json:"content"`
	IsUser  bool      `json:"is_user"`
	Image   string    `json:"image,omitempty"`
	Time    time.Time `json:"time"`
}

// Log owns the message sequence exclusively. Appends are additive; the only
// destructive operation is Clear, which empties the whole sequence.
type Log struct {
	mu       sync.Mutex
	messages []Message
	busy     bool
}

func NewLog() *Log {
	return &Log{}
}

// Append adds a turn to the end of the transcript, stamping it if the caller
// did not.
func (l *Log) Append(msg Message) Message {
	if msg.Time.IsZero() {
		msg.Time = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
	return msg
}

// Messages returns a copy of the transcript in insertion order.
func (l *Log) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

// Clear empties the transcript. In-flight submissions are unaffected; their
// appends simply land on the fresh sequence.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
}

func (l *Log) SetBusy(busy bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.busy = busy
}

func (l *Log) Busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.busy
}
