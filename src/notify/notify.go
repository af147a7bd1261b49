// Package notify delivers transient, toast-style notifications to whatever
// surface is attached: the web UI drains a Buffer, the CLI logs them.
package notify

import (
	"log"
	"sync"
)

type Level int

const (
	Info Level = iota
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Toast is one transient notification.
type Toast struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type Notifier interface {
	Notify(level Level, message string)
}

// LogNotifier writes notifications to a standard logger.
type LogNotifier struct {
	Logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) Notify(level Level, message string) {
	n.Logger.Printf("[%s] %s", level, message)
}

// Buffer accumulates toasts until a surface drains them.
type Buffer struct {
	mu     sync.Mutex
	toasts []Toast
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Notify(level Level, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toasts = append(b.toasts, Toast{Level: level.String(), Message: message})
}

// Drain returns the pending toasts and resets the buffer.
func (b *Buffer) Drain() []Toast {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.toasts
	b.toasts = nil
	return out
}

var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*Buffer)(nil)
)
