package tutorchat

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/edustack/tutorchat/src/conversation"
	"github.com/edustack/tutorchat/src/models"
	"github.com/edustack/tutorchat/src/notify"
)

// SendStream is the streaming variant of Send for text-only submissions. The
// user's turn is appended immediately; the assistant's turn is appended once
// the stream completes. The retry policy does not apply here — a stream
// either starts or fails once.
func (c *Chat) SendStream(ctx context.Context, text string) (<-chan models.StreamChunk, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty submission")
	}
	if err := c.gate.Acquire(ctx); err != nil {
		return nil, err
	}

	c.log.SetBusy(true)
	c.log.Append(conversation.Message{Content: text, IsUser: true, Time: time.Now()})

	stream, err := c.model.GenerateStream(ctx, text)
	if err != nil {
		c.log.SetBusy(false)
		c.gate.Release()
		log.Printf("tutorchat: stream start failed: %v", err)
		c.notifier.Notify(notify.Error, genericNotice)
		return nil, err
	}

	out := make(chan models.StreamChunk)
	go func() {
		defer close(out)
		defer c.gate.Release()
		defer c.log.SetBusy(false)

		var full strings.Builder
		for chunk := range stream {
			if chunk.Err != nil {
				log.Printf("tutorchat: stream failed: %v", chunk.Err)
				c.notifier.Notify(notify.Error, genericNotice)
				forward(ctx, out, chunk)
				return
			}
			if chunk.Done && chunk.FullText != "" {
				full.Reset()
				full.WriteString(chunk.FullText)
			} else {
				full.WriteString(chunk.Delta)
			}
			if !forward(ctx, out, chunk) {
				// The consumer walked away. Let the provider finish into
				// the void so its goroutine does not leak either.
				go drain(stream)
				return
			}
		}
		c.log.Append(conversation.Message{Content: full.String(), Time: time.Now()})
	}()

	return out, nil
}

// forward delivers a chunk unless the submission context is cancelled.
// It must never block past cancellation: the gate and the busy flag are
// held until the forwarding goroutine returns.
func forward(ctx context.Context, out chan<- models.StreamChunk, chunk models.StreamChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func drain(stream <-chan models.StreamChunk) {
	for range stream {
	}
}
