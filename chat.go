// Package tutorchat implements the submission pipeline behind a tutoring
// chat: append the user's turn, call the hosted model with a bounded
// rate-limit retry, append the answer, and surface failures as transient
// notifications.
package tutorchat

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/edustack/tutorchat/src/concurrent"
	"github.com/edustack/tutorchat/src/conversation"
	"github.com/edustack/tutorchat/src/encode"
	"github.com/edustack/tutorchat/src/models"
	"github.com/edustack/tutorchat/src/notify"
	"github.com/edustack/tutorchat/src/retry"
)

// SystemInstruction is the tutoring persona attached to every model call,
// including the image-capable variant.
const SystemInstruction = "You are an expert tutor for physics, chemistry, and mathematics. " +
	"Answer every question with a clear step-by-step explanation, and format all " +
	"mathematical notation as display (block) equations."

// placeholderImageContent labels a user turn that carries an image but no
// text.
const placeholderImageContent = "Image analysis request"

// User-facing toast copy.
const (
	rateLimitNotice = "The tutor is handling too many requests right now. Please wait a moment and try again."
	genericNotice   = "Something went wrong while answering. Please try again."
	clearedNotice   = "Conversation cleared."
)

// Chat orchestrates model calls, conversation state, retries, and
// notifications for one rendered session.
type Chat struct {
	model       models.Agent
	visionModel models.Agent
	log         *conversation.Log
	policy      retry.Policy
	notifier    notify.Notifier
	gate        *concurrent.Gate
}

// Options configure a new Chat.
type Options struct {
	// Model answers text-only submissions. Required.
	Model models.Agent

	// VisionModel answers submissions carrying an image. Defaults to Model.
	VisionModel models.Agent

	// Log holds the transcript. Defaults to a fresh empty log.
	Log *conversation.Log

	// Policy bounds the retry loop. Defaults to retry.Default().
	Policy retry.Policy

	// Notifier receives transient toasts. Defaults to a log-backed notifier.
	Notifier notify.Notifier
}

// New creates a Chat with the provided options.
func New(opts Options) (*Chat, error) {
	if opts.Model == nil {
		return nil, errors.New("chat requires a language model")
	}
	vision := opts.VisionModel
	if vision == nil {
		vision = opts.Model
	}
	transcript := opts.Log
	if transcript == nil {
		transcript = conversation.NewLog()
	}
	policy := opts.Policy
	if policy.MaxAttempts <= 0 {
		policy = retry.Default()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(nil)
	}

	return &Chat{
		model:       opts.Model,
		visionModel: vision,
		log:         transcript,
		policy:      policy,
		notifier:    notifier,
		gate:        concurrent.NewGate(1),
	}, nil
}

// Send runs one submission through the pipeline and returns the assistant's
// turn. Submissions are serialized: a second Send blocks until the first
// settles.
func (c *Chat) Send(ctx context.Context, text string, image *encode.Attachment) (conversation.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && image == nil {
		return conversation.Message{}, errors.New("empty submission")
	}

	var answer conversation.Message
	err := c.gate.Do(ctx, func() error {
		var err error
		answer, err = c.submit(ctx, text, image)
		return err
	})
	return answer, err
}

func (c *Chat) submit(ctx context.Context, text string, image *encode.Attachment) (conversation.Message, error) {
	c.log.SetBusy(true)
	defer c.log.SetBusy(false)

	content := text
	displayRef := ""
	if image != nil {
		displayRef = image.DataURL()
		if content == "" {
			content = placeholderImageContent
		}
	}
	c.log.Append(conversation.Message{Content: content, IsUser: true, Image: displayRef, Time: time.Now()})

	answer, err := retry.DoValue(ctx, c.policy, func(ctx context.Context) (string, error) {
		var resp any
		var err error
		if image != nil {
			resp, err = c.visionModel.GenerateWithFiles(ctx, text, []models.File{{
				Name: image.Name,
				MIME: image.MIME,
				Data: image.Data,
			}})
		} else {
			resp, err = c.model.Generate(ctx, text)
		}
		if err != nil {
			return "", err
		}
		return models.Text(resp), nil
	})
	if err != nil {
		log.Printf("tutorchat: submission failed: %v", err)
		if retry.IsRateLimit(err) {
			c.notifier.Notify(notify.Error, rateLimitNotice)
		} else {
			c.notifier.Notify(notify.Error, genericNotice)
		}
		return conversation.Message{}, err
	}

	return c.log.Append(conversation.Message{Content: answer, Time: time.Now()}), nil
}

// Clear empties the transcript and confirms with a toast. In-flight
// submissions are not cancelled.
func (c *Chat) Clear() {
	c.log.Clear()
	c.notifier.Notify(notify.Info, clearedNotice)
}

// Messages returns a copy of the transcript in display order.
func (c *Chat) Messages() []conversation.Message {
	return c.log.Messages()
}

// Busy reports whether a submission is in flight.
func (c *Chat) Busy() bool {
	return c.log.Busy()
}
