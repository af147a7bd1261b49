// tutorchat — one-shot CLI for the tutoring chat pipeline.
// - Defaults to Gemini; switch provider/model via flags.
// - An optional image attachment rides along with the question.
//
// Examples:
//
//	export GOOGLE_API_KEY=...   # or GEMINI_API_KEY
//	go run ./cmd/tutorchat -message "What is Newton's second law?"
//
//	go run ./cmd/tutorchat -message "Solve this" -image problem.png
//
//	export OPENAI_API_KEY=...
//	go run ./cmd/tutorchat -provider openai -model gpt-4o-mini -message "Brief"
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	tutorchat "github.com/edustack/tutorchat"
	"github.com/edustack/tutorchat/src/encode"
	"github.com/edustack/tutorchat/src/models"
)

var (
	flagProvider    = flag.String("provider", "gemini", "LLM provider: openai|gemini|anthropic|ollama|dummy")
	flagModel       = flag.String("model", models.DefaultGeminiTextModel, "Model ID for text submissions")
	flagVisionModel = flag.String("vision-model", models.DefaultGeminiVisionModel, "Model ID for image submissions")
	flagSystem      = flag.String("system", tutorchat.SystemInstruction, "System instruction")
	flagMessage     = flag.String("message", "", "User message")
	flagImage       = flag.String("image", "", "Path to an image attachment")
	flagStream      = flag.Bool("stream", false, "Stream the answer as it is generated")
	flagJSON        = flag.Bool("json", false, "Print JSON {answer, provider, model}")
	flagTimeout     = flag.Duration("timeout", 90*time.Second, "Overall request timeout")
)

func main() {
	_ = godotenv.Load()
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *flagTimeout)
	defer cancel()

	if strings.TrimSpace(*flagMessage) == "" && *flagImage == "" {
		fail(errors.New("no message and no image provided"))
	}

	var attachment *encode.Attachment
	if *flagImage != "" {
		att, err := encode.FromFile(*flagImage)
		if err != nil {
			fail(err)
		}
		attachment = &att
	}

	model, err := models.NewLLMProvider(ctx, *flagProvider, *flagModel, *flagSystem)
	if err != nil {
		fail(err)
	}
	vision, err := models.NewLLMProvider(ctx, *flagProvider, *flagVisionModel, *flagSystem)
	if err != nil {
		fail(err)
	}

	chat, err := tutorchat.New(tutorchat.Options{
		Model:       models.TryCreateCachedLLM(model),
		VisionModel: vision,
	})
	if err != nil {
		fail(err)
	}

	if *flagStream && attachment == nil {
		streamAnswer(ctx, chat)
		return
	}

	answer, err := chat.Send(ctx, *flagMessage, attachment)
	if err != nil {
		fail(err)
	}
	printAnswer(answer.Content)
}

func streamAnswer(ctx context.Context, chat *tutorchat.Chat) {
	stream, err := chat.SendStream(ctx, *flagMessage)
	if err != nil {
		fail(err)
	}
	var full string
	for chunk := range stream {
		if chunk.Err != nil {
			fail(chunk.Err)
		}
		if chunk.Done {
			full = chunk.FullText
			continue
		}
		if !*flagJSON {
			fmt.Print(chunk.Delta)
		}
	}
	if *flagJSON {
		printAnswer(full)
	} else {
		fmt.Println()
	}
}

func printAnswer(answer string) {
	if *flagJSON {
		out, err := json.Marshal(map[string]string{
			"answer":   answer,
			"provider": *flagProvider,
			"model":    *flagModel,
		})
		if err != nil {
			fail(err)
		}
		fmt.Println(string(out))
		return
	}
	fmt.Println(answer)
}

func fail(err error) {
	log.SetFlags(0)
	log.Fatalf("tutorchat: %v", err)
}
