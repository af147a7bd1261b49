// server — serves the landing page and chat surfaces over HTTP, forwarding
// submissions to the hosted model. The API credential stays server-side and
// is injected from the environment.
//
//	export GOOGLE_API_KEY=...
//	go run ./cmd/server -addr :8080
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	tutorchat "github.com/edustack/tutorchat"
	"github.com/edustack/tutorchat/src/models"
	"github.com/edustack/tutorchat/src/notify"
	"github.com/edustack/tutorchat/src/web"
)

var (
	flagAddr        = flag.String("addr", ":8080", "Listen address")
	flagProvider    = flag.String("provider", "gemini", "LLM provider: openai|gemini|anthropic|ollama|dummy")
	flagModel       = flag.String("model", models.DefaultGeminiTextModel, "Model ID for text submissions")
	flagVisionModel = flag.String("vision-model", models.DefaultGeminiVisionModel, "Model ID for image submissions")
	flagSystem      = flag.String("system", tutorchat.SystemInstruction, "System instruction")
)

func main() {
	_ = godotenv.Load()
	flag.Parse()

	ctx := context.Background()
	model, err := models.NewLLMProvider(ctx, *flagProvider, *flagModel, *flagSystem)
	if err != nil {
		log.Fatalf("server: %v", err)
	}
	vision, err := models.NewLLMProvider(ctx, *flagProvider, *flagVisionModel, *flagSystem)
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	toasts := notify.NewBuffer()
	chat, err := tutorchat.New(tutorchat.Options{
		Model:       models.TryCreateCachedLLM(model),
		VisionModel: vision,
		Notifier:    toasts,
	})
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	srv := &http.Server{
		Addr:              *flagAddr,
		Handler:           web.NewServer(chat, toasts).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("server: listening on %s (provider=%s model=%s)", *flagAddr, *flagProvider, *flagModel)
	log.Fatal(srv.ListenAndServe())
}
