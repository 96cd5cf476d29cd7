// Command server boots the pharmacy assistant kernel: it loads
// configuration, wires the store-backed agent services into an
// Orchestrator, and serves the turn/confirmation/live-trace API over
// HTTP and WebSocket — the same shape as
// codeready-toolchain-tarsy/cmd/tarsy/main.go's flag-parse,
// load-env-then-config, wire-services, serve sequence.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/zoobzio/clockz"

	"github.com/arogya-path/kernel/internal/adapters"
	"github.com/arogya-path/kernel/internal/config"
	"github.com/arogya-path/kernel/internal/confirmation"
	"github.com/arogya-path/kernel/internal/eventbus"
	"github.com/arogya-path/kernel/internal/fulfillment"
	"github.com/arogya-path/kernel/internal/fusion"
	"github.com/arogya-path/kernel/internal/inventoryagent"
	"github.com/arogya-path/kernel/internal/orchestrator"
	"github.com/arogya-path/kernel/internal/risk"
	"github.com/arogya-path/kernel/internal/store"
	"github.com/arogya-path/kernel/internal/trace"
	"github.com/arogya-path/kernel/internal/transport/httpapi"
	"github.com/arogya-path/kernel/internal/transport/tracews"
	"github.com/arogya-path/kernel/internal/validator"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("CONFIG_FILE", "./config.yaml"), "path to the config YAML file")
	envPath := flag.String("env-file", getEnv("ENV_FILE", "./.env"), "path to an optional .env file")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.New(ctx, cfg.Database.DSN, store.WithFuzzyScanLimit(cfg.Database.FuzzyScanLimit))
	if err != nil {
		log.Fatalf("connect store: %v", err)
	}
	defer db.Close()
	log.Println("connected to database and applied migrations")

	fusionHub := fusion.New()
	tracer := trace.New(fusionHub)
	events := eventbus.New(1000)
	confirmations := confirmation.New(clockz.RealClock, cfg.Confirmation.TokenTTL)
	confirmations.StartSweeper(cfg.Confirmation.SweepInterval)
	defer confirmations.Close()

	riskSvc := risk.New(db)
	validatorSvc := validator.New(db, db, interactionChecker(cfg), severityAssessor(cfg))
	inventorySvc := inventoryagent.New(db, db)
	fulfillmentSvc := fulfillment.New(db, events).
		WithIdempotencyCache(store.NewIdempotencyCache(clockz.RealClock, int64(cfg.Idempotency.Window)))

	orch := orchestrator.New(riskSvc, validatorSvc, inventorySvc, fulfillmentSvc, confirmations, tracer, events)

	server := httpapi.New(orch, textExtractor(cfg), intentClassifier(cfg), ocrExtractor(cfg), transcriber(cfg)).
		WithTrace(tracews.New(tracer, fusionHub))

	gin.SetMode(getEnv("GIN_MODE", "release"))
	engine := gin.Default()
	server.RegisterRoutes(engine)

	log.Printf("listening on %s", cfg.Server.Addr)
	go func() {
		if err := engine.Run(cfg.Server.Addr); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
}

// textExtractor, intentClassifier, ocrExtractor and transcriber each
// return the HTTP-backed adapter when a base URL is configured, or the
// deterministic mock otherwise — an empty adapters.AdapterConfig.BaseURL
// means "no provider wired yet," so a deployment with no credentials on
// hand still starts and serves traffic against the mocks.
func textExtractor(cfg *config.Config) adapters.TextExtractor {
	if cfg.Adapters.LLMText.BaseURL == "" {
		return adapters.NewMockLLM()
	}
	client := adapters.NewHTTPClient(cfg.Adapters.LLMText.BaseURL, cfg.Adapters.LLMText.Timeout)
	return adapters.NewHTTPTextExtractor(client)
}

func intentClassifier(cfg *config.Config) adapters.IntentClassifier {
	if cfg.Adapters.Intent.BaseURL == "" {
		return adapters.NewMockIntentClassifier()
	}
	client := adapters.NewHTTPClient(cfg.Adapters.Intent.BaseURL, cfg.Adapters.Intent.Timeout)
	return adapters.NewHTTPIntentClassifier(client)
}

func ocrExtractor(cfg *config.Config) adapters.OCRExtractor {
	if cfg.Adapters.OCR.BaseURL == "" {
		return adapters.NewMockOCR()
	}
	client := adapters.NewHTTPClient(cfg.Adapters.OCR.BaseURL, cfg.Adapters.OCR.Timeout)
	return adapters.NewHTTPOCRExtractor(client)
}

func transcriber(cfg *config.Config) adapters.Transcriber {
	if cfg.Adapters.STT.BaseURL == "" {
		return adapters.NewMockTranscriber()
	}
	client := adapters.NewHTTPClient(cfg.Adapters.STT.BaseURL, cfg.Adapters.STT.Timeout)
	return adapters.NewHTTPTranscriber(client)
}

// interactionChecker and severityAssessor wrap the same HTTP-or-mock
// choice with a circuit breaker, since validator.Service calls both on
// every prescription/OTC turn and neither should be allowed to cascade a
// flapping upstream into every subsequent turn.
func interactionChecker(cfg *config.Config) validator.InteractionChecker {
	if cfg.Adapters.LLMSafety.BaseURL == "" {
		return adapters.NewCircuitBreakerInteractionChecker(adapters.NewMockLLM())
	}
	client := adapters.NewHTTPClient(cfg.Adapters.LLMSafety.BaseURL, cfg.Adapters.LLMSafety.Timeout)
	return adapters.NewCircuitBreakerInteractionChecker(adapters.NewHTTPInteractionChecker(client))
}

func severityAssessor(cfg *config.Config) validator.SeverityAssessor {
	if cfg.Adapters.LLMSeverity.BaseURL == "" {
		return adapters.NewCircuitBreakerSeverityAssessor(adapters.NewMockLLM())
	}
	client := adapters.NewHTTPClient(cfg.Adapters.LLMSeverity.BaseURL, cfg.Adapters.LLMSeverity.Timeout)
	return adapters.NewCircuitBreakerSeverityAssessor(adapters.NewHTTPSeverityAssessor(client))
}
