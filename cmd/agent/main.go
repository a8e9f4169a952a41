package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lehoanglam20000/ai-agent/internal/api"
	"github.com/lehoanglam20000/ai-agent/internal/chat"
	"github.com/lehoanglam20000/ai-agent/internal/config"
	"github.com/lehoanglam20000/ai-agent/internal/events"
	"github.com/lehoanglam20000/ai-agent/internal/leads"
	"github.com/lehoanglam20000/ai-agent/internal/openai"
	"github.com/lehoanglam20000/ai-agent/internal/slack"
	"github.com/lehoanglam20000/ai-agent/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("agent starting", "port", cfg.Port, "store_driver", cfg.StoreDriver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	db, err := store.New(ctx, store.Config{
		Driver:      cfg.StoreDriver,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
	})
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("store ready", "driver", cfg.StoreDriver)

	// OpenAI client
	if cfg.OpenAIAPIKey == "" {
		slog.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	llm := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	slog.Info("openai client ready", "model", cfg.OpenAIModel)

	// System directive
	systemPrompt, err := chat.LoadSystemPrompt(cfg.PromptPath)
	if err != nil {
		slog.Error("failed to load system prompt", "path", cfg.PromptPath, "error", err)
		os.Exit(1)
	}

	orch := chat.NewOrchestrator(db, llm, systemPrompt, slog.Default())

	// NATS fanout (optional — the assistant works without it)
	var eventsClient *events.Client
	var pub leads.Publisher
	if cfg.NatsURL != "" {
		eventsClient, err = events.NewClient(cfg.NatsURL, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		pub = eventsClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — running without event fanout")
	}

	// Slack lead notifier (optional)
	var notifier leads.Notifier
	if cfg.SlackBotToken != "" && cfg.SlackLeadsChannel != "" {
		notifier = slack.NewPoster(cfg.SlackBotToken, cfg.SlackLeadsChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackLeadsChannel)
	} else {
		slog.Warn("slack not configured — running without lead notifications")
	}

	analyzer := leads.NewAnalyzer(db, llm, pub, notifier, slog.Default())

	// Event-driven lead extraction alongside the HTTP route.
	if eventsClient != nil {
		err = eventsClient.Subscribe(events.SubjectAnalyzeRequest, func(subject string, data []byte) {
			var req events.AnalyzeRequest
			if err := json.Unmarshal(data, &req); err != nil {
				slog.Error("failed to parse analyze request", "error", err)
				return
			}
			if _, err := analyzer.Analyze(ctx, req.SessionID); err != nil {
				slog.Error("event-driven analysis failed", "session_id", req.SessionID, "error", err)
			}
		})
		if err != nil {
			slog.Error("failed to subscribe to analyze requests", "error", err)
			os.Exit(1)
		}
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, db, orch, analyzer, eventsClient, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("agent ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("agent stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
