package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lipo-out/linebot/internal/backend"
	"github.com/lipo-out/linebot/internal/config"
	"github.com/lipo-out/linebot/internal/events"
	"github.com/lipo-out/linebot/internal/handler"
	"github.com/lipo-out/linebot/internal/line"
	"github.com/lipo-out/linebot/internal/llm"
	"github.com/lipo-out/linebot/internal/middleware"
	"github.com/lipo-out/linebot/internal/service"
	"github.com/lipo-out/linebot/internal/session"
	"github.com/lipo-out/linebot/pkg/logger"
	"github.com/lipo-out/linebot/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting lipo-out bot server",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.ServerPort),
		zap.String("default_llm", cfg.DefaultLLM),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "lipo-out-bot", cfg.TracingEndpoint)
		if err != nil {
			log.Error("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	publisher, err := events.New(ctx, events.Config{URL: cfg.NATSURL, Token: cfg.NATSToken}, log)
	if err != nil {
		log.Fatal("failed to connect event publisher", zap.Error(err))
	}
	defer publisher.Close()

	apiKey := cfg.OpenAIAPIKey
	if cfg.DefaultLLM == string(llm.ProviderAnthropic) {
		apiKey = cfg.AnthropicAPIKey
	}
	llmClient, err := llm.NewClient(llm.Provider(cfg.DefaultLLM), apiKey)
	if err != nil {
		log.Fatal("failed to create llm client", zap.Error(err))
	}

	lineClient := line.NewClient(cfg.LineChannelAccessToken)
	backendClient := backend.NewClient(cfg.BackendBaseURL)

	sessions := session.NewMemoryStore(cfg.SessionTTL)
	go sessions.Janitor(ctx, time.Minute)

	vision := service.NewVision(lineClient, llmClient, sessions, cfg.VisionModel, log)
	chat := service.NewChat(llmClient, cfg.ChatModel, log)
	travel := service.NewTravel(llmClient, cfg.ChatModel, cfg.TravelMaxTurns, log)
	membership := service.NewMembership(lineClient, backendClient, log)

	dispatcher := service.NewDispatcher(service.DispatcherConfig{
		Messenger:           lineClient,
		Sessions:            sessions,
		Backend:             backendClient,
		Vision:              vision,
		Chat:                chat,
		Travel:              travel,
		Membership:          membership,
		Publisher:           publisher,
		GroupTriggerKeyword: cfg.GroupTriggerKeyword,
		Logger:              log,
	})

	webhookHandler := handler.NewWebhookHandler(cfg.LineChannelSecret, dispatcher, log)
	healthHandler := handler.NewHealthHandler(publisher)
	adminHandler := handler.NewAdminHandler(lineClient, service.DefaultCatalog(), log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.ServerWriteTimeout))

	r.Post("/webhook", webhookHandler.Receive)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/catalog", adminHandler.ListCatalog)
		r.Post("/push", adminHandler.Push)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}
