// Package main is the entry point for the support platform API server.
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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/helpdesk-ai/support-platform/internal/ai"
	"github.com/helpdesk-ai/support-platform/internal/config"
	"github.com/helpdesk-ai/support-platform/internal/handler"
	"github.com/helpdesk-ai/support-platform/internal/middleware"
	"github.com/helpdesk-ai/support-platform/internal/model"
	natsclient "github.com/helpdesk-ai/support-platform/internal/nats"
	"github.com/helpdesk-ai/support-platform/internal/service"
	"github.com/helpdesk-ai/support-platform/internal/store"
	"github.com/helpdesk-ai/support-platform/internal/ws"
	"github.com/helpdesk-ai/support-platform/pkg/logger"
	"github.com/helpdesk-ai/support-platform/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "support-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// NATS backs the durable event log; the API refuses readiness without it.
	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsClient.Close()

	streamManager := natsclient.NewStreamManager(natsClient)
	if err := streamManager.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure stream", zap.Error(err))
		os.Exit(1)
	}

	provider := ai.Provider(cfg.DefaultProvider)
	apiKey := cfg.OpenAIAPIKey
	if provider == ai.ProviderAnthropic {
		apiKey = cfg.AnthropicAPIKey
	}
	aiClient, err := ai.NewClient(provider, apiKey)
	if err != nil {
		log.Error("failed to create AI client", zap.Error(err))
		os.Exit(1)
	}
	log.Info("AI provider configured", zap.String("provider", aiClient.Name()))

	st, err := store.New(log)
	if err != nil {
		log.Error("failed to create store", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	hub := ws.NewHub(st.Users, log)

	conversationSvc := service.NewConversationService(st, log)
	safetyGate := service.NewSafetyGate(aiClient, log)
	sentimentSvc := service.NewSentimentClassifier(aiClient, log)
	knowledgeSvc := service.NewKnowledgeService(st.Knowledge, log)
	generator := service.NewResponseGenerator(aiClient, cfg.HistoryWindow, log)
	messageSvc := service.NewMessageService(
		st, conversationSvc, safetyGate, sentimentSvc, knowledgeSvc, generator,
		hub, streamManager, cfg.KnowledgeLimit, log,
	)
	reportSvc := service.NewReportService(st, conversationSvc, hub, streamManager, log)

	healthHandler := handler.NewHealthHandler(natsClient)
	conversationHandler := handler.NewConversationHandler(conversationSvc, st.Users, log)
	messageHandler := handler.NewMessageHandler(messageSvc, st.Users, log)
	knowledgeHandler := handler.NewKnowledgeHandler(knowledgeSvc, st.Users, log)
	reportHandler := handler.NewReportHandler(reportSvc, st.Users, log)
	wsHandler := ws.NewHandler(hub, st.Users, cfg.JWTSecret, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Handle("/ws", wsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Put("/", conversationHandler.Update)
				r.Delete("/", conversationHandler.Delete)

				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Send)
				r.Put("/messages/read", messageHandler.MarkRead)

				r.With(middleware.RequireRole(model.RoleAgent, model.RoleAdmin)).
					Get("/events", messageHandler.Audit)
			})
		})

		r.Route("/knowledge", func(r chi.Router) {
			r.Get("/", knowledgeHandler.List)
			r.Get("/{id}", knowledgeHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleAgent, model.RoleAdmin))
				r.Post("/", knowledgeHandler.Create)
				r.Put("/{id}", knowledgeHandler.Update)
				r.Delete("/{id}", knowledgeHandler.Delete)
			})
		})

		r.Route("/reports", func(r chi.Router) {
			r.Post("/", reportHandler.Create)
			r.Get("/", reportHandler.List)
			r.Get("/{id}", reportHandler.Get)
			r.Put("/{id}", reportHandler.Update)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
