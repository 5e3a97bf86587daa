package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cynqhq/cynq/internal/agent"
	"github.com/cynqhq/cynq/internal/auth"
	"github.com/cynqhq/cynq/internal/config"
	"github.com/cynqhq/cynq/internal/datasync"
	"github.com/cynqhq/cynq/internal/ecosystem"
	"github.com/cynqhq/cynq/internal/llm"
	"github.com/cynqhq/cynq/internal/observability"
	"github.com/cynqhq/cynq/internal/sessions"
	"github.com/cynqhq/cynq/internal/tools"
	"github.com/cynqhq/cynq/internal/web"
)

// runServe wires the full server and blocks until a shutdown signal.
func runServe(ctx context.Context, configPath string, debug bool) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath == "" {
		cfg = config.Default()
	} else {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:  level,
		Format: cfg.Logging.Format,
	})
	logger.Info(ctx, "starting cynq server",
		"version", version, "commit", commit, "config", configPath)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	tracer, err := observability.NewTracer(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: "cynq",
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	store, err := sessions.OpenSnapshotStore(cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	client, err := buildLLMClient(cfg)
	if err != nil {
		return err
	}

	toolRegistry := tools.NewRegistry()
	if err := toolRegistry.Register(tools.NewContactEmailTool()); err != nil {
		return fmt.Errorf("failed to register contact tool: %w", err)
	}
	if err := toolRegistry.Register(tools.NewCommunityResourcesTool()); err != nil {
		return fmt.Errorf("failed to register resources tool: %w", err)
	}

	controller := sessions.NewController(store, logger, metrics)
	repo := ecosystem.NewRepository(store, logger)
	manager := agent.NewManager(agent.ManagerConfig{
		Client:       client,
		Registry:     toolRegistry,
		Controller:   controller,
		DefaultModel: cfg.LLM.DefaultModel,
		MaxTokens:    cfg.LLM.MaxTokens,
		Logger:       logger,
		Metrics:      metrics,
		Tracer:       tracer,
	})
	authService := auth.NewService(auth.Config{
		JWTSecret:   cfg.Auth.JWTSecret,
		TokenExpiry: cfg.Auth.TokenExpiry,
		Connections: repo,
		Logger:      logger,
	})
	syncer := datasync.NewSyncer(repo, logger)

	sweeper := sessions.NewSweeper(controller, cfg.Sessions.ExpireAfter, logger)
	if err := sweeper.Start(cfg.Sessions.SweepSchedule); err != nil {
		return fmt.Errorf("failed to start session sweeper: %w", err)
	}
	defer sweeper.Stop()

	handler := web.NewHandler(&web.Config{
		Agents:     manager,
		Controller: controller,
		Ecosystem:  repo,
		Auth:       authService,
		Syncer:     syncer,
		Logger:     logger,
		Metrics:    metrics,
		Gatherer:   registry,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Mount(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	logger.Info(ctx, "cynq server started",
		"addr", addr, "llm_provider", cfg.LLM.Provider, "model", cfg.LLM.DefaultModel)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	logger.Info(context.Background(), "shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "tracer shutdown failed", "error", err)
	}
	logger.Info(context.Background(), "cynq server stopped gracefully")
	return nil
}

// buildLLMClient selects the completion adapter from the config.
func buildLLMClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
		}), nil
	case "anthropic":
		client, err := llm.NewAnthropicClient(llm.AnthropicConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
