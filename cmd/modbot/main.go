package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Samoxive/modbot/common/id"
	"github.com/Samoxive/modbot/common/llm"
	"github.com/Samoxive/modbot/common/logger"
	"github.com/Samoxive/modbot/common/otel"
	"github.com/Samoxive/modbot/core/config"
	"github.com/Samoxive/modbot/internal/classifier"
	"github.com/Samoxive/modbot/internal/gateway"
	httprouter "github.com/Samoxive/modbot/internal/http/router"
	"github.com/Samoxive/modbot/internal/metrics"
	"github.com/Samoxive/modbot/internal/moderation"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeBot)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "modbot starting",
		"env", cfg.Env,
		"model", cfg.LLM.Model,
		"moderated_guilds", len(cfg.Moderation.ChannelMap))

	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	llmClient, err := llm.New(llm.Config{
		Provider:   cfg.LLM.Provider,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.Model,
		MaxRetries: cfg.LLM.MaxRetries,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create llm client", "error", err)
		os.Exit(1)
	}

	var evaluator classifier.Evaluator = classifier.New(llmClient, classifier.Config{Timeout: cfg.LLM.Timeout})
	var serial *classifier.Serial
	if cfg.LLM.Serialize {
		serial = classifier.NewSerial(evaluator, 0)
		evaluator = serial
		slog.InfoContext(ctx, "classifications serialized")
	}

	session, err := gateway.NewSession(cfg.Discord.Token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create discord session", "error", err)
		os.Exit(1)
	}

	handler := moderation.NewHandler(evaluator, gateway.NewSender(session), moderation.Config{
		SelfID:        cfg.Moderation.SelfID,
		Channels:      moderation.NewChannelMapping(cfg.Moderation.ChannelMap),
		SummaryLimit:  cfg.Moderation.SummaryLimit,
		ReportTimeout: cfg.Moderation.ReportTimeout,
	})

	gw := gateway.New(session, handler)
	if err := gw.Open(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to connect to discord", "error", err)
		os.Exit(1)
	}

	var server *http.Server
	if cfg.Admin.Enabled() {
		server = newAdminServer(cfg, gw)
		go func() {
			slog.InfoContext(ctx, "admin server starting", "port", cfg.Admin.Port)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.ErrorContext(ctx, "admin server error", "error", err)
				os.Exit(1)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := gw.Close(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "gateway shutdown error", "error", err)
	}

	if serial != nil {
		serial.Close()
	}

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "admin server shutdown error", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func newAdminServer(cfg config.Config, gw *gateway.Gateway) *http.Server {
	routerCfg := httprouter.RouterConfig{
		IsProduction: cfg.IsProduction(),
		Readiness:    gw,
		Metrics:      metrics.Handler(),
	}
	if cfg.OTel.Enabled() {
		routerCfg.ServiceName = cfg.OTel.ServiceName
	}

	return &http.Server{
		Addr:              ":" + cfg.Admin.Port,
		Handler:           httprouter.New(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

const banner = `
███╗   ███╗ ██████╗ ██████╗ ██████╗  ██████╗ ████████╗
████╗ ████║██╔═══██╗██╔══██╗██╔══██╗██╔═══██╗╚══██╔══╝
██╔████╔██║██║   ██║██║  ██║██████╔╝██║   ██║   ██║   
██║╚██╔╝██║██║   ██║██║  ██║██╔══██╗██║   ██║   ██║   
██║ ╚═╝ ██║╚██████╔╝██████╔╝██████╔╝╚██████╔╝   ██║   
╚═╝     ╚═╝ ╚═════╝ ╚═════╝ ╚═════╝  ╚═════╝    ╚═╝   
`
