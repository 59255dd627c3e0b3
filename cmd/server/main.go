// Package main is the entry point for the FX decision engine process: it
// wires the market-data port, context engine, brain registry, portfolio
// manager, command mapper and executor port behind a tick orchestrator,
// fronted by the ops HTTP/WebSocket API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atlas-desktop/fx-decision-engine/internal/api"
	"github.com/atlas-desktop/fx-decision-engine/internal/brains"
	"github.com/atlas-desktop/fx-decision-engine/internal/config"
	"github.com/atlas-desktop/fx-decision-engine/internal/executor"
	"github.com/atlas-desktop/fx-decision-engine/internal/gate"
	"github.com/atlas-desktop/fx-decision-engine/internal/ledger"
	"github.com/atlas-desktop/fx-decision-engine/internal/marketdata"
	"github.com/atlas-desktop/fx-decision-engine/internal/metrics"
	"github.com/atlas-desktop/fx-decision-engine/internal/opstate"
	"github.com/atlas-desktop/fx-decision-engine/internal/orchestrator"
	"github.com/atlas-desktop/fx-decision-engine/internal/portfolio"
	"github.com/atlas-desktop/fx-decision-engine/internal/streamhub"
	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

func main() {
	host := flag.String("host", "", "Server host, overrides config")
	port := flag.Int("port", 0, "Server port, overrides config")
	dataDir := flag.String("data", "", "Data directory, overrides config")
	configPath := flag.String("config", "", "Path to config file")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	tickInterval := flag.Duration("tick-interval", 30*time.Second, "Interval between automatic ticks")
	flag.Parse()

	logger := setupLogger(*logLevel)
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}

	logger.Info("starting fx decision engine",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("dataDir", cfg.Data.Dir),
		zap.String("executorMode", cfg.Executor.Mode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	maxDrawdown, maxExposure, maxDailyLoss, maxExpSymbol, maxExpCurrency, maxCorrExp, minResidual, err := cfg.DecimalRiskLimits()
	if err != nil {
		logger.Fatal("invalid risk limit config", zap.Error(err))
	}
	limits := fxtypes.RiskLimits{
		MaxDrawdown:            maxDrawdown,
		MaxExposure:            maxExposure,
		MaxDailyLoss:           maxDailyLoss,
		MaxPositions:           cfg.RiskLimits.MaxPositions,
		MaxExposurePerSymbol:   maxExpSymbol,
		MaxExposurePerCurrency: maxExpCurrency,
		MaxCorrelatedExposure:  maxCorrExp,
		MinResidualRiskPct:     minResidual,
	}

	l, err := ledger.New(logger, cfg.Data.Dir)
	if err != nil {
		logger.Fatal("failed to open ledger", zap.Error(err))
	}
	defer l.Close()

	hub := streamhub.New(logger)
	defer hub.Close()

	state := opstate.New(logger)
	state.SetMockMode(cfg.Executor.Mode != "real")

	ga := gate.New(logger, state)
	mtr := metrics.New(prometheus.DefaultRegisterer)

	market := marketdata.NewSimulator(logger)
	registry := brains.NewRegistry()
	pm := portfolio.New()

	execPort := buildExecutor(logger, cfg)

	orch := orchestrator.New(logger, orchestrator.Config{SymbolFetchWorkers: cfg.Orchestrator.SymbolFetchWorkers},
		l, hub, market, registry, pm, execPort, state, mtr, limits)

	server := api.New(logger, api.Config{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		Symbols: cfg.Orchestrator.Symbols,
	}, l, hub, orch, state, ga, execPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go runTickLoop(ctx, logger, orch, cfg.Orchestrator.Symbols, *tickInterval)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("api server error", zap.Error(err))
		}
	}()

	logger.Info("fx decision engine started",
		zap.String("http", fmt.Sprintf("http://%s:%d/api/v1", cfg.Server.Host, cfg.Server.Port)),
		zap.String("ws", fmt.Sprintf("ws://%s:%d/ws", cfg.Server.Host, cfg.Server.Port)),
	)

	<-sigChan
	logger.Info("shutdown signal received")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", zap.Error(err))
	}

	logger.Info("fx decision engine stopped")
}

func runTickLoop(ctx context.Context, logger *zap.Logger, orch *orchestrator.Orchestrator, symbols []string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := orch.RunTick(ctx, symbols); err != nil {
				if err != orchestrator.ErrTickInProgress {
					logger.Error("tick failed", zap.Error(err))
				}
			}
		}
	}
}

func buildExecutor(logger *zap.Logger, cfg config.Config) executor.Port {
	if cfg.Executor.Mode == "real" {
		return executor.NewRealAdapter(logger, cfg.Executor.BaseURL)
	}
	mode := executor.HealthModeNormal
	switch cfg.Executor.HealthMode {
	case "degraded":
		mode = executor.HealthModeDegraded
	case "down":
		mode = executor.HealthModeDown
	}
	return executor.NewSimulator(logger, mode)
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
