package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	continuitybridge "github.com/Xhuk/ContinuityBridge.poc-sub005"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/adapters/observability"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the daemon configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bridged: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("daemon exited with error", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg *DaemonConfig, logger *slog.Logger) error {
	promRegistry := prometheus.NewRegistry()

	resolver := continuitybridge.NewStaticFlowResolver()
	if cfg.FlowsDir != "" {
		if err := loadFlows(cfg.FlowsDir, resolver, logger); err != nil {
			return err
		}
	}

	engine, err := continuitybridge.New(continuitybridge.Options{
		Config:       &cfg.Engine,
		Logger:       logger,
		RoutingRules: cfg.Routing.Rules,
		Fallback:     cfg.Routing.Fallback,
		Mapping:      cfg.Mapping,
		Resolver:     resolver,
		PromRegistry: promRegistry,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.StartIngestWorker(cfg.Ingest.Topic); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := observability.NewServer(
		cfg.HTTP.Port,
		engine.MetricsCollector(),
		engine.Queue(),
		promRegistry,
		[]string{cfg.Ingest.Topic},
		logger,
	)

	logger.Info("bridged started",
		"app", cfg.App.Name,
		"ingest_topic", cfg.Ingest.Topic,
		"http_port", cfg.HTTP.Port,
	)

	return server.Start(ctx)
}

func newLogger(app AppConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(app.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(app.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// loadFlows reads flow definitions from JSON files in a directory. Flow
// persistence proper belongs to the host application; the daemon only
// supports file-provisioned flows.
func loadFlows(dir string, resolver *continuitybridge.StaticFlowResolver, logger *slog.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("flows directory does not exist, continuing without flows", "dir", dir)
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read flow %s: %w", path, err)
		}

		var flow domain.FlowDefinition
		if err := json.Unmarshal(data, &flow); err != nil {
			return fmt.Errorf("parse flow %s: %w", path, err)
		}
		if err := resolver.Add(flow); err != nil {
			return fmt.Errorf("register flow %s: %w", path, err)
		}
		logger.Info("flow loaded", "flow_id", flow.ID, "file", entry.Name())
	}
	return nil
}
