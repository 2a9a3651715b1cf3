package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/kstaniek/go-mavcodec/internal/builder"
	"github.com/kstaniek/go-mavcodec/internal/events"
	"github.com/kstaniek/go-mavcodec/internal/metrics"
	"github.com/kstaniek/go-mavcodec/internal/parser"
	"github.com/kstaniek/go-mavcodec/internal/schema"
	"github.com/kstaniek/go-mavcodec/internal/xmldef"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func protocolVersion(s string) schema.Version {
	if s == "v0.9" {
		return schema.V0_9
	}
	return schema.V1_0
}

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("mavcodec-gateway %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	docs, err := loadDefinitions(cfg)
	if err != nil {
		l.Error("definitions_load_error", "error", err)
		return
	}

	cat, err := (schema.Loader{}).Load(ctx, docs, protocolVersion(cfg.version))
	if err != nil {
		l.Error("schema_compile_error", "error", err)
		return
	}
	for range docs {
		metrics.IncSchemaLoad()
	}
	l.Info("schema_loaded", "messages", cat.Len(), "documents", len(docs))

	policy := events.PolicyDrop
	if cfg.eventPolicy == "kick" {
		policy = events.PolicyKick
	}
	bus := events.New(cfg.eventBuffer, policy)
	// Fire ready now, before the parser/backend/redis sink can ever
	// publish or subscribe to "message" — ready must precede every
	// message event (§4.1, §5), and subscribing after FireReady still
	// observes it as already closed.
	bus.FireReady()

	p := parser.New(cat, bus, byte(cfg.systemID), byte(cfg.componentID), protocolVersion(cfg.version))
	b := builder.New(cat, byte(cfg.systemID), byte(cfg.componentID), protocolVersion(cfg.version), 0)

	tx, cleanup, berr := initSerialBackend(ctx, cfg, p, l, &wg)
	if berr != nil {
		l.Error("backend_init_error", "error", berr)
		return
	}

	startHeartbeat(ctx, b, cat, tx, l, &wg)

	metrics.SetReadinessFunc(func() bool { return ctx.Err() == nil })
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
	}

	if cfg.mdnsEnable {
		_, portStr, _ := net.SplitHostPort(cfg.metricsAddr)
		port, _ := strconv.Atoi(portStr)
		cleanupMDNS, err := startMDNS(ctx, cfg, port)
		if err != nil {
			l.Warn("mdns_start_failed", "error", err)
		} else {
			l.Info("mdns_started", "service", mdnsServiceType, "name", cfg.mdnsName, "port", port)
			defer cleanupMDNS()
		}
	}

	if cfg.redisEnable {
		cleanupRedis, err := startRedisSink(ctx, cfg.redisAddr, bus, l, &wg)
		if err != nil {
			l.Error("redis_sink_error", "error", err)
			cancel()
			cleanup()
			wg.Wait()
			return
		}
		defer cleanupRedis()
		l.Info("redis_sink_started", "addr", cfg.redisAddr)
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()
	cleanup()
	wg.Wait()
}

// loadDefinitions reads one <id>.xml file per cfg.definitions entry
// from cfg.definitionsDir via internal/xmldef.
func loadDefinitions(cfg *appConfig) ([]schema.Document, error) {
	docs := make([]schema.Document, 0, len(cfg.definitions))
	for _, id := range cfg.definitions {
		path := filepath.Join(cfg.definitionsDir, id+".xml")
		doc, err := xmldef.LoadFile(id, path)
		if err != nil {
			return nil, fmt.Errorf("load definition %s: %w", id, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
