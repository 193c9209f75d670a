// Package main provides the entry point for the cluster monitor API server.
package main

import (
	"context"
	"os"

	"github.com/narvanalabs/solr-monitor/internal/api"
	"github.com/narvanalabs/solr-monitor/internal/cluster"
	"github.com/narvanalabs/solr-monitor/internal/shutdown"
	"github.com/narvanalabs/solr-monitor/internal/solr"
	"github.com/narvanalabs/solr-monitor/internal/stream"
	"github.com/narvanalabs/solr-monitor/internal/topology"
	"github.com/narvanalabs/solr-monitor/pkg/config"
	"github.com/narvanalabs/solr-monitor/pkg/logger"
)

func main() {
	// Bootstrap logger until the configured level and format are known.
	log := logger.Default()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log = logger.New(logger.ParseLevel(cfg.LogLevel), cfg.LogJSON)

	// A missing or invalid topology is not fatal: the server starts and
	// reports it through /health and CONFIGURATION_ERROR responses.
	store := topology.NewStore(
		topology.NewLoader(topology.Source{Inline: cfg.Topology.Inline, File: cfg.Topology.File}),
		log.WithComponent("topology").Logger,
	)

	client := solr.NewClient(cfg.Probe.BasePath)
	svc := cluster.NewService(store, client, cluster.Config{
		NodeTimeout:     cfg.Probe.NodeTimeout,
		SummaryTimeout:  cfg.Probe.SummaryTimeout,
		ZkDetailTimeout: cfg.Probe.ZkDetailTimeout,
		ProxyTimeout:    cfg.Probe.ProxyTimeout,
		MaxConcurrency:  cfg.Probe.MaxConcurrency,
	}, log.WithComponent("cluster").Logger)

	broker := stream.NewBroker(log.WithComponent("stream").Logger)
	poller := stream.NewPoller(svc, broker, cfg.Stream.Interval, log.WithComponent("stream").Logger)
	refresher := topology.NewRefresher(store, cfg.Topology.RefreshInterval, log.WithComponent("topology").Logger)

	server := api.NewServer(cfg, svc, store, broker, poller, log.WithComponent("api").Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout),
		shutdown.WithLogger(log.Logger),
	)
	// Shut down in reverse: the server stops first, then the loops.
	coordinator.Register(shutdown.NewLoopComponent("topology-refresher", refresher))
	coordinator.Register(shutdown.NewLoopComponent("snapshot-poller", poller))
	coordinator.Register(shutdown.NewServerComponent("api-server", server))

	go func() {
		if err := refresher.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error("topology refresher failed", "error", err)
		}
	}()
	go func() {
		if err := poller.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error("snapshot poller failed", "error", err)
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	go coordinator.WaitForSignal(ctx)

	log.Info("cluster monitor started",
		"addr", cfg.Addr(),
		"stream_interval", cfg.Stream.Interval,
		"topology_refresh_interval", cfg.Topology.RefreshInterval,
	)

	exitCode := 0
	select {
	case err := <-serverErr:
		if err != nil {
			log.Error("server error", "error", err)
			exitCode = 1
		}
		coordinator.Shutdown()
	case <-coordinator.Done():
	}
	cancel()

	if err := coordinator.Err(); err != nil {
		log.Warn("shutdown finished with errors", "error", err)
	}
	if coordinator.ExitCode() != 0 {
		exitCode = coordinator.ExitCode()
	}
	log.Info("server stopped", "exit_code", exitCode)
	os.Exit(exitCode)
}
