package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"nodedesk/internal/api"
	"nodedesk/pkg/config"
	"nodedesk/pkg/core"
	"nodedesk/pkg/logging"
	"nodedesk/pkg/nodeclient"
	"nodedesk/pkg/probe"
	"nodedesk/pkg/request"
	"nodedesk/pkg/settings"
)

func run(ctx context.Context, opts *cliOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("nodedesk started", "version", appVersion(cfg), "backend", cfg.Storage.Backend, "data_dir", cfg.DataDir)
	if cfg.Node.E2E {
		slog.Warn("E2E mode: using mock node", "url", cfg.Node.MockURL)
	}

	a, err := openApp(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Close(closeCtx)
	}()

	// The persisted level wins over the config file once the store is up.
	logging.SetLevel(a.Store.State().LogLevel)
	unsubLevel := a.Store.Subscribe(func(st settings.State) {
		logging.SetLevel(st.LogLevel)
	})
	defer unsubLevel()

	node := newNodeClient(cfg, a.Store)

	results := probe.Run(ctx, []probe.Probe{
		probe.DataDirWritable(cfg.DataDir),
		probe.NodeReachable(node, cfg.Node.HealthMethod),
	}, probe.DefaultTimeout)
	if err := probe.AnalyzeResults(slog.Default(), results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	watch := core.NewNodeWatchJob(node, cfg.Node.HealthMethod, cfg.Node.WatchEvery.Std(), cfg.Node.Timeout.Std(), slog.Default())
	unwatch := watch.Watch(a.Store)
	defer unwatch()

	sched := core.NewScheduler(time.Second, slog.Default())
	sched.AddJob(watch)

	origins := api.NewOriginPolicy(cfg.Server.AllowedOrigins)
	hub := api.NewStreamHub(a.Store.State, origins, slog.Default())
	unsubStream := a.Store.Subscribe(hub.Publish)
	defer unsubStream()

	srv := api.NewServer(
		cfg.Server.Address,
		origins,
		api.NewSettingsHandler(a.Store, origins),
		hub,
		api.NewNodeHandler(watch.Status, node.Stats),
		appVersion(cfg),
		cfg.Server.UIDir,
		stop,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		sched.Start(gctx)
		return nil
	})
	g.Go(func() error {
		return runServerLifecycle(gctx, srv)
	})
	return g.Wait()
}

func newNodeClient(cfg *config.Config, st *core.Store) *nodeclient.Client {
	httpClient := request.New(
		request.WithHTTPClient(&http.Client{Timeout: cfg.Node.Timeout.Std()}),
		request.WithRetry(cfg.Node.Retries, 500*time.Millisecond),
		request.WithLogger(slog.Default()),
	)
	return nodeclient.New(st.Connection, httpClient, slog.Default())
}

func runServerLifecycle(ctx context.Context, srv *http.Server) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
