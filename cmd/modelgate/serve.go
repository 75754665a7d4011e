package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"modelgate/internal/config"
	"modelgate/internal/httpapi"
	"modelgate/internal/manager"
	"modelgate/internal/registry"
)

// serve runs the gateway until ctx is canceled or SIGINT/SIGTERM arrives.
func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	scanner := registry.NewScanner(cfg.ModelSuffix)
	scanner.OnSkip = func(path string, err error) {
		log.Debug().Str("path", path).Err(err).Msg("registry event=skip")
	}
	models, err := scanner.Scan(cfg.ModelsDir)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		log.Warn().Str("dir", cfg.ModelsDir).Str("suffix", cfg.ModelSuffix).Msg("no models discovered")
	}
	log.Info().Int("models", len(models)).Str("dir", cfg.ModelsDir).Msg("registry loaded")

	if rep := manager.SanityCheck(cfg.BackendMode, cfg.BackendCmd); !rep.OK() {
		log.Warn().Str("mode", rep.Mode).Str("error", rep.Error).Msg("backend sanity check failed; loads will error")
	}

	adapter, err := manager.NewAdapter(cfg.BackendMode, subprocessConfig(cfg), manager.LlamaConfig{
		ContextSize: cfg.LlamaCtx,
		Threads:     cfg.LlamaThreads,
		GPULayers:   cfg.LlamaGPULayers,
	}, log, manager.LogPublisher{Log: log})
	if err != nil {
		return err
	}
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Registry:      models,
		Adapter:       adapter,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       cfg.MaxWait(),
		DrainTimeout:  cfg.ShutdownGrace(),
		Logger:        log,
		Publisher:     manager.LogPublisher{Log: log},
	})

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetLogger(log)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	httpapi.SetRequestLogLevel(cfg.LogLevel)
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(httpapi.FromManager(mgr)),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	reaperCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	reaper := manager.NewReaper(mgr, cfg.ReapInterval(), cfg.IdleTimeout())
	go reaper.Run(reaperCtx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("mode", cfg.BackendMode).Msg("modelgate listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case serveErr = <-errCh:
		log.Error().Err(serveErr).Msg("server error")
	}

	gw := gateway{srv: srv, mgr: mgr, reaper: reaper, stopReaper: stopReaper, cancelBase: cancelBase, log: log}
	if err := gw.stop(time.Now().Add(cfg.ShutdownGrace())); err != nil && serveErr == nil {
		serveErr = err
	}
	log.Info().Msg("modelgate stopped")
	return serveErr
}

// gateway groups what the shutdown sequence tears down.
type gateway struct {
	srv        *http.Server
	mgr        *manager.Manager
	reaper     *manager.Reaper
	stopReaper context.CancelFunc
	cancelBase context.CancelFunc
	log        zerolog.Logger
}

// stop shuts the gateway down in order under a single deadline: readiness
// goes false, the listener closes while admitted requests finish, the reaper
// exits, and then every backend is released. Backends still running at the
// deadline are killed.
func (g gateway) stop(deadline time.Time) error {
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	g.mgr.Drain()
	if err := g.srv.Shutdown(ctx); err != nil {
		// Streams still open at the deadline are cut off.
		g.log.Warn().Err(err).Msg("graceful shutdown incomplete; closing connections")
		g.cancelBase()
		_ = g.srv.Close()
	}
	g.stopReaper()
	<-g.reaper.Done()

	if err := g.mgr.Shutdown(ctx); err != nil {
		g.log.Error().Err(err).Msg("backend shutdown errors")
		return err
	}
	return nil
}

func subprocessConfig(cfg config.Config) manager.SubprocessConfig {
	return manager.SubprocessConfig{
		Command:          cfg.BackendCmd,
		Args:             cfg.BackendArgs,
		Host:             cfg.BackendHost,
		PortBase:         cfg.PortBase,
		MaxReadyAttempts: cfg.MaxReadyAttempts,
		ReadyInterval:    cfg.ReadyInterval(),
		StopTimeout:      cfg.StopTimeout(),
	}
}
