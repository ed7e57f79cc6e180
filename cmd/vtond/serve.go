package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"vtond/internal/config"
	"vtond/internal/httpapi"
	"vtond/internal/observability"
	"vtond/internal/pipeline"
)

const shutdownTimeout = 30 * time.Second

func managerConfig(cfg config.Config, logger zerolog.Logger) pipeline.ManagerConfig {
	return pipeline.ManagerConfig{
		LoadConfig: pipeline.LoadConfig{
			WeightsDir:      cfg.WeightsDir,
			Backend:         cfg.Backend,
			WorkerBin:       cfg.WorkerBin,
			WorkerHost:      cfg.WorkerHost,
			WorkerPortStart: cfg.WorkerPortStart,
			WorkerPortEnd:   cfg.WorkerPortEnd,
			WorkerExtraArgs: cfg.WorkerArgs,
			StartTimeout:    time.Duration(cfg.WorkerStartTimeout) * time.Second,
			WorkerURL:       cfg.WorkerURL,
			RequestTimeout:  time.Duration(cfg.RequestTimeout) * time.Second,
		},
		MaxConcurrent: cfg.MaxConcurrent,
		Publisher:     pipeline.NewLogPublisher(logger),
	}
}

// configureHTTP pushes the resolved configuration into the HTTP layer.
func configureHTTP(cfg config.Config, logger zerolog.Logger) {
	httpapi.SetLogger(logger)
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetMaxUploadBytes(int64(cfg.MaxUploadMB) << 20)
	httpapi.SetTryOnTimeout(time.Duration(cfg.RequestTimeout) * time.Second)
	httpapi.SetAutoOrient(cfg.AutoOrient)
	httpapi.SetMaxImagePixels(cfg.MaxImagePixels)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, cfg.CORSMethods, cfg.CORSHeaders)
}

func runServe(cmd *cobra.Command, fv *flagValues) error {
	cfg, err := resolveConfig(cmd, fv)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	configureHTTP(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := observability.Setup(ctx, observability.TracingConfig{
		Exporter:       cfg.TraceExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TraceSampleRate,
		ServiceVersion: version,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	mgr := pipeline.NewWithConfig(managerConfig(cfg, logger))
	if err := mgr.Start(ctx); err != nil {
		logger.Error().Err(err).Str("weights_dir", cfg.WeightsDir).Msg("pipeline load failed")
		return err
	}
	if mgr.Ready() {
		logger.Info().Str("weights_dir", cfg.WeightsDir).Str("backend", cfg.Backend).Msg("pipeline loaded")
	} else {
		logger.Warn().Str("weights_dir", cfg.WeightsDir).Msg("weights directory not found; serving without a pipeline")
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("vtond listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error().Err(serveErr).Msg("server error")
		}
	}

	// Graceful shutdown: in-flight try-ons get shutdownTimeout to finish,
	// then the base context cancels whatever is left.
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
		cancelBase()
		_ = srv.Close()
	}
	cancelBase()
	if err := mgr.Shutdown(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("pipeline shutdown")
	}
	logger.Info().Dur("uptime", mgr.Uptime()).Msg("stopped")
	return serveErr
}
