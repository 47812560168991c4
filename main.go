// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

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
	"github.com/rs/zerolog/log"

	"github.com/go-core-stack/openapi-gateway/pkg/config"
	"github.com/go-core-stack/openapi-gateway/pkg/gateway"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &cfg, os.Args[1:]); err != nil {
		stop()
		os.Exit(1)
	}
}

// serve assembles the route table and only then starts accepting traffic.
func serve(ctx context.Context, cfg config.Config) error {
	gw, err := gateway.New(cfg)
	if err != nil {
		return err
	}

	if _, err := gw.Assemble(ctx); err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      gw,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("listen_addr", cfg.ListenAddr).
			Str("upstream", cfg.Upstream.String()).
			Str("mount_path", cfg.MountPath).
			Int("routes", len(gw.Routes())).
			Msg("starting openapi gateway")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return waitForShutdown(ctx, server, cfg.GracefulShutdownTimeout, errCh)
}

// waitForShutdown blocks until ctx is cancelled by a signal or the server
// exits on its own, then drains in-flight calls within timeout.
func waitForShutdown(ctx context.Context, srv *http.Server, timeout time.Duration, errCh <-chan error) error {
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down openapi gateway")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed; forcing close")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("forced close failed")
		}
	}

	log.Info().Msg("gateway stopped")
	return nil
}
