package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"predictd/internal/config"
	"predictd/internal/httpapi"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the model and serve predictions over HTTP",
		Example: "  predictd serve --addr :5000\n" +
			"  PREDICTD_BACKEND=server PREDICTD_SERVER_URL=http://127.0.0.1:8080 predictd serve",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, log, nil)
		},
	}
	cmd.Flags().String("addr", config.Defaults().Addr, "HTTP listen address")
	cmd.Flags().String("cors-origins", "", "Comma-separated allowed CORS origins (enables CORS)")
	return cmd
}

// runServe serves HTTP until ctx ends, loading the model in the background.
// A setup failure stops the server and is returned. When ready is non-nil
// it receives the bound address once listening.
func runServe(ctx context.Context, cfg config.Config, log zerolog.Logger, ready chan<- string) error {
	p := newPredictor(cfg, log)
	defer func() {
		if err := p.Close(); err != nil {
			log.Warn().Err(err).Msg("close predictor")
		}
	}()
	if rep := p.SanityCheck(ctx); !rep.OK() {
		log.Warn().Str("backend", rep.Backend).Str("error", rep.Error).Msg("sanity check failed")
	}

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetPredictTimeoutSeconds(cfg.PredictTimeoutSeconds)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	httpapi.SetBaseContext(ctx)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	srv := &http.Server{
		Handler:           httpapi.NewMux(p),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("predictd listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server: %w", err)
		}
	}()
	if ready != nil {
		ready <- ln.Addr().String()
	}
	setupDone := make(chan struct{})
	go func() {
		defer close(setupDone)
		if err := p.Setup(ctx); err != nil {
			errCh <- fmt.Errorf("setup: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case runErr = <-errCh:
		log.Error().Err(runErr).Msg("stopping")
	}
	cancel()
	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shCancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	// Close only after a load in flight has settled.
	select {
	case <-setupDone:
	case <-shCtx.Done():
	}
	return runErr
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
