package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/d00mkeeps/ibhackathon/internal/api"
	"github.com/d00mkeeps/ibhackathon/internal/debug"
	"github.com/d00mkeeps/ibhackathon/internal/prompt"
	"github.com/d00mkeeps/ibhackathon/internal/service"
	"github.com/d00mkeeps/ibhackathon/internal/session"
	"github.com/d00mkeeps/ibhackathon/pkg/app"
	"github.com/d00mkeeps/ibhackathon/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				opts.cfg.ListenAddr = addr
			}
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides the configured one")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg := opts.cfg
	if err := cfg.RequireCredentials(); err != nil {
		return err
	}

	rt, err := app.NewRuntime(ctx, opts.manager,
		app.WithLogger(logger.Component("runtime")),
		app.WithNotifier(app.LogNotifier(logger.Component("engine"))),
	)
	if err != nil {
		return fmt.Errorf("start runtime: %w", err)
	}
	defer rt.Close()

	if err := debug.NewEinoDebugger(cfg, logger.Component("eino_debug")).Initialize(ctx); err != nil {
		opts.log.WithError(err).Warn("eino debug server unavailable")
	}

	// Warm the dataset so the first session does not pay for the load.
	if snap := rt.Dataset().Snapshot(ctx); snap.Empty() {
		opts.log.Warn("comparison dataset is empty, run 'cara dataset import' to load one")
	}

	store := rt.Store()
	handler := api.NewHandler(
		service.NewCompanyService(store, logger.Component("company_service")),
		service.NewDatasetService(store, rt.Dataset(), prompt.Provenance{Source: cfg.DatasetSource, AsOf: cfg.DatasetAsOf}, logger.Component("dataset_service")),
		session.NewOrchestrator(rt, store, logger.Component("session")),
		store,
		cfg.AllowedOrigins,
		logger.Component("api"),
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(handler, cfg.AllowedOrigins, logger.Component("http")),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		opts.log.WithField("addr", cfg.ListenAddr).Info("server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	opts.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
