package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	var pollInterval time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run trigger, health and metrics endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			app, err := startApplication(ctx)
			if err != nil {
				return err
			}
			defer app.db.Close()

			if cmd.Flags().Changed("poll-interval") {
				app.config.Worker.PollInterval = pollInterval
			}
			return app.serve(ctx)
		},
	}
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 0,
		"run a batch on this interval in-process (default worker.poll_interval, 0 disables)")
	return cmd
}

// serve runs the HTTP server and, when enabled, the poller until ctx is
// cancelled or one of them fails.
func (app *application) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		app.logger.Info("shutting down", "timeout", shutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if p := app.poller(); p != nil {
		g.Go(func() error { return p.Start(ctx) })
	}

	err := g.Wait()
	app.logger.Info("server stopped")
	return err
}
