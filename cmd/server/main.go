package main

import (
	"commute-eta-service/internal/api"
	"commute-eta-service/internal/app"
	"commute-eta-service/internal/config"
	"commute-eta-service/internal/platform/log"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"
)

// main is the application composition root.
// It wires concrete adapters behind ports and runs the HTTP server and the
// refresh loop until a signal arrives.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newServerCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newServerCommand() *cobra.Command {
	logOpts := log.NewOptions()

	cmd := &cobra.Command{
		Use:           "commute-server",
		Short:         "Serve the commute departure API and run the refresh loop",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logOpts.Validate(); err != nil {
				return err
			}
			if err := log.Init(logOpts); err != nil {
				return err
			}
			defer log.Std().Sync()

			if err := run(cmd.Context()); err != nil {
				log.Error(err, "server stopped with error")
				return err
			}
			return nil
		},
	}

	logOpts.AddFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context) error {
	cfg, foundEnv, err := config.Load()
	if err != nil {
		return err
	}
	if !foundEnv {
		log.Info("No .env file found (using environment variables)")
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Error(err, "close resources")
		}
	}()

	router := api.NewRouter(api.Deps{
		Routes: a.RouteService,
		Board:  a.Orchestrator,
		Policy: a.Policy,
		Now:    a.Now,
	})

	// Refresh calls wait on live provider lookups, so writes get a long timeout.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(ctx, srv) })
	g.Go(func() error { return a.Orchestrator.Run(ctx) })

	log.Info("commute service started",
		"addr", srv.Addr,
		"db_driver", cfg.DBDriver,
		"travel_provider", cfg.TravelProvider,
		"travel_cache", cfg.TravelCache,
		"notify_sink", cfg.NotifySink,
		"timezone", a.Location.String(),
	)
	return g.Wait()
}

// serve runs srv until ctx ends, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	log.Info("Server listening", "addr", srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
