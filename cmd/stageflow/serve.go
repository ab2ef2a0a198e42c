package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/stageflow/internal/cli"
	httpAdapter "github.com/aretw0/stageflow/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Hosts sessions over HTTP. Clients subscribe to /sessions/{id}/events to
receive navigate and diff events; /metrics exposes Prometheus counters.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()

			streams := httpAdapter.NewStreamManager(nil)
			rt, err := a.runtime(sigCtx, cli.WithNavigator(streams), cli.WithTracing())
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rt.Close(ctx); err != nil {
					rt.Logger.Error("Shutdown cleanup failed", "err", err)
				}
			}()

			opts := []httpAdapter.Option{
				httpAdapter.WithStreams(streams),
				httpAdapter.WithLogger(rt.Logger),
			}
			if rt.Redis != nil {
				opts = append(opts, httpAdapter.WithHealthCheck(rt.Redis))
			}
			if rt.Metrics != nil {
				opts = append(opts, httpAdapter.WithMetricsHandler(promhttp.HandlerFor(rt.Metrics, promhttp.HandlerOpts{})))
			}
			handler, err := httpAdapter.NewHandler(rt.Engine, opts...)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              rt.Config.HTTP.Addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErrors := make(chan error, 1)
			go func() {
				rt.Logger.Info("Starting Stageflow Server", "addr", srv.Addr, "stages", len(rt.Engine.Stages()))
				fmt.Fprintf(cmd.OutOrStdout(), "Starting Stageflow Server on %s\n", srv.Addr)
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)

			case <-sigCtx.Done():
				rt.Logger.Info("Start shutdown", "signal", sigCtx.Signal())

				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				if err := srv.Shutdown(ctx); err != nil {
					rt.Logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
					if err := srv.Close(); err != nil {
						return fmt.Errorf("error killing server: %w", err)
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Stageflow Server stopped gracefully")
				return nil
			}
		},
	}

	cmd.Flags().String("addr", "", "Address to listen on (default :8080)")
	if err := a.v.BindPFlag("http.addr", cmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}
	return cmd
}
