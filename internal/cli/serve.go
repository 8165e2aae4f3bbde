package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/pokedex/internal/api"
	"github.com/mesh-intelligence/pokedex/internal/metrics"
	"github.com/mesh-intelligence/pokedex/internal/service"
)

func (a *app) newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		Long:  "Run the HTTP API until interrupted, then shut down gracefully.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.settings.HTTPAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			repo, release, err := a.openRepo(ctx)
			if err != nil {
				return err
			}
			defer release()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			instrumented := metrics.Instrument(repo, a.settings.Backend.Backend, metrics.NewRepositoryMetrics(reg))
			srv := api.New(service.New(instrumented, a.logger), reg, a.logger)

			a.logger.Info("serving pokedex",
				zap.String("backend", a.settings.Backend.Backend),
				zap.String("addr", addr),
			)
			if err := srv.Run(ctx, addr); err != nil {
				return sysError(fmt.Errorf("http server: %w", err))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from http.addr)")
	return cmd
}
