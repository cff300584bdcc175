package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/conduit-lang/metadata-validator/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewServeCommand creates the serve command
func NewServeCommand(env *environment) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the validators over HTTP",
		Long: `Serve the validators over HTTP until interrupted.

Routes:
  GET  /healthz
  GET  /kinds
  GET  /kinds/{kind}/fields
  POST /validate/{kind}          full report
  POST /validate/{kind}/core     document state only
  POST /validate/{kind}/fields   field states only
  POST /metadata                 one report per kind
  GET  /reports, /reports/{id}   stored reports (store.enabled)

Every route but /healthz requires a bearer token when server.jwt_secret is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := env.setup(cmd); err != nil {
				return err
			}
			defer env.logger.Sync()

			cfg := env.cfg.Server
			if cmd.Flags().Changed("address") {
				cfg.Address = address
			}

			cv, err := env.cachedValidator()
			if err != nil {
				return err
			}
			defer cv.Close()

			opts := []server.Option{server.WithLogger(env.logger)}
			reports, closeStore, err := env.reportStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeStore()
			if reports != nil {
				opts = append(opts, server.WithStore(reports))
			}

			srv, err := server.New(cfg, cv, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			env.logger.Info("starting metacheck server",
				zap.String("address", cfg.Address),
				zap.String("cache", env.cfg.Cache.Backend),
				zap.String("registry", cv.Fingerprint()),
				zap.Bool("store", reports != nil),
				zap.Bool("auth", cfg.JWTSecret != ""))
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Listen address (overrides server.address)")
	return cmd
}
