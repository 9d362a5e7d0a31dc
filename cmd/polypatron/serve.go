package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polypatron/internal/api"
	"github.com/spf13/cobra"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app) error {
				cfg := a.cfg.Server
				if addr != "" {
					cfg.Addr = addr
				}

				srv := api.NewServer(api.Config{
					Addr:            cfg.Addr,
					CORSOrigins:     cfg.CORSOrigins,
					ShutdownTimeout: time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second,
					DefaultMarket:   a.cfg.Patterns.DefaultMarket,
					ReleaseMode:     a.cfg.Log.Level != "debug",
				}, a.svc)

				slog.Info("polypatron api starting",
					"addr", cfg.Addr,
					"offline", a.svc.Offline(),
					"cache", a.cfg.Cache.Backend,
				)
				if err := srv.Run(ctx); err != nil {
					return err
				}
				slog.Info("polypatron api stopped cleanly")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
