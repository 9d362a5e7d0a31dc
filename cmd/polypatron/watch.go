package main

import (
	"context"
	"time"

	"github.com/alejandrodnm/polypatron/internal/adapters/notify"
	"github.com/alejandrodnm/polypatron/internal/application/ingest"
	"github.com/alejandrodnm/polypatron/internal/application/patterns"
	"github.com/spf13/cobra"
)

func newWatchCmd(o *rootOptions) *cobra.Command {
	var (
		every  time.Duration
		blocks int
		series []string
		once   bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the stored candles up to date by polling Gamma",
		RunE: func(cmd *cobra.Command, args []string) error {
			wcfg := o.cfg.Watch
			if every <= 0 {
				every = o.cfg.WatchEvery()
			}
			if blocks <= 0 {
				blocks = wcfg.Blocks
			}
			if len(series) == 0 {
				series = wcfg.Series
			}
			parsed := make([]ingest.Series, 0, len(series))
			for _, raw := range series {
				s, err := ingest.ParseSeries(raw)
				if err != nil {
					return err
				}
				parsed = append(parsed, s)
			}

			return o.withApp(cmd, func(ctx context.Context, a *app) error {
				if a.svc.Offline() {
					return patterns.ErrOffline
				}
				w := ingest.New(ingest.Config{
					Every:   every,
					Blocks:  blocks,
					Series:  parsed,
					Workers: wcfg.Workers,
					Once:    once,
				}, a.svc)
				if once && a.json {
					return printOnce(ctx, w, a.console)
				}
				return w.Run(ctx)
			})
		},
	}

	cmd.Flags().DurationVar(&every, "every", 0, "time between cycles (default from config)")
	cmd.Flags().IntVar(&blocks, "blocks", 0, "intervals to look back on each cycle (default from config)")
	cmd.Flags().StringSliceVar(&series, "series", nil, "series to ingest as market:interval (repeatable)")
	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")
	return cmd
}

type onceRunner interface {
	RunOnce(ctx context.Context) ([]patterns.IngestReport, error)
}

// printOnce corre un ciclo e imprime sus reportes en JSON. Las series que sí se
// ingestaron se imprimen aunque otra haya fallado; el error se devuelve después.
func printOnce(ctx context.Context, r onceRunner, console *notify.Console) error {
	reports, err := r.RunOnce(ctx)
	if reports != nil {
		if perr := console.PrintJSON(reports); perr != nil {
			return perr
		}
	}
	return err
}
