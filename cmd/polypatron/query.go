package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polypatron/internal/application/patterns"
	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/spf13/cobra"
)

func newRankCmd(o *rootOptions) *cobra.Command {
	var (
		q   patterns.RankQuery
		rng rangeFlags
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank the patterns with the best edge in a range",
		RunE: func(cmd *cobra.Command, args []string) error {
			if q.MinLen < 2 || q.MaxLen > 12 || q.MinLen > q.MaxLen {
				return fmt.Errorf("pattern lengths must satisfy 2 <= min-len <= max-len <= 12, got %d..%d", q.MinLen, q.MaxLen)
			}
			scope, err := o.scope(rng)
			if err != nil {
				return err
			}
			q.Scope = scope

			return o.withApp(cmd, func(ctx context.Context, a *app) error {
				rows, err := a.svc.Rank(ctx, q)
				if err != nil {
					return err
				}
				return a.render(map[string]any{"filas": rows}, func() { a.console.PrintRanking(rows) })
			})
		},
	}

	cmd.Flags().IntVar(&q.MinLen, "min-len", 2, "shortest pattern length")
	cmd.Flags().IntVar(&q.MaxLen, "max-len", 6, "longest pattern length")
	cmd.Flags().IntVar(&q.MinSamples, "min-samples", 20, "minimum occurrences to include a pattern")
	cmd.Flags().Float64Var(&q.Alpha, "alpha", 0, "Laplace smoothing (0 = raw frequency)")
	rng.register(cmd)
	return cmd
}

func newHistoryCmd(o *rootOptions) *cobra.Command {
	var (
		pattern string
		side    string
		rng     rangeFlags
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List every occurrence of a pattern and the candle that followed",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := domain.ParsePattern(pattern)
			if err != nil {
				return err
			}
			s, err := domain.ParseSide(side)
			if err != nil {
				return err
			}
			scope, err := o.scope(rng)
			if err != nil {
				return err
			}

			return o.withApp(cmd, func(ctx context.Context, a *app) error {
				h, err := a.svc.History(ctx, patterns.HistoryQuery{Scope: scope, Pattern: p, Side: s})
				if err != nil {
					return err
				}
				return a.render(h, func() { a.console.PrintHistory(h) })
			})
		},
	}

	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "pattern, e.g. VVR")
	cmd.Flags().StringVarP(&side, "side", "s", "V", "direction to bet: V|R")
	_ = cmd.MarkFlagRequired("pattern")
	rng.register(cmd)
	return cmd
}

func newSimulateCmd(o *rootOptions) *cobra.Command {
	var (
		pattern string
		side    string
		params  domain.SimParams
		rng     rangeFlags
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: `Simulate "always enter" after every occurrence of a pattern`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := domain.ParsePattern(pattern)
			if err != nil {
				return err
			}
			dir, err := domain.OptionalSide(side)
			if err != nil {
				return err
			}
			if params.Bankroll <= 0 || params.Stake <= 0 {
				return fmt.Errorf("bankroll and stake must be positive")
			}
			if params.Payout < 0 || params.Payout > 2 {
				return fmt.Errorf("payout must be in [0, 2], got %v", params.Payout)
			}
			params.Pattern = p
			params.Direction = dir

			scope, err := o.scope(rng)
			if err != nil {
				return err
			}

			return o.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.svc.Simulate(ctx, patterns.SimulateQuery{Scope: scope, Params: params})
				if err != nil {
					return err
				}
				return a.render(res, func() { a.console.PrintSimulation(res) })
			})
		},
	}

	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "pattern, e.g. VVR")
	cmd.Flags().StringVarP(&side, "side", "s", "", "direction to bet: V|R (default V)")
	cmd.Flags().Float64Var(&params.Bankroll, "bankroll", 1000, "starting bankroll")
	cmd.Flags().Float64Var(&params.Stake, "stake", 10, "stake per trade")
	cmd.Flags().Float64Var(&params.Payout, "payout", 0.85, "profit per unit staked on a win")
	cmd.Flags().BoolVar(&params.Reinvest, "reinvest", true, "scale the stake with the bankroll")
	_ = cmd.MarkFlagRequired("pattern")
	rng.register(cmd)
	return cmd
}

func newLatestCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the end time of the latest candle of the series",
		RunE: func(cmd *cobra.Command, args []string) error {
			market, interval, err := o.series()
			if err != nil {
				return err
			}

			return o.withApp(cmd, func(ctx context.Context, a *app) error {
				latest, err := a.svc.Latest(ctx, market, interval)
				if err != nil {
					return err
				}
				// Sin datos guardados se pregunta a Gamma directamente.
				if latest == nil && a.client != nil {
					c, err := a.client.LatestClosed(ctx, market, interval, a.cfg.Lookback())
					if err != nil {
						slog.Warn("gamma latest lookup failed", "err", err)
					} else if c != nil {
						latest = &c.EndTime
					}
				}
				return a.render(map[string]*time.Time{"fin_ts_utc": latest}, func() {
					a.console.PrintLatest(market, interval, latest)
				})
			})
		},
	}
}

func logBackfillWarning(scope patterns.Scope, err error) {
	slog.Warn("backfill failed, using stored candles",
		"market", scope.Market,
		"interval", scope.Interval,
		"err", err,
	)
}
