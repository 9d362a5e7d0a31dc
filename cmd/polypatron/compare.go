package main

import (
	"context"
	"time"

	"github.com/alejandrodnm/polypatron/internal/application/patterns"
	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/spf13/cobra"
)

func newCompareCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare a pattern across windows, ranges or against another pattern",
	}
	cmd.AddCommand(
		newCompareWindowsCmd(o),
		newCompareRangeCmd(o),
		newCompareABCmd(o),
		newComparePatternsCmd(o),
	)
	return cmd
}

// patternFlags son --pattern y --side, comunes a las comparaciones.
type patternFlags struct {
	pattern string
	side    string
}

func (f *patternFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.pattern, "pattern", "p", "", "pattern, e.g. VVR")
	cmd.Flags().StringVarP(&f.side, "side", "s", "", "direction V|R (default: dominant in the range)")
	_ = cmd.MarkFlagRequired("pattern")
}

func (f patternFlags) parse() (domain.Pattern, *domain.Side, error) {
	p, err := domain.ParsePattern(f.pattern)
	if err != nil {
		return "", nil, err
	}
	s, err := domain.OptionalSide(f.side)
	if err != nil {
		return "", nil, err
	}
	return p, s, nil
}

func newCompareWindowsCmd(o *rootOptions) *cobra.Command {
	var (
		pf   patternFlags
		end  string
		days []int
	)

	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Edge of a pattern over the last N days, for several N",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, side, err := pf.parse()
			if err != nil {
				return err
			}
			market, interval, err := o.series()
			if err != nil {
				return err
			}
			endTime := time.Now().UTC()
			if end != "" {
				if endTime, err = domain.ParseTime(end); err != nil {
					return err
				}
			}

			return o.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.svc.CompareWindows(ctx, patterns.WindowsQuery{
					Market:   market,
					Interval: interval,
					Pattern:  p,
					Side:     side,
					End:      endTime,
					Days:     days,
				})
				if err != nil {
					return err
				}
				return a.render(res, func() { a.console.PrintWindows(res) })
			})
		},
	}

	pf.register(cmd)
	cmd.Flags().StringVar(&end, "end", "", "windows end (default now)")
	cmd.Flags().IntSliceVar(&days, "days", []int{3, 7, 15, 30}, "window sizes in days")
	return cmd
}

func newCompareRangeCmd(o *rootOptions) *cobra.Command {
	var (
		pf  patternFlags
		rng rangeFlags
	)

	cmd := &cobra.Command{
		Use:   "range",
		Short: "Edge and frequency of a pattern in a range",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, side, err := pf.parse()
			if err != nil {
				return err
			}
			scope, err := o.scope(rng)
			if err != nil {
				return err
			}

			return o.withApp(cmd, func(ctx context.Context, a *app) error {
				m, err := a.svc.CompareRange(ctx, patterns.RangeQuery{Scope: scope, Pattern: p, Side: side})
				if err != nil {
					return err
				}
				return a.render(m, func() { a.console.PrintRange(m) })
			})
		},
	}

	pf.register(cmd)
	rng.register(cmd)
	return cmd
}

func newCompareABCmd(o *rootOptions) *cobra.Command {
	var (
		pf     patternFlags
		ra, rb rangeFlags
	)

	cmd := &cobra.Command{
		Use:   "ab",
		Short: "Same pattern in two ranges (deltas are B - A)",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, side, err := pf.parse()
			if err != nil {
				return err
			}
			market, interval, err := o.series()
			if err != nil {
				return err
			}
			now := time.Now()
			aStart, aEnd, err := ra.resolve(now, o.cfg.Lookback())
			if err != nil {
				return err
			}
			bStart, bEnd, err := rb.resolve(now, o.cfg.Lookback())
			if err != nil {
				return err
			}

			return o.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.svc.CompareAB(ctx, patterns.ABQuery{
					Market:   market,
					Interval: interval,
					Pattern:  p,
					Side:     side,
					AStart:   aStart,
					AEnd:     aEnd,
					BStart:   bStart,
					BEnd:     bEnd,
				})
				if err != nil {
					return err
				}
				return a.render(res, func() { a.console.PrintRangeComparison(res) })
			})
		},
	}

	pf.register(cmd)
	cmd.Flags().StringVar(&ra.start, "a-start", "", "range A start")
	cmd.Flags().StringVar(&ra.end, "a-end", "", "range A end")
	cmd.Flags().StringVar(&rb.start, "b-start", "", "range B start")
	cmd.Flags().StringVar(&rb.end, "b-end", "", "range B end")
	for _, name := range []string{"a-start", "a-end", "b-start", "b-end"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newComparePatternsCmd(o *rootOptions) *cobra.Command {
	var (
		pa, pb patternFlags
		rng    rangeFlags
	)

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Two patterns over the same range (deltas are A - B)",
		RunE: func(cmd *cobra.Command, args []string) error {
			patternA, sideA, err := pa.parse()
			if err != nil {
				return err
			}
			patternB, sideB, err := pb.parse()
			if err != nil {
				return err
			}
			scope, err := o.scope(rng)
			if err != nil {
				return err
			}

			return o.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.svc.ComparePatterns(ctx, patterns.PatternsVsQuery{
					Scope:    scope,
					PatternA: patternA,
					SideA:    sideA,
					PatternB: patternB,
					SideB:    sideB,
				})
				if err != nil {
					return err
				}
				return a.render(res, func() { a.console.PrintPatternComparison(res) })
			})
		},
	}

	cmd.Flags().StringVar(&pa.pattern, "pattern-a", "", "pattern A")
	cmd.Flags().StringVar(&pa.side, "side-a", "", "direction for A (default: dominant)")
	cmd.Flags().StringVar(&pb.pattern, "pattern-b", "", "pattern B")
	cmd.Flags().StringVar(&pb.side, "side-b", "", "direction for B (default: dominant)")
	_ = cmd.MarkFlagRequired("pattern-a")
	_ = cmd.MarkFlagRequired("pattern-b")
	rng.register(cmd)
	return cmd
}
