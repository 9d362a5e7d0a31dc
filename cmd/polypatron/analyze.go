package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alejandrodnm/polypatron/internal/adapters/notify"
	"github.com/alejandrodnm/polypatron/internal/application/patterns"
	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(o *rootOptions) *cobra.Command {
	var (
		expected string
		pats     []string
		rng      rangeFlags
	)

	cmd := &cobra.Command{
		Use:   "analyze [SEQUENCE...]",
		Short: "Analyze a V/R result sequence, or the history of one or more patterns",
		Example: `  polypatron analyze VVRVRRV --expected V
  polypatron analyze --pattern VV --pattern VRV --expected R --start 2025-10-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := domain.ParseSide(expected)
			if err != nil {
				return fmt.Errorf("--expected: %w", err)
			}

			switch {
			case len(args) > 0 && len(pats) > 0:
				return errors.New("pass either a sequence or --pattern, not both")
			case len(args) > 0:
				return o.analyzeSequence(strings.Join(args, ""), side)
			case len(pats) > 0:
				return o.analyzePatterns(cmd, pats, side, rng)
			}
			return errors.New("nothing to analyze: pass a sequence or --pattern")
		},
	}

	cmd.Flags().StringVarP(&expected, "expected", "e", "V", "expected side: V|R")
	cmd.Flags().StringArrayVarP(&pats, "pattern", "p", nil, "pattern to analyze against stored history (repeatable)")
	rng.register(cmd)
	return cmd
}

// analyzeSequence corre el motor sobre una secuencia dada a mano. No abre storage.
func (o *rootOptions) analyzeSequence(raw string, expected domain.Side) error {
	results, err := domain.ParseSideString(raw)
	if err != nil {
		return err
	}
	loc, err := o.cfg.Location()
	if err != nil {
		return err
	}
	res := domain.Analyze(results, expected)
	low := res.LowEvidence(o.cfg.Patterns.LowEvidenceBase)

	console := notify.NewConsole(loc)
	if o.json {
		return console.PrintJSON(struct {
			domain.AnalysisResult
			PocaEvidencia bool `json:"poca_evidencia"`
		}{res, low})
	}
	console.PrintAnalysis(res, low)
	return nil
}

type batchJSON struct {
	Patron    domain.Pattern            `json:"patron"`
	Direccion domain.Side               `json:"direccion"`
	Resultado *patterns.HistoryAnalysis `json:"resultado,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

// analyzePatterns arma el historial de cada patrón y lo analiza en paralelo.
func (o *rootOptions) analyzePatterns(cmd *cobra.Command, raw []string, expected domain.Side, rng rangeFlags) error {
	scope, err := o.scope(rng)
	if err != nil {
		return err
	}
	queries := make([]patterns.HistoryQuery, 0, len(raw))
	for _, r := range raw {
		p, err := domain.ParsePattern(r)
		if err != nil {
			return err
		}
		queries = append(queries, patterns.HistoryQuery{Scope: scope, Pattern: p, Side: expected})
	}

	return o.withApp(cmd, func(ctx context.Context, a *app) error {
		// Un backfill previo evita que cada worker pagine Gamma por su cuenta.
		if _, err := a.svc.EnsureRange(ctx, scope); err != nil {
			logBackfillWarning(scope, err)
		}

		batch := a.svc.AnalyzeBatch(ctx, queries)

		if len(batch) == 1 {
			b := batch[0]
			if b.Err != nil {
				return b.Err
			}
			return a.render(b.Result, func() {
				a.console.PrintHistory(b.Result.Historial)
				a.console.PrintAnalysis(b.Result.Analisis, b.Result.PocaEvidencia)
			})
		}

		items := make([]notify.AnalysisSummary, len(batch))
		out := make([]batchJSON, len(batch))
		for i, b := range batch {
			items[i] = notify.AnalysisSummary{
				Label:       fmt.Sprintf("%s → %s", b.Query.Pattern, b.Query.Side),
				Result:      b.Result.Analisis,
				LowEvidence: b.Result.PocaEvidencia,
				Err:         b.Err,
			}
			out[i] = batchJSON{Patron: b.Query.Pattern, Direccion: b.Query.Side}
			if b.Err != nil {
				out[i].Error = b.Err.Error()
			} else {
				res := b.Result
				out[i].Resultado = &res
			}
		}
		return a.render(out, func() { a.console.PrintAnalysisSummary(items) })
	})
}
