package patterns

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/google/uuid"
)

// SimulateQuery pide una simulación "entrar siempre" sobre un rango.
type SimulateQuery struct {
	Scope
	Params domain.SimParams
}

// Simulate carga la serie del rango y simula entrar en cada aparición del patrón.
// Cada corrida lleva un run_id único para poder rastrearla en los logs.
func (s *Service) Simulate(ctx context.Context, q SimulateQuery) (domain.SimResult, error) {
	series, err := s.loadSeries(ctx, q.Scope, s.cfg.Backfill.MaxPages)
	if err != nil {
		return domain.SimResult{}, err
	}
	if series.Len() < q.Params.Pattern.Len()+1 {
		return domain.SimResult{}, fmt.Errorf("patterns.Simulate: %w: %d candles for pattern %s",
			ErrInsufficientData, series.Len(), q.Params.Pattern)
	}

	res := domain.SimulateAlwaysEnter(series, q.Params)
	res.RunID = uuid.NewString()

	slog.Info("simulation complete",
		"run_id", res.RunID,
		"market", q.Market,
		"interval", q.Interval,
		"pattern", q.Params.Pattern,
		"trades", len(res.Trades),
		"roi", res.ROI,
	)
	return res, nil
}
