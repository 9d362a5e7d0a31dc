package patterns

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/alejandrodnm/polypatron/internal/ports"
)

// EnsureRange trae de Gamma las velas cerradas del rango y guarda las que falten.
// Devuelve cuántas velas nuevas se insertaron. En modo offline no hace nada.
func (s *Service) EnsureRange(ctx context.Context, scope Scope) (int, error) {
	return s.ensure(ctx, scope, s.cfg.Backfill.MaxPages)
}

func (s *Service) ensure(ctx context.Context, scope Scope, maxPages int) (int, error) {
	return s.backfill(ctx, scope, maxPages, s.cfg.Backfill.SlugPrefix)
}

func (s *Service) backfill(ctx context.Context, scope Scope, maxPages int, prefix string) (int, error) {
	if s.Offline() {
		return 0, nil
	}
	if err := scope.validate(); err != nil {
		return 0, err
	}

	start := time.Now()
	candles, fetchErr := s.provider.FetchClosedCandles(ctx, ports.CandleQuery{
		Market:     scope.Market,
		Interval:   scope.Interval,
		SlugPrefix: prefix,
		EndMin:     scope.Start,
		EndMax:     scope.End,
		PageSize:   s.cfg.Backfill.PageSize,
		MaxPages:   maxPages,
	})

	// Lo recibido antes de un error de paginación también se guarda.
	inserted, err := s.storage.InsertCandles(ctx, candles)
	if err != nil {
		return 0, fmt.Errorf("patterns.backfill: insert: %w", err)
	}
	if fetchErr != nil {
		return inserted, fmt.Errorf("patterns.backfill: fetch: %w", fetchErr)
	}

	slog.Debug("backfill complete",
		"market", scope.Market,
		"interval", scope.Interval,
		"fetched", len(candles),
		"inserted", inserted,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return inserted, nil
}

// loadSeries hace backfill best-effort y carga la serie del rango desde storage.
// Un fallo de Gamma no corta la consulta: se sigue con lo que haya guardado.
func (s *Service) loadSeries(ctx context.Context, scope Scope, maxPages int) (domain.Series, error) {
	series, _, err := s.loadSeriesChecked(ctx, scope, maxPages)
	return series, err
}

// loadSeriesChecked es loadSeries e informa además si el backfill falló, en cuyo caso
// la serie puede estar incompleta y no debe cachearse nada derivado de ella.
func (s *Service) loadSeriesChecked(ctx context.Context, scope Scope, maxPages int) (domain.Series, bool, error) {
	if err := scope.validate(); err != nil {
		return domain.Series{}, false, err
	}
	degraded := false
	if _, err := s.ensure(ctx, scope, maxPages); err != nil {
		logBackfillFailure(scope, err)
		degraded = true
	}

	series, err := s.storage.LoadSeries(ctx, scope.Market, scope.Interval, scope.Start, scope.End)
	if err != nil {
		return domain.Series{}, false, fmt.Errorf("patterns.loadSeries: %w", err)
	}
	return series, degraded, nil
}

// IngestReport resume una ingesta de las últimas velas de una serie.
type IngestReport struct {
	Mercado    string          `json:"mercado"`
	Intervalo  domain.Interval `json:"intervalo"`
	Desde      time.Time       `json:"desde"`
	Hasta      time.Time       `json:"hasta"`
	Insertadas int             `json:"insertadas"`
	UltimaVela *time.Time      `json:"ultima_vela_utc"`
}

// IngestRecent trae de Gamma las velas cerradas de los últimos blocks intervalos.
// prefix vacío usa el prefijo configurado (o "<market>-<interval>-").
// A diferencia del backfill de las consultas, acá un fallo de Gamma sí es un error.
func (s *Service) IngestRecent(ctx context.Context, market string, interval domain.Interval, blocks int, prefix string) (IngestReport, error) {
	if s.Offline() {
		return IngestReport{}, ErrOffline
	}
	if blocks <= 0 {
		blocks = defaultIngestBlocks
	}
	if prefix == "" {
		prefix = s.cfg.Backfill.SlugPrefix
	}

	now := s.now().UTC()
	scope := Scope{
		Market:   market,
		Interval: interval,
		Start:    now.Add(-time.Duration(blocks) * interval.Duration()),
		End:      now,
	}
	rep := IngestReport{Mercado: market, Intervalo: interval, Desde: scope.Start, Hasta: scope.End}

	inserted, err := s.backfill(ctx, scope, s.cfg.Backfill.MaxPages, prefix)
	rep.Insertadas = inserted
	if err != nil {
		return rep, fmt.Errorf("patterns.IngestRecent: %w", err)
	}

	latest, err := s.storage.LatestEndTime(ctx, market, interval)
	if err != nil {
		return rep, fmt.Errorf("patterns.IngestRecent: %w", err)
	}
	rep.UltimaVela = latest
	return rep, nil
}

// Latest devuelve el fin de la última vela guardada de la serie, o nil si no hay datos.
func (s *Service) Latest(ctx context.Context, market string, interval domain.Interval) (*time.Time, error) {
	t, err := s.storage.LatestEndTime(ctx, market, interval)
	if err != nil {
		return nil, fmt.Errorf("patterns.Latest: %w", err)
	}
	return t, nil
}

func logBackfillFailure(scope Scope, err error) {
	slog.Warn("backfill failed, using stored candles",
		"market", scope.Market,
		"interval", scope.Interval,
		"err", err,
	)
}
