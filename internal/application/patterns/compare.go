package patterns

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/polypatron/internal/domain"
	"golang.org/x/sync/errgroup"
)

// WindowsQuery compara el mismo patrón en ventanas de N días hacia atrás desde End.
type WindowsQuery struct {
	Market   string
	Interval domain.Interval
	Pattern  domain.Pattern
	Side     *domain.Side // nil = dominante de la ventana más larga
	End      time.Time
	Days     []int
}

// CompareWindows hace un único backfill del rango más largo y carga cada ventana
// desde storage en paralelo.
func (s *Service) CompareWindows(ctx context.Context, q WindowsQuery) (domain.WindowComparison, error) {
	end := q.End
	if end.IsZero() {
		end = s.now().UTC()
	}
	days := domain.WindowDays(q.Days)
	res := domain.WindowComparison{Patron: q.Pattern, Fin: end, Filas: []domain.WindowRow{}, Tendencia: domain.TrendFlat}
	if len(days) == 0 {
		res.Direccion = domain.SideWin
		if q.Side != nil {
			res.Direccion = *q.Side
		}
		return res, nil
	}

	longest := Scope{Market: q.Market, Interval: q.Interval, Start: windowStart(end, days[len(days)-1]), End: end}
	if _, err := s.ensure(ctx, longest, s.cfg.Backfill.WindowMaxPages); err != nil {
		// sigue con lo guardado, igual que loadSeries
		logBackfillFailure(longest, err)
	}

	series := make([]domain.Series, len(days))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.WindowWorkers)
	for i, d := range days {
		g.Go(func() error {
			sr, err := s.storage.LoadSeries(gctx, q.Market, q.Interval, windowStart(end, d), end)
			if err != nil {
				return fmt.Errorf("patterns.CompareWindows: load %dd: %w", d, err)
			}
			series[i] = sr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.WindowComparison{}, err
	}

	var dir domain.Side
	if q.Side != nil {
		dir = *q.Side
	} else {
		longSeries := series[len(series)-1]
		dir = domain.Edge(longSeries.Colors, nil, q.Pattern, domain.SideWin).Dominant()
	}
	res.Direccion = dir

	for i, d := range days {
		res.Filas = append(res.Filas,
			domain.NewWindowRow(d, windowStart(end, d), end, series[i], q.Pattern, dir))
	}
	res.Tendencia = domain.WindowTrend(res.Filas)
	return res, nil
}

func windowStart(end time.Time, days int) time.Time {
	return end.Add(-time.Duration(days) * 24 * time.Hour)
}

// RangeQuery mide un patrón en un rango.
type RangeQuery struct {
	Scope
	Pattern domain.Pattern
	Side    *domain.Side // nil = dominante del rango
}

// CompareRange devuelve la efectividad del patrón en el rango y con qué frecuencia aparece.
func (s *Service) CompareRange(ctx context.Context, q RangeQuery) (domain.RangeMetrics, error) {
	series, err := s.loadSeries(ctx, q.Scope, s.cfg.Backfill.MaxPages)
	if err != nil {
		return domain.RangeMetrics{}, err
	}
	return domain.MeasureRange(series, q.Pattern, q.Side, q.Start, q.End), nil
}

// ABQuery compara el mismo patrón en dos rangos de la misma serie.
type ABQuery struct {
	Market   string
	Interval domain.Interval
	Pattern  domain.Pattern
	Side     *domain.Side // nil = dominante del rango A
	AStart   time.Time
	AEnd     time.Time
	BStart   time.Time
	BEnd     time.Time
}

// CompareAB carga los dos rangos en paralelo. Los deltas son B - A.
func (s *Service) CompareAB(ctx context.Context, q ABQuery) (domain.RangeComparison, error) {
	scopeA := Scope{Market: q.Market, Interval: q.Interval, Start: q.AStart, End: q.AEnd}
	scopeB := Scope{Market: q.Market, Interval: q.Interval, Start: q.BStart, End: q.BEnd}

	seriesA, seriesB, err := s.loadPair(ctx, scopeA, scopeB)
	if err != nil {
		return domain.RangeComparison{}, err
	}

	a := domain.MeasureRange(seriesA, q.Pattern, q.Side, q.AStart, q.AEnd)
	dir := a.Direccion
	b := domain.MeasureRange(seriesB, q.Pattern, &dir, q.BStart, q.BEnd)

	return domain.RangeComparison{
		Mercado:          q.Market,
		Intervalo:        q.Interval,
		Patron:           q.Pattern,
		Direccion:        dir,
		A:                a,
		B:                b,
		DeltaEfectividad: domain.DeltaEfectividad(a.Efectividad, b.Efectividad),
		DeltaMuestras:    b.Muestras - a.Muestras,
	}, nil
}

// PatternsVsQuery enfrenta dos patrones sobre el mismo rango.
type PatternsVsQuery struct {
	Scope
	PatternA domain.Pattern
	SideA    *domain.Side
	PatternB domain.Pattern
	SideB    *domain.Side
}

// ComparePatterns mide ambos patrones sobre una sola carga de la serie. Los deltas son A - B.
func (s *Service) ComparePatterns(ctx context.Context, q PatternsVsQuery) (domain.PatternComparison, error) {
	series, err := s.loadSeries(ctx, q.Scope, s.cfg.Backfill.MaxPages)
	if err != nil {
		return domain.PatternComparison{}, err
	}

	a := domain.MeasureRange(series, q.PatternA, q.SideA, q.Start, q.End)
	b := domain.MeasureRange(series, q.PatternB, q.SideB, q.Start, q.End)
	return domain.PatternComparison{
		Mercado:          q.Market,
		Intervalo:        q.Interval,
		A:                a,
		B:                b,
		DeltaEfectividad: domain.DeltaEfectividad(b.Efectividad, a.Efectividad),
		DeltaMuestras:    a.Muestras - b.Muestras,
		Ganador:          domain.PickWinner(a.Efectividad, b.Efectividad),
	}, nil
}

// loadPair carga dos rangos en paralelo.
func (s *Service) loadPair(ctx context.Context, a, b Scope) (domain.Series, domain.Series, error) {
	var seriesA, seriesB domain.Series
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		seriesA, err = s.loadSeries(gctx, a, s.cfg.Backfill.MaxPages)
		return err
	})
	g.Go(func() error {
		var err error
		seriesB, err = s.loadSeries(gctx, b, s.cfg.Backfill.MaxPages)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Series{}, domain.Series{}, err
	}
	return seriesA, seriesB, nil
}
