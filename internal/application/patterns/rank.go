package patterns

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/polypatron/internal/domain"
)

// RankQuery pide el ranking de patrones de un rango.
type RankQuery struct {
	Scope
	MinLen     int
	MaxLen     int
	MinSamples int
	Alpha      float64
}

// Rank devuelve los patrones más efectivos del rango, como mucho MaxRankRows.
// Si la serie no tiene al menos MaxLen+2 velas devuelve una lista vacía.
func (s *Service) Rank(ctx context.Context, q RankQuery) ([]domain.PatternRow, error) {
	series, err := s.loadSeries(ctx, q.Scope, s.cfg.Backfill.MaxPages)
	if err != nil {
		return nil, err
	}

	if series.Len() < q.MaxLen+2 {
		slog.Debug("not enough candles to rank",
			"market", q.Market,
			"interval", q.Interval,
			"candles", series.Len(),
			"max_len", q.MaxLen,
		)
		return []domain.PatternRow{}, nil
	}

	rows := domain.RankPatterns(series.Colors, series.EndTimes, domain.RankParams{
		MinLen:     q.MinLen,
		MaxLen:     q.MaxLen,
		MinSamples: q.MinSamples,
		Alpha:      q.Alpha,
		Now:        s.now().UTC(),
	})
	if len(rows) > s.cfg.MaxRankRows {
		rows = rows[:s.cfg.MaxRankRows]
	}

	slog.Debug("ranking complete",
		"market", q.Market,
		"interval", q.Interval,
		"candles", series.Len(),
		"rows", len(rows),
	)
	return rows, nil
}
