package patterns

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/polypatron/internal/domain"
)

// HistoryQuery pide las apariciones de un patrón en un rango.
type HistoryQuery struct {
	Scope
	Pattern domain.Pattern
	Side    domain.Side
}

func (q HistoryQuery) key() domain.HistoryKey {
	return domain.HistoryKey{
		Market:   q.Market,
		Interval: q.Interval,
		Pattern:  q.Pattern,
		Side:     q.Side,
		Start:    q.Start,
		End:      q.End,
	}
}

// HistoryAnalysis es el historial junto con el análisis de sus resultados.
type HistoryAnalysis struct {
	Historial     domain.PatternHistory `json:"historial"`
	Analisis      domain.AnalysisResult `json:"analisis"`
	PocaEvidencia bool                  `json:"poca_evidencia"`
}

// History devuelve cada aparición del patrón con el color de la vela siguiente.
// Los historiales se cachean por clave; un fallo de cache se trata como miss.
// Si el backfill falló el resultado se devuelve pero no se cachea.
func (s *Service) History(ctx context.Context, q HistoryQuery) (domain.PatternHistory, error) {
	key := q.key()
	if s.cache != nil {
		h, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("history cache get failed", "key", key.String(), "err", err)
		} else if ok {
			slog.Debug("history cache hit", "key", key.String())
			return h, nil
		}
	}

	series, degraded, err := s.loadSeriesChecked(ctx, q.Scope, s.cfg.Backfill.MaxPages)
	if err != nil {
		return domain.PatternHistory{}, err
	}

	h := domain.NewPatternHistory(q.Market, q.Interval, q.Pattern, q.Side, domain.FindOccurrences(series, q.Pattern))

	// Con Gamma caído el historial puede estar incompleto: el próximo pedido reintenta.
	if s.cache != nil && !degraded {
		if err := s.cache.Set(ctx, key, h); err != nil {
			slog.Warn("history cache set failed", "key", key.String(), "err", err)
		}
	}
	return h, nil
}

// AnalyzeHistory arma el historial y analiza la secuencia de resultados
// contra la dirección pedida.
func (s *Service) AnalyzeHistory(ctx context.Context, q HistoryQuery) (HistoryAnalysis, error) {
	h, err := s.History(ctx, q)
	if err != nil {
		return HistoryAnalysis{}, err
	}
	res := domain.Analyze(domain.Results(h.Ocurrencias), q.Side)
	return HistoryAnalysis{
		Historial:     h,
		Analisis:      res,
		PocaEvidencia: res.LowEvidence(s.cfg.LowEvidenceBase),
	}, nil
}

// Analyze corre el motor sobre una secuencia ya armada por el llamador.
func (s *Service) Analyze(results []domain.Side, expected domain.Side) (domain.AnalysisResult, bool) {
	res := domain.Analyze(results, expected)
	return res, res.LowEvidence(s.cfg.LowEvidenceBase)
}
