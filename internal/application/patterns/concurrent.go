package patterns

// concurrent.go: worker pool para analizar muchos patrones a la vez.
//
// Cada consulta es independiente: el motor es puro y la cache es thread-safe,
// así que un lote de (patrón, dirección) se reparte entre workers sin coordinación.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
)

// BatchResult es el resultado de una consulta del lote, en la misma posición que su query.
type BatchResult struct {
	Query  HistoryQuery
	Result HistoryAnalysis
	Err    error
}

// AnalyzeBatch analiza todas las consultas en paralelo usando un worker pool.
// Si AnalysisWorkers <= 0 usa runtime.NumCPU() × 2. Los errores quedan en cada BatchResult.
func (s *Service) AnalyzeBatch(ctx context.Context, queries []HistoryQuery) []BatchResult {
	workers := s.cfg.AnalysisWorkers
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	if workers > len(queries) {
		workers = len(queries)
	}

	results := make([]BatchResult, len(queries))
	workCh := make(chan int, len(queries))

	// Worker pool: cada worker toma un índice de workCh y escribe su propia posición.
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				q := queries[idx]
				if err := ctx.Err(); err != nil {
					results[idx] = BatchResult{Query: q, Err: err}
					continue
				}
				res, err := s.AnalyzeHistory(ctx, q)
				if err != nil {
					slog.Debug("batch analysis failed",
						"pattern", q.Pattern,
						"side", q.Side,
						"err", err,
					)
				}
				results[idx] = BatchResult{Query: q, Result: res, Err: err}
			}
		}()
	}

	for i := range queries {
		workCh <- i
	}
	close(workCh)
	wg.Wait()

	slog.Debug("batch analysis complete",
		"queries", len(queries),
		"workers", workers,
	)
	return results
}
