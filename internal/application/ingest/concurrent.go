package ingest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/polypatron/internal/application/patterns"
)

type result struct {
	series Series
	report patterns.IngestReport
	err    error
}

// ingestConcurrent ingesta las series con un worker pool. El rate limiter del
// cliente Gamma es compartido, así que más workers no aumentan la carga sobre la API.
// Los resultados salen en el mismo orden que series.
func ingestConcurrent(
	ctx context.Context,
	ingester Ingester,
	series []Series,
	blocks int,
	workers int,
) []result {
	if workers > len(series) {
		workers = len(series)
	}

	type work struct {
		idx    int
		series Series
	}

	workCh := make(chan work, len(series))
	out := make([]result, len(series))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workCh {
				rep, err := ingester.IngestRecent(ctx, w.series.Market, w.series.Interval, blocks, "")
				if err != nil {
					slog.Debug("ingest failed", "series", w.series.String(), "err", err)
				}
				out[w.idx] = result{series: w.series, report: rep, err: err}
			}
		}()
	}

	for i, s := range series {
		workCh <- work{idx: i, series: s}
	}
	close(workCh)
	wg.Wait()

	slog.Debug("concurrent ingest complete",
		"series", len(series),
		"workers", workers,
	)
	return out
}
