// Package ingest mantiene al día las velas guardadas: cada ciclo trae de Gamma
// las últimas velas cerradas de cada serie configurada.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/polypatron/internal/application/patterns"
	"github.com/alejandrodnm/polypatron/internal/domain"
)

// Series identifica una serie de velas.
type Series struct {
	Market   string
	Interval domain.Interval
}

func (s Series) String() string {
	return s.Market + ":" + string(s.Interval)
}

// ParseSeries interpreta "mercado:intervalo".
func ParseSeries(raw string) (Series, error) {
	market, interval, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || market == "" {
		return Series{}, fmt.Errorf("series %q: expected market:interval", raw)
	}
	iv, err := domain.ParseInterval(interval)
	if err != nil {
		return Series{}, fmt.Errorf("series %q: %w", raw, err)
	}
	return Series{Market: market, Interval: iv}, nil
}

// Config contiene la configuración del watcher.
type Config struct {
	Every   time.Duration
	Blocks  int // intervalos hacia atrás por ciclo
	Series  []Series
	Workers int
	Once    bool
}

// Ingester es lo que el watcher necesita del servicio de patrones.
type Ingester interface {
	IngestRecent(ctx context.Context, market string, interval domain.Interval, blocks int, prefix string) (patterns.IngestReport, error)
}

// Watcher es el loop de ingesta periódica.
type Watcher struct {
	cfg            Config
	ingester       Ingester
	previousLatest map[Series]time.Time // última vela vista por serie
}

// New crea un Watcher.
func New(cfg Config, ingester Ingester) *Watcher {
	if cfg.Every <= 0 {
		cfg.Every = 5 * time.Minute
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Watcher{
		cfg:            cfg,
		ingester:       ingester,
		previousLatest: make(map[Series]time.Time),
	}
}

// Run ejecuta el loop hasta que el contexto se cancele.
// Con cfg.Once ejecuta un solo ciclo y devuelve su error.
func (w *Watcher) Run(ctx context.Context) error {
	slog.Info("watcher starting",
		"every", w.cfg.Every,
		"series", len(w.cfg.Series),
		"blocks", w.cfg.Blocks,
		"once", w.cfg.Once,
	)

	if err := w.runCycle(ctx); err != nil {
		if w.cfg.Once {
			return err
		}
		slog.Error("ingest cycle failed", "err", err)
	}
	if w.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(w.cfg.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("watcher stopped")
			return nil
		case <-ticker.C:
			if err := w.runCycle(ctx); err != nil {
				slog.Error("ingest cycle failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta exactamente un ciclo y devuelve los reportes de cada serie.
func (w *Watcher) RunOnce(ctx context.Context) ([]patterns.IngestReport, error) {
	return w.cycle(ctx)
}

func (w *Watcher) runCycle(ctx context.Context) error {
	start := time.Now()

	reports, err := w.cycle(ctx)
	w.emitNewCandles(reports)

	inserted := 0
	for _, r := range reports {
		inserted += r.Insertadas
	}
	slog.Info("ingest cycle complete",
		"series", len(reports),
		"inserted", inserted,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return err
}

// cycle ingesta todas las series en paralelo. Una serie que falla no corta las demás:
// los errores se juntan y se devuelven al final.
func (w *Watcher) cycle(ctx context.Context) ([]patterns.IngestReport, error) {
	results := ingestConcurrent(ctx, w.ingester, w.cfg.Series, w.cfg.Blocks, w.cfg.Workers)

	reports := make([]patterns.IngestReport, 0, len(results))
	var errs []error
	for _, r := range results {
		if r.err != nil {
			if errors.Is(r.err, patterns.ErrOffline) {
				return nil, fmt.Errorf("ingest.cycle: %w", r.err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", r.series, r.err))
			continue
		}
		reports = append(reports, r.report)
	}
	if len(errs) > 0 {
		return reports, fmt.Errorf("ingest.cycle: %w", errors.Join(errs...))
	}
	return reports, nil
}

// emitNewCandles loguea las series cuya última vela avanzó desde el ciclo anterior.
func (w *Watcher) emitNewCandles(reports []patterns.IngestReport) {
	for _, r := range reports {
		if r.UltimaVela == nil {
			continue
		}
		key := Series{Market: r.Mercado, Interval: r.Intervalo}
		prev, seen := w.previousLatest[key]
		if !seen || r.UltimaVela.After(prev) {
			slog.Info("new candles",
				"series", key.String(),
				"latest", r.UltimaVela.UTC().Format(time.RFC3339),
				"inserted", r.Insertadas,
			)
		}
		w.previousLatest[key] = *r.UltimaVela
	}
}
