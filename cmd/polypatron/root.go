package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polypatron/config"
	"github.com/alejandrodnm/polypatron/internal/adapters/cache"
	"github.com/alejandrodnm/polypatron/internal/adapters/notify"
	"github.com/alejandrodnm/polypatron/internal/adapters/polymarket"
	"github.com/alejandrodnm/polypatron/internal/adapters/storage"
	"github.com/alejandrodnm/polypatron/internal/application/patterns"
	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/alejandrodnm/polypatron/internal/ports"
	"github.com/spf13/cobra"
)

// rootOptions son los flags persistentes compartidos por todos los subcomandos.
type rootOptions struct {
	configPath string
	verbose    bool
	logFormat  string
	offline    bool
	market     string
	interval   string
	json       bool

	cfg       *config.Config
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "polypatron",
		Short: "Pattern analysis over Polymarket up/down candle series",
		Long: `PolyPatron ingests resolved Polymarket up/down markets as V/R candles and
analyzes which color sequences tend to precede which outcome: streaks, conditional
probabilities, rankings, "always enter" simulations and range comparisons.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(o.configPath)
			if err != nil {
				return err
			}
			if o.verbose {
				cfg.Log.Level = "debug"
			}
			if o.logFormat != "" {
				cfg.Log.Format = o.logFormat
			}
			o.cfg = cfg
			o.logCloser = setupLogger(cfg.Log)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if o.logCloser != nil {
				return o.logCloser.Close()
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "config.yaml", "path to config file")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "set log level to debug")
	pf.StringVar(&o.logFormat, "format", "", "log format: auto|text|json (overrides config)")
	pf.BoolVar(&o.offline, "offline", false, "use only stored candles, no Gamma backfill")
	pf.StringVar(&o.market, "market", "", "market series, e.g. btc-updown (default from config)")
	pf.StringVar(&o.interval, "interval", "", "candle interval: 5m|15m|1h|4h (default from config)")
	pf.BoolVar(&o.json, "json", false, "print raw JSON instead of tables")

	cmd.AddCommand(
		newAnalyzeCmd(o),
		newRankCmd(o),
		newHistoryCmd(o),
		newSimulateCmd(o),
		newCompareCmd(o),
		newLatestCmd(o),
		newServeCmd(o),
		newWatchCmd(o),
	)
	return cmd
}

// series devuelve el mercado y el intervalo pedidos, con los defaults de config.
func (o *rootOptions) series() (string, domain.Interval, error) {
	market := o.market
	if market == "" {
		market = o.cfg.Patterns.DefaultMarket
	}
	raw := o.interval
	if raw == "" {
		raw = o.cfg.Patterns.DefaultInterval
	}
	interval, err := domain.ParseInterval(raw)
	if err != nil {
		return "", "", err
	}
	return market, interval, nil
}

// app agrupa las dependencias armadas para un comando.
type app struct {
	cfg     *config.Config
	client  *polymarket.Client // nil en modo offline
	svc     *patterns.Service
	console *notify.Console
	json    bool
	closers []func() error
}

// openApp conecta storage, cache y cliente Gamma según la configuración.
func (o *rootOptions) openApp(ctx context.Context) (*app, error) {
	cfg := o.cfg

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN, cfg.Retention())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a := &app{
		cfg:     cfg,
		console: notify.NewConsole(loc),
		json:    o.json,
		closers: []func() error{store.Close},
	}

	var provider ports.CandleProvider
	online := cfg.BackfillEnabled() && !o.offline
	if online {
		a.client = polymarket.NewClient(polymarket.ClientConfig{
			GammaBase:     cfg.API.GammaBase,
			RatePerSecond: cfg.API.RatePerSecond,
			Timeout:       time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		})
		provider = a.client
	}

	historyCache := a.openCache(ctx)

	pcfg := patterns.DefaultConfig()
	pcfg.Backfill = patterns.BackfillConfig{
		Enabled:        online,
		PageSize:       cfg.Backfill.PageSize,
		MaxPages:       cfg.Backfill.MaxPages,
		WindowMaxPages: cfg.Backfill.WindowMaxPages,
		SlugPrefix:     cfg.Backfill.SlugPrefix,
	}
	pcfg.AnalysisWorkers = cfg.Patterns.AnalysisWorkers
	pcfg.WindowWorkers = cfg.Patterns.WindowWorkers
	pcfg.MaxRankRows = cfg.Patterns.MaxRankRows
	pcfg.LowEvidenceBase = cfg.Patterns.LowEvidenceBase

	a.svc = patterns.New(pcfg, provider, store, historyCache)

	slog.Debug("app ready",
		"dsn", cfg.Storage.DSN,
		"online", online,
		"cache", cfg.Cache.Backend,
	)
	return a, nil
}

// openCache elige la cache de historiales. Si Redis no responde cae a memoria.
func (a *app) openCache(ctx context.Context) ports.HistoryCache {
	switch a.cfg.Cache.Backend {
	case "none":
		return nil
	case "redis":
		r, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     a.cfg.Cache.Redis.Addr,
			Password: a.cfg.Cache.Redis.Password,
			DB:       a.cfg.Cache.Redis.DB,
			PoolSize: a.cfg.Cache.Redis.PoolSize,
			TTL:      a.cfg.CacheTTL(),
		})
		if err == nil {
			a.closers = append(a.closers, r.Close)
			return r
		}
		slog.Warn("redis unavailable, falling back to memory cache", "err", err)
	}
	return cache.NewMemory(a.cfg.CacheTTL(), a.cfg.Cache.MaxEntries)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close failed", "err", err)
		}
	}
}

// render imprime v como JSON con --json, o llama a table en otro caso.
func (a *app) render(v any, table func()) error {
	if a.json {
		return a.console.PrintJSON(v)
	}
	table()
	return nil
}

// rangeFlags son --start/--end; sin --end se usa ahora, sin --start el lookback configurado.
type rangeFlags struct {
	start string
	end   string
}

func (r *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.start, "start", "", "range start (RFC3339 or YYYY-MM-DD[THH:MM[:SS]], UTC)")
	cmd.Flags().StringVar(&r.end, "end", "", "range end (default now)")
}

func (r rangeFlags) resolve(now time.Time, lookback time.Duration) (time.Time, time.Time, error) {
	end := now.UTC()
	if r.end != "" {
		t, err := domain.ParseTime(r.end)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--end: %w", err)
		}
		end = t
	}
	start := end.Add(-lookback)
	if r.start != "" {
		t, err := domain.ParseTime(r.start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--start: %w", err)
		}
		start = t
	}
	return start, end, nil
}

// scope arma el Scope de la consulta a partir de los flags.
func (o *rootOptions) scope(r rangeFlags) (patterns.Scope, error) {
	market, interval, err := o.series()
	if err != nil {
		return patterns.Scope{}, err
	}
	start, end, err := r.resolve(time.Now(), o.cfg.Lookback())
	if err != nil {
		return patterns.Scope{}, err
	}
	return patterns.Scope{Market: market, Interval: interval, Start: start, End: end}, nil
}

// withApp abre la app, corre fn y la cierra.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := o.openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
