package patterns

import (
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/alejandrodnm/polypatron/internal/ports"
)

var (
	// ErrInsufficientData indica que la serie no alcanza para la operación pedida.
	ErrInsufficientData = errors.New("not enough candles in range")
	// ErrInvalidRange indica un rango con inicio posterior al fin.
	ErrInvalidRange = errors.New("range start is after range end")
	// ErrOffline indica que la ingesta desde Gamma está deshabilitada.
	ErrOffline = errors.New("gamma backfill is disabled")
)

const (
	defaultMaxRankRows     = 500
	defaultLowEvidenceBase = 10
	defaultWindowWorkers   = 4
	defaultIngestBlocks    = 144 // 12h de velas de 5m
)

// BackfillConfig controla la ingesta desde Gamma antes de cada consulta.
type BackfillConfig struct {
	Enabled        bool
	PageSize       int
	MaxPages       int
	WindowMaxPages int    // páginas para la comparación por ventanas (rangos largos)
	SlugPrefix     string // vacío = "<market>-<interval>-"
}

// Config contiene la configuración del servicio de patrones.
type Config struct {
	Backfill        BackfillConfig
	AnalysisWorkers int // goroutines para AnalyzeBatch (0 = NumCPU*2)
	WindowWorkers   int // ventanas cargadas en paralelo
	MaxRankRows     int
	LowEvidenceBase int // base mínima para no marcar "poca evidencia"
}

// DefaultConfig devuelve la configuración usada cuando no hay archivo.
func DefaultConfig() Config {
	return Config{
		Backfill: BackfillConfig{
			Enabled:        true,
			PageSize:       500,
			MaxPages:       30,
			WindowMaxPages: 60,
		},
		WindowWorkers:   defaultWindowWorkers,
		MaxRankRows:     defaultMaxRankRows,
		LowEvidenceBase: defaultLowEvidenceBase,
	}
}

// Scope es la serie y el rango temporal sobre el que opera una consulta.
type Scope struct {
	Market   string
	Interval domain.Interval
	Start    time.Time
	End      time.Time
}

func (s Scope) validate() error {
	if !s.Start.IsZero() && !s.End.IsZero() && s.Start.After(s.End) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidRange,
			s.Start.UTC().Format(time.RFC3339), s.End.UTC().Format(time.RFC3339))
	}
	return nil
}

// Service orquesta ingesta, almacenamiento, cache y el motor de análisis.
type Service struct {
	cfg      Config
	provider ports.CandleProvider
	storage  ports.CandleStorage
	cache    ports.HistoryCache
	now      func() time.Time
}

// New crea un Service con las dependencias inyectadas.
// provider puede ser nil (modo offline) y cache puede ser nil (sin cache).
func New(cfg Config, provider ports.CandleProvider, storage ports.CandleStorage, cache ports.HistoryCache) *Service {
	if cfg.MaxRankRows <= 0 {
		cfg.MaxRankRows = defaultMaxRankRows
	}
	if cfg.LowEvidenceBase <= 0 {
		cfg.LowEvidenceBase = defaultLowEvidenceBase
	}
	if cfg.WindowWorkers <= 0 {
		cfg.WindowWorkers = defaultWindowWorkers
	}
	return &Service{
		cfg:      cfg,
		provider: provider,
		storage:  storage,
		cache:    cache,
		now:      time.Now,
	}
}

// Offline indica si las consultas trabajan solo con lo ya guardado.
func (s *Service) Offline() bool {
	return s.provider == nil || !s.cfg.Backfill.Enabled
}
