package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de polypatron.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Cache    CacheConfig    `yaml:"cache"`
	Backfill BackfillConfig `yaml:"backfill"`
	Patterns PatternsConfig `yaml:"patterns"`
	Display  DisplayConfig  `yaml:"display"`
	Watch    WatchConfig    `yaml:"watch"`
}

// APIConfig contiene el acceso a la API Gamma.
type APIConfig struct {
	GammaBase      string  `yaml:"gamma_base"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// StorageConfig controla dónde se persisten las velas.
type StorageConfig struct {
	DSN           string `yaml:"dsn"`            // ruta al archivo SQLite, o ":memory:"
	RetentionDays int    `yaml:"retention_days"` // 0 = conservar todo
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // auto | text | json
	File   string `yaml:"file"`   // vacío = solo stdout
	// Rotación del archivo de log
	MaxSizeMB  int `yaml:"max_size_mb"`
	MaxBackups int `yaml:"max_backups"`
	MaxAgeDays int `yaml:"max_age_days"`
}

// ServerConfig controla la API HTTP.
type ServerConfig struct {
	Addr                   string   `yaml:"addr"`
	CORSOrigins            []string `yaml:"cors_origins"`
	ShutdownTimeoutSeconds int      `yaml:"shutdown_timeout_seconds"`
}

// CacheConfig controla la cache de historiales.
type CacheConfig struct {
	Backend    string      `yaml:"backend"` // memory | redis | none
	TTLSeconds int         `yaml:"ttl_seconds"`
	MaxEntries int         `yaml:"max_entries"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig son los datos de conexión cuando backend = redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// BackfillConfig controla la ingesta desde Gamma antes de cada consulta.
type BackfillConfig struct {
	Enabled        *bool  `yaml:"enabled"` // nil = true
	PageSize       int    `yaml:"page_size"`
	MaxPages       int    `yaml:"max_pages"`
	WindowMaxPages int    `yaml:"window_max_pages"`
	SlugPrefix     string `yaml:"slug_prefix"`
}

// PatternsConfig son los valores por defecto de las consultas.
type PatternsConfig struct {
	DefaultMarket   string `yaml:"default_market"`
	DefaultInterval string `yaml:"default_interval"`
	LookbackHours   int    `yaml:"lookback_hours"` // rango cuando no se indica inicio
	AnalysisWorkers int    `yaml:"analysis_workers"`
	WindowWorkers   int    `yaml:"window_workers"`
	MaxRankRows     int    `yaml:"max_rank_rows"`
	LowEvidenceBase int    `yaml:"low_evidence_base"`
}

// DisplayConfig controla la salida de consola.
type DisplayConfig struct {
	Timezone string `yaml:"timezone"` // nombre IANA, ej. "America/Argentina/Buenos_Aires"
}

// WatchConfig controla la ingesta periódica de las últimas velas.
type WatchConfig struct {
	EverySeconds int      `yaml:"every_seconds"`
	Blocks       int      `yaml:"blocks"` // intervalos hacia atrás en cada ciclo
	Series       []string `yaml:"series"` // "mercado:intervalo", vacío = serie por defecto
	Workers      int      `yaml:"workers"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Si el archivo YAML no existe se usan los valores por defecto.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// sin archivo: defaults + env
	case err != nil:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Default devuelve la configuración por defecto, sin archivo ni entorno.
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

// BackfillEnabled indica si las consultas hacen backfill desde Gamma.
func (c *Config) BackfillEnabled() bool {
	return c.Backfill.Enabled == nil || *c.Backfill.Enabled
}

// CacheTTL devuelve el TTL de la cache como time.Duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// Lookback devuelve el rango por defecto de las consultas.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.Patterns.LookbackHours) * time.Hour
}

// WatchEvery devuelve el período entre ciclos de ingesta.
func (c *Config) WatchEvery() time.Duration {
	return time.Duration(c.Watch.EverySeconds) * time.Second
}

// Retention devuelve la retención de velas (0 = sin límite).
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionDays) * 24 * time.Hour
}

// Location devuelve la zona horaria de display.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return nil, fmt.Errorf("display timezone %q: %w", c.Display.Timezone, err)
	}
	return loc, nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("GAMMA_BASE"); v != "" {
		cfg.API.GammaBase = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
		cfg.Cache.Backend = "redis"
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.RatePerSecond <= 0 {
		cfg.API.RatePerSecond = 18 // 60% del límite documentado de /markets
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 10
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "polypatron.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "auto"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 50
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Log.MaxAgeDays <= 0 {
		cfg.Log.MaxAgeDays = 30
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Server.ShutdownTimeoutSeconds <= 0 {
		cfg.Server.ShutdownTimeoutSeconds = 10
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTLSeconds <= 0 {
		cfg.Cache.TTLSeconds = 300
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = 256
	}
	if cfg.Cache.Redis.Addr == "" {
		cfg.Cache.Redis.Addr = "localhost:6379"
	}
	if cfg.Cache.Redis.PoolSize <= 0 {
		cfg.Cache.Redis.PoolSize = 10
	}
	if cfg.Backfill.PageSize <= 0 {
		cfg.Backfill.PageSize = 500
	}
	if cfg.Backfill.MaxPages <= 0 {
		cfg.Backfill.MaxPages = 30
	}
	if cfg.Backfill.WindowMaxPages <= 0 {
		cfg.Backfill.WindowMaxPages = 60
	}
	if cfg.Patterns.DefaultMarket == "" {
		cfg.Patterns.DefaultMarket = "btc-updown"
	}
	if cfg.Patterns.DefaultInterval == "" {
		cfg.Patterns.DefaultInterval = "5m"
	}
	if cfg.Patterns.LookbackHours <= 0 {
		cfg.Patterns.LookbackHours = 24
	}
	if cfg.Patterns.WindowWorkers <= 0 {
		cfg.Patterns.WindowWorkers = 4
	}
	if cfg.Patterns.MaxRankRows <= 0 {
		cfg.Patterns.MaxRankRows = 500
	}
	if cfg.Patterns.LowEvidenceBase <= 0 {
		cfg.Patterns.LowEvidenceBase = 10
	}
	if cfg.Watch.EverySeconds <= 0 {
		cfg.Watch.EverySeconds = 300
	}
	if cfg.Watch.Blocks <= 0 {
		cfg.Watch.Blocks = 144
	}
	if len(cfg.Watch.Series) == 0 {
		cfg.Watch.Series = []string{cfg.Patterns.DefaultMarket + ":" + cfg.Patterns.DefaultInterval}
	}
	if cfg.Watch.Workers <= 0 {
		cfg.Watch.Workers = 2
	}
	if cfg.Display.Timezone == "" {
		cfg.Display.Timezone = "UTC"
	}
}
