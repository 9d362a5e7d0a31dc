package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/alejandrodnm/polypatron/internal/ports"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "polypatron:history:"

var _ ports.HistoryCache = (*Redis)(nil)

// RedisConfig son los parámetros de conexión de la cache compartida.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	TTL      time.Duration
}

// Redis guarda historiales serializados en JSON, compartidos entre procesos.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis conecta y verifica con un PING. Si Redis no responde devuelve error
// y el llamador decide si cae a la cache en memoria.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache.NewRedis: ping %s: %w", cfg.Addr, err)
	}

	slog.Info("redis history cache connected", "addr", cfg.Addr, "ttl", cfg.TTL)
	return &Redis{client: client, ttl: cfg.TTL}, nil
}

// Get lee el historial; una clave inexistente es un miss, no un error.
func (r *Redis) Get(ctx context.Context, key domain.HistoryKey) (domain.PatternHistory, bool, error) {
	raw, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PatternHistory{}, false, nil
	}
	if err != nil {
		return domain.PatternHistory{}, false, fmt.Errorf("cache.Redis.Get: %w", err)
	}

	var h domain.PatternHistory
	if err := json.Unmarshal(raw, &h); err != nil {
		return domain.PatternHistory{}, false, fmt.Errorf("cache.Redis.Get: decode: %w", err)
	}
	return h, true, nil
}

// Set guarda el historial con el TTL configurado (0 = sin vencimiento).
func (r *Redis) Set(ctx context.Context, key domain.HistoryKey, h domain.PatternHistory) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("cache.Redis.Set: encode: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache.Redis.Set: %w", err)
	}
	return nil
}

// Close libera el pool de conexiones.
func (r *Redis) Close() error {
	return r.client.Close()
}

func redisKey(key domain.HistoryKey) string {
	return keyPrefix + key.String()
}
