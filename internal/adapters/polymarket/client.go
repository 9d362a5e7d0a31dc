package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultGammaBase = "https://gamma-api.polymarket.com"

	// Gamma /markets: 300/10s documentado → 180/10s (60%) → 18/s
	defaultGammaRatePerSec = 18
	defaultGammaBurst      = 10

	defaultTimeout = 10 * time.Second
	maxRetries     = 3
	baseRetryWait  = 500 * time.Millisecond
	maxRetryAfter  = 30 * time.Second
)

// ClientConfig ajusta el cliente; los campos en cero usan los valores por defecto.
type ClientConfig struct {
	GammaBase     string
	RatePerSecond float64
	Timeout       time.Duration
}

// Client es el HTTP client de la API Gamma con rate limiting y retries.
type Client struct {
	http         *http.Client
	gammaBase    string
	gammaLimiter *rate.Limiter
	retryWait    time.Duration
}

// NewClient crea un Client. Si GammaBase está vacío usa la URL de producción.
func NewClient(cfg ClientConfig) *Client {
	if cfg.GammaBase == "" {
		cfg.GammaBase = defaultGammaBase
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = defaultGammaRatePerSec
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		http:         &http.Client{Timeout: cfg.Timeout},
		gammaBase:    cfg.GammaBase,
		gammaLimiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), defaultGammaBurst),
		retryWait:    baseRetryWait,
	}
}

// StatusError es una respuesta 4xx de Gamma que no vale la pena reintentar.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gamma status %d: %s", e.Code, e.Body)
}

// get hace un GET a Gamma con rate limiting y retries, y decodifica el JSON en out.
// Reintenta errores de transporte, 429 y 5xx con backoff exponencial.
func (c *Client) get(ctx context.Context, url string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.gammaLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil || attempt == maxRetries {
				return fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
			}
			c.sleep(ctx, c.backoff(attempt))
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfter(resp.Header.Get("Retry-After"), c.backoff(attempt))
			resp.Body.Close()
			slog.Warn("rate limited by gamma", "attempt", attempt+1, "wait", wait)
			c.sleep(ctx, wait)
			continue
		case resp.StatusCode >= 500:
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, c.backoff(attempt))
			continue
		case resp.StatusCode >= 400:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
			resp.Body.Close()
			return &StatusError{Code: resp.StatusCode, Body: string(body)}
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

func (c *Client) backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
}

// retryAfter interpreta Retry-After en segundos; si falta o no es válido usa def.
func retryAfter(header string, def time.Duration) time.Duration {
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return def
	}
	wait := time.Duration(secs) * time.Second
	if wait > maxRetryAfter {
		return maxRetryAfter
	}
	return wait
}

func (c *Client) sleep(ctx context.Context, wait time.Duration) {
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
