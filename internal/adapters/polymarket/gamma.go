package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/alejandrodnm/polypatron/internal/ports"
)

const (
	gammaMarketsPath = "/markets"
	defaultPageSize  = 500
	defaultMaxPages  = 30
	gammaTimeLayout  = "2006-01-02T15:04:05Z"
)

var _ ports.CandleProvider = (*Client)(nil)

// FetchClosedCandles pagina GET /markets?closed=true ordenado por id descendente
// hasta recibir una página corta o agotar MaxPages. Se queda con los mercados cuyo slug
// empieza por el prefijo de la serie y cuyo resultado V/R se puede deducir.
// Si una página falla a mitad de camino devuelve lo acumulado junto con el error.
func (c *Client) FetchClosedCandles(ctx context.Context, q ports.CandleQuery) ([]domain.Candle, error) {
	prefix := q.SlugPrefix
	if prefix == "" {
		prefix = domain.SlugPrefix(q.Market, q.Interval)
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	maxPages := q.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	var (
		candles []domain.Candle
		seen    = make(map[string]struct{})
		scanned int
		skipped int
	)

	for page := 0; page < maxPages; page++ {
		var resp gammaMarketsResponse
		if err := c.get(ctx, c.marketsURL(q, pageSize, page*pageSize), &resp); err != nil {
			return candles, fmt.Errorf("gamma.FetchClosedCandles: page %d: %w", page, err)
		}
		scanned += len(resp)

		for _, gm := range resp {
			if !strings.HasPrefix(gm.Slug, prefix) {
				continue
			}
			if _, dup := seen[gm.Slug]; dup {
				continue
			}
			candle, ok := mapGammaMarket(gm, q.Market, q.Interval)
			if !ok {
				skipped++
				continue
			}
			if !q.EndMin.IsZero() && candle.EndTime.Before(q.EndMin) {
				continue
			}
			if !q.EndMax.IsZero() && candle.EndTime.After(q.EndMax) {
				continue
			}
			seen[gm.Slug] = struct{}{}
			candles = append(candles, candle)
		}

		if len(resp) < pageSize {
			break
		}
	}

	slog.Debug("gamma backfill page scan complete",
		"market", q.Market,
		"interval", q.Interval,
		"scanned", scanned,
		"candles", len(candles),
		"unresolved", skipped,
	)
	return candles, nil
}

// marketsURL arma la URL de una página de mercados cerrados.
func (c *Client) marketsURL(q ports.CandleQuery, limit, offset int) string {
	v := url.Values{}
	v.Set("closed", "true")
	v.Set("limit", strconv.Itoa(limit))
	v.Set("offset", strconv.Itoa(offset))
	v.Set("order", "id")
	v.Set("ascending", "false")
	if !q.EndMin.IsZero() {
		v.Set("end_date_min", q.EndMin.UTC().Format(gammaTimeLayout))
	}
	if !q.EndMax.IsZero() {
		v.Set("end_date_max", q.EndMax.UTC().Format(gammaTimeLayout))
	}
	return fmt.Sprintf("%s%s?%s", c.gammaBase, gammaMarketsPath, v.Encode())
}

// LatestClosed pide la última página corta de mercados cerrados de la serie
// con fin en las últimas horas indicadas. La usa la consulta de "última vela" sin base local.
func (c *Client) LatestClosed(ctx context.Context, market string, interval domain.Interval, lookback time.Duration) (*domain.Candle, error) {
	now := time.Now().UTC()
	candles, err := c.FetchClosedCandles(ctx, ports.CandleQuery{
		Market:   market,
		Interval: interval,
		EndMin:   now.Add(-lookback),
		EndMax:   now,
		PageSize: 100,
		MaxPages: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("gamma.LatestClosed: %w", err)
	}
	var latest *domain.Candle
	for i := range candles {
		if latest == nil || candles[i].EndTime.After(latest.EndTime) {
			latest = &candles[i]
		}
	}
	return latest, nil
}
