package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/polypatron/internal/domain"
)

const sourceGamma = "gamma"

// mapGammaMarket convierte un mercado cerrado de Gamma en una vela.
// Devuelve false si no hay fecha de fin o si el resultado no se puede deducir
// (precios iguales, outcomes desconocidos o datos incompletos).
func mapGammaMarket(gm gammaMarket, market string, interval domain.Interval) (domain.Candle, bool) {
	end, ok := parseEndDate(gm)
	if !ok {
		return domain.Candle{}, false
	}

	up, down, ok := outcomePrices(gm.Outcomes, gm.OutcomePrices)
	if !ok {
		return domain.Candle{}, false
	}

	var color domain.Side
	switch {
	case up > down:
		color = domain.SideWin
	case up < down:
		color = domain.SideLoss
	default:
		return domain.Candle{}, false
	}

	return domain.Candle{
		Market:    market,
		Interval:  interval,
		Slug:      gm.Slug,
		MarketID:  gm.ID.String(),
		EndTime:   end,
		Color:     color,
		CloseUp:   &up,
		CloseDown: &down,
		Source:    sourceGamma,
	}, true
}

// outcomePrices devuelve el precio final de Up y Down.
// Acepta Up/Down y Yes/No; sin etiquetas reconocibles asume el orden [up, down].
func outcomePrices(rawOutcomes, rawPrices string) (up, down float64, ok bool) {
	var prices []string
	if err := json.Unmarshal([]byte(rawPrices), &prices); err != nil || len(prices) < 2 {
		return 0, 0, false
	}
	var outcomes []string
	_ = json.Unmarshal([]byte(rawOutcomes), &outcomes)

	upIdx, downIdx := 0, 1
	if len(outcomes) == len(prices) {
		upIdx, downIdx = -1, -1
		for i, o := range outcomes {
			switch strings.ToLower(strings.TrimSpace(o)) {
			case "up", "yes":
				upIdx = i
			case "down", "no":
				downIdx = i
			}
		}
		if upIdx < 0 || downIdx < 0 {
			return 0, 0, false
		}
	}

	up, err := strconv.ParseFloat(strings.TrimSpace(prices[upIdx]), 64)
	if err != nil {
		return 0, 0, false
	}
	down, err = strconv.ParseFloat(strings.TrimSpace(prices[downIdx]), 64)
	if err != nil {
		return 0, 0, false
	}
	return up, down, true
}

// parseEndDate interpreta endDate o, en su defecto, endDateIso.
func parseEndDate(gm gammaMarket) (time.Time, bool) {
	for _, raw := range []string{gm.EndDate, gm.EndDateISO} {
		if raw == "" {
			continue
		}
		// Polymarket usa varios formatos; intentamos los más comunes
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02T15:04:05.000Z",
			"2006-01-02T15:04:05Z",
			"2006-01-02 15:04:05",
		} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}
