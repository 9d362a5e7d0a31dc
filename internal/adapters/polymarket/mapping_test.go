package polymarket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomePrices(t *testing.T) {
	tests := []struct {
		name     string
		outcomes string
		prices   string
		up, down float64
		ok       bool
	}{
		{"UpDown", `["Up","Down"]`, `["1","0"]`, 1, 0, true},
		{"Reversed", `["Down","Up"]`, `["0.9","0.1"]`, 0.1, 0.9, true},
		{"YesNo", `["Yes","No"]`, `["0.3","0.7"]`, 0.3, 0.7, true},
		{"NoLabels", ``, `["0.6","0.4"]`, 0.6, 0.4, true},
		{"UnknownLabels", `["Alice","Bob"]`, `["1","0"]`, 0, 0, false},
		{"ShortPrices", `["Up","Down"]`, `["1"]`, 0, 0, false},
		{"BadNumber", `["Up","Down"]`, `["x","0"]`, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, down, ok := outcomePrices(tt.outcomes, tt.prices)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.up, up, 1e-12)
				assert.InDelta(t, tt.down, down, 1e-12)
			}
		})
	}
}

func TestMapGammaMarket(t *testing.T) {
	gm := gammaMarket{
		ID:            json.Number("77"),
		Slug:          "sol-updown-1h-1760000000",
		EndDateISO:    "2025-10-09T08:53:20.000Z",
		Outcomes:      `["Up","Down"]`,
		OutcomePrices: `["0","1"]`,
	}
	c, ok := mapGammaMarket(gm, "sol-updown", domain.Interval1h)
	require.True(t, ok)
	assert.Equal(t, domain.SideLoss, c.Color)
	assert.Equal(t, "77", c.MarketID)
	assert.Equal(t, time.Date(2025, 10, 9, 8, 53, 20, 0, time.UTC), c.EndTime)
	assert.Equal(t, domain.Interval1h, c.Interval)
}

func TestMapGammaMarket_Unresolved(t *testing.T) {
	_, ok := mapGammaMarket(gammaMarket{
		Slug: "x", EndDate: "2025-10-09T08:53:20Z", OutcomePrices: `["0.5","0.5"]`,
	}, "x", domain.Interval5m)
	assert.False(t, ok, "precios iguales no tienen color")

	_, ok = mapGammaMarket(gammaMarket{Slug: "x", OutcomePrices: `["1","0"]`}, "x", domain.Interval5m)
	assert.False(t, ok, "sin fecha de fin")
}

func TestRetryAfter(t *testing.T) {
	def := 500 * time.Millisecond
	assert.Equal(t, def, retryAfter("", def))
	assert.Equal(t, def, retryAfter("Wed, 21 Oct 2015 07:28:00 GMT", def))
	assert.Equal(t, def, retryAfter("0", def))
	assert.Equal(t, 2*time.Second, retryAfter("2", def))
	assert.Equal(t, maxRetryAfter, retryAfter("3600", def))
}
