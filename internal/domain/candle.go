package domain

import (
	"errors"
	"fmt"
	"time"
)

// Interval es la duración de cada vela del mercado up/down.
type Interval string

const (
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
)

// ErrInvalidInterval se devuelve para intervalos fuera de 5m|15m|1h|4h.
var ErrInvalidInterval = errors.New("interval must be one of 5m, 15m, 1h, 4h")

// ParseInterval valida un intervalo recibido desde fuera.
func ParseInterval(raw string) (Interval, error) {
	iv := Interval(raw)
	if iv.Duration() == 0 {
		return "", fmt.Errorf("%w: got %q", ErrInvalidInterval, raw)
	}
	return iv, nil
}

// Duration devuelve la duración de la vela, o 0 si el intervalo no es válido.
func (i Interval) Duration() time.Duration {
	switch i {
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval1h:
		return time.Hour
	case Interval4h:
		return 4 * time.Hour
	}
	return 0
}

// Candle es una vela resuelta de un mercado up/down de Polymarket.
// Cada mercado cerrado de la serie (ej. "btc-updown-5m-1760000000") es una vela.
type Candle struct {
	Market    string // ej. "btc-updown"
	Interval  Interval
	Slug      string
	MarketID  string
	EndTime   time.Time // UTC
	Color     Side
	CloseUp   *float64 // precio final del outcome Up, si Gamma lo informa
	CloseDown *float64
	Source    string // "gamma"
}

// SlugPrefix devuelve el prefijo de slug de la serie: "<market>-<interval>-".
func SlugPrefix(market string, interval Interval) string {
	return fmt.Sprintf("%s-%s-", market, interval)
}

// Series es una serie de velas cargada en orden ascendente de tiempo.
// EndTimes[i] corresponde a Colors[i]; Candles se llena solo cuando hace falta el detalle.
type Series struct {
	EndTimes []time.Time
	Colors   []Side
	Candles  []Candle
}

// Len devuelve la cantidad de velas de la serie.
func (s Series) Len() int { return len(s.Colors) }

// NewSeries construye una Series a partir de velas ya ordenadas.
// Ignora las velas cuyo color no es V ni R.
func NewSeries(candles []Candle) Series {
	s := Series{
		EndTimes: make([]time.Time, 0, len(candles)),
		Colors:   make([]Side, 0, len(candles)),
		Candles:  make([]Candle, 0, len(candles)),
	}
	for _, c := range candles {
		if !c.Color.Valid() {
			continue
		}
		s.EndTimes = append(s.EndTimes, c.EndTime)
		s.Colors = append(s.Colors, c.Color)
		s.Candles = append(s.Candles, c)
	}
	return s
}
