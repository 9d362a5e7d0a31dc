package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// minPatternLen es la longitud mínima de un patrón consultable.
const minPatternLen = 2

// ErrInvalidPattern se devuelve para patrones con caracteres distintos de V/R o demasiado cortos.
var ErrInvalidPattern = errors.New("pattern must use only V/R with length >= 2")

// Pattern es una secuencia de colores consecutivos, ej. "VVR".
type Pattern string

// ParsePattern valida un patrón recibido desde fuera.
func ParsePattern(raw string) (Pattern, error) {
	p := strings.ToUpper(strings.TrimSpace(raw))
	if len(p) < minPatternLen {
		return "", fmt.Errorf("%w: got %q", ErrInvalidPattern, raw)
	}
	for _, r := range p {
		if !Side(string(r)).Valid() {
			return "", fmt.Errorf("%w: got %q", ErrInvalidPattern, raw)
		}
	}
	return Pattern(p), nil
}

// Len devuelve la cantidad de velas del patrón.
func (p Pattern) Len() int { return len(p) }

// matchesAt devuelve true si colors[i-len(p):i] coincide con el patrón.
func (p Pattern) matchesAt(colors []Side, i int) bool {
	l := len(p)
	if i < l || i > len(colors) {
		return false
	}
	for j := 0; j < l; j++ {
		if colors[i-l+j] != Side(p[j:j+1]) {
			return false
		}
	}
	return true
}

// joinSides concatena una ventana de colores en un patrón.
func joinSides(colors []Side) Pattern {
	var sb strings.Builder
	sb.Grow(len(colors))
	for _, c := range colors {
		sb.WriteString(string(c))
	}
	return Pattern(sb.String())
}

// Occurrence es una aparición del patrón: la vela que vino inmediatamente después.
type Occurrence struct {
	Fecha              string    `json:"fecha"` // YYYY-MM-DD (UTC)
	Hora               string    `json:"hora"`  // HH:MM:SS (UTC)
	DireccionResultado Side      `json:"direccion_resultado"`
	MercadoSlug        *string   `json:"mercado_slug,omitempty"`
	MercadoID          *string   `json:"mercado_id,omitempty"`
	EndTime            time.Time `json:"fin_ts_utc"`
}

// FindOccurrences recorre la serie y devuelve cada vela precedida por el patrón completo.
func FindOccurrences(series Series, pattern Pattern) []Occurrence {
	out := make([]Occurrence, 0)
	for i := pattern.Len(); i < series.Len(); i++ {
		if !pattern.matchesAt(series.Colors, i) {
			continue
		}
		ts := series.EndTimes[i].UTC()
		occ := Occurrence{
			Fecha:              ts.Format("2006-01-02"),
			Hora:               ts.Format("15:04:05"),
			DireccionResultado: series.Colors[i],
			EndTime:            ts,
		}
		if i < len(series.Candles) {
			c := series.Candles[i]
			if c.Slug != "" {
				slug := c.Slug
				occ.MercadoSlug = &slug
			}
			if c.MarketID != "" {
				id := c.MarketID
				occ.MercadoID = &id
			}
		}
		out = append(out, occ)
	}
	return out
}

// Results extrae la secuencia de resultados de las ocurrencias, en el mismo orden.
func Results(occs []Occurrence) []Side {
	out := make([]Side, len(occs))
	for i, o := range occs {
		out[i] = o.DireccionResultado
	}
	return out
}

// PatternHistory es el historial de ocurrencias de un patrón en un rango.
type PatternHistory struct {
	Patron           Pattern      `json:"patron"`
	Direccion        Side         `json:"direccion"`
	Mercado          string       `json:"mercado"`
	Intervalo        Interval     `json:"intervalo"`
	TotalMuestras    int          `json:"total_muestras"`
	RangoFechaInicio *time.Time   `json:"rango_fecha_inicio"`
	RangoFechaFin    *time.Time   `json:"rango_fecha_fin"`
	Ocurrencias      []Occurrence `json:"ocurrencias"`
}

// Clone devuelve una copia que no comparte ocurrencias ni punteros con h.
func (h PatternHistory) Clone() PatternHistory {
	out := h
	out.RangoFechaInicio = cloneTime(h.RangoFechaInicio)
	out.RangoFechaFin = cloneTime(h.RangoFechaFin)
	if h.Ocurrencias != nil {
		out.Ocurrencias = make([]Occurrence, len(h.Ocurrencias))
		for i, o := range h.Ocurrencias {
			o.MercadoSlug = cloneString(o.MercadoSlug)
			o.MercadoID = cloneString(o.MercadoID)
			out.Ocurrencias[i] = o
		}
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// NewPatternHistory arma el historial y calcula el rango real de fechas de las ocurrencias.
func NewPatternHistory(market string, interval Interval, pattern Pattern, side Side, occs []Occurrence) PatternHistory {
	h := PatternHistory{
		Patron:        pattern,
		Direccion:     side,
		Mercado:       market,
		Intervalo:     interval,
		TotalMuestras: len(occs),
		Ocurrencias:   occs,
	}
	for _, o := range occs {
		ts := o.EndTime
		if h.RangoFechaInicio == nil || ts.Before(*h.RangoFechaInicio) {
			h.RangoFechaInicio = &ts
		}
		if h.RangoFechaFin == nil || ts.After(*h.RangoFechaFin) {
			h.RangoFechaFin = &ts
		}
	}
	return h
}

// HistoryKey identifica una consulta de historial para cachearla fuera del motor de análisis.
type HistoryKey struct {
	Market   string
	Interval Interval
	Pattern  Pattern
	Side     Side
	Start    time.Time
	End      time.Time
}

// String devuelve una clave estable, apta para Redis.
func (k HistoryKey) String() string {
	return strings.Join([]string{
		k.Market,
		string(k.Interval),
		string(k.Pattern),
		string(k.Side),
		k.Start.UTC().Format(time.RFC3339),
		k.End.UTC().Format(time.RFC3339),
	}, "|")
}
