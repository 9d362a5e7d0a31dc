package domain

import (
	"sort"
	"time"
)

// trendThreshold es la diferencia mínima de efectividad para hablar de tendencia.
const trendThreshold = 0.02

// Trend resume cómo cambia la efectividad de la ventana corta respecto a la larga.
type Trend string

const (
	TrendUp   Trend = "ascenso"
	TrendDown Trend = "descenso"
	TrendFlat Trend = "plano"
)

// Winner es el resultado de comparar dos patrones.
type Winner string

const (
	WinnerA   Winner = "A"
	WinnerB   Winner = "B"
	WinnerTie Winner = "empate"
)

// EdgeStats son los conteos de un patrón en una serie.
// Efectividad es nil si el patrón no apareció.
type EdgeStats struct {
	Efectividad *float64
	Muestras    int
	Verdes      int
	Rojas       int
	// seen guarda la hora de la última vela del patrón en cada aparición
	seen []time.Time
}

// Dominant devuelve el lado más frecuente después del patrón (V en empate).
func (e EdgeStats) Dominant() Side {
	if e.Verdes >= e.Rojas {
		return SideWin
	}
	return SideLoss
}

// Edge cuenta las velas que siguen al patrón y calcula la efectividad para side.
// endTimes es opcional y solo alimenta las métricas de tiempo.
func Edge(colors []Side, endTimes []time.Time, pattern Pattern, side Side) EdgeStats {
	var e EdgeStats
	useTimes := endTimes != nil && len(endTimes) == len(colors)
	for i := pattern.Len(); i < len(colors); i++ {
		if !pattern.matchesAt(colors, i) {
			continue
		}
		if colors[i] == SideWin {
			e.Verdes++
		} else {
			e.Rojas++
		}
		if useTimes {
			e.seen = append(e.seen, endTimes[i-1])
		}
	}
	e.Muestras = e.Verdes + e.Rojas
	if e.Muestras == 0 {
		return e
	}
	hits := e.Verdes
	if side == SideLoss {
		hits = e.Rojas
	}
	eff := ratio(hits, e.Muestras)
	e.Efectividad = &eff
	return e
}

// RangeMetrics es la efectividad de un patrón en un rango concreto.
type RangeMetrics struct {
	Patron         Pattern    `json:"patron"`
	Direccion      Side       `json:"direccion"`
	Inicio         time.Time  `json:"inicio"`
	Fin            time.Time  `json:"fin"`
	Efectividad    *float64   `json:"efectividad"`
	Muestras       int        `json:"muestras"`
	Verdes         int        `json:"verdes"`
	Rojas          int        `json:"rojas"`
	ApareceCadaSeg *int64     `json:"aparece_cada_seg"`
	UltimaVezUTC   *time.Time `json:"ultima_vez_utc"`
}

// MeasureRange calcula las métricas del patrón en la serie del rango [start, end].
// Si side es nil se usa la dirección dominante del propio rango.
func MeasureRange(series Series, pattern Pattern, side *Side, start, end time.Time) RangeMetrics {
	probe := Edge(series.Colors, series.EndTimes, pattern, SideWin)
	dir := probe.Dominant()
	if side != nil {
		dir = *side
	}
	e := probe
	if dir == SideLoss {
		e = Edge(series.Colors, series.EndTimes, pattern, SideLoss)
	}

	m := RangeMetrics{
		Patron:      pattern,
		Direccion:   dir,
		Inicio:      start,
		Fin:         end,
		Efectividad: e.Efectividad,
		Muestras:    e.Muestras,
		Verdes:      e.Verdes,
		Rojas:       e.Rojas,
	}
	if len(e.seen) > 0 {
		last := latest(e.seen)
		m.UltimaVezUTC = &last
		m.ApareceCadaSeg = MeanGapSeconds(e.seen)
	}
	return m
}

// WindowRow es una fila de la comparación por ventanas hacia atrás.
type WindowRow struct {
	Dias        int       `json:"dias"`
	Inicio      time.Time `json:"inicio"`
	Fin         time.Time `json:"fin"`
	Direccion   Side      `json:"direccion"`
	Efectividad *float64  `json:"efectividad"`
	Muestras    int       `json:"muestras"`
	Verdes      int       `json:"verdes"`
	Rojas       int       `json:"rojas"`
}

// WindowDays normaliza la lista de ventanas: positivas, sin duplicados, ascendente.
func WindowDays(days []int) []int {
	seen := make(map[int]bool, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if d <= 0 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

// NewWindowRow arma la fila de una ventana. Sin más velas que el largo del patrón
// la efectividad queda nil.
func NewWindowRow(days int, start, end time.Time, series Series, pattern Pattern, side Side) WindowRow {
	row := WindowRow{Dias: days, Inicio: start, Fin: end, Direccion: side}
	if series.Len() <= pattern.Len() {
		return row
	}
	e := Edge(series.Colors, nil, pattern, side)
	row.Efectividad = e.Efectividad
	row.Muestras = e.Muestras
	row.Verdes = e.Verdes
	row.Rojas = e.Rojas
	return row
}

// WindowTrend compara la ventana más corta con la más larga entre las que tienen datos.
func WindowTrend(rows []WindowRow) Trend {
	var short, long *WindowRow
	for i := range rows {
		r := &rows[i]
		if r.Efectividad == nil {
			continue
		}
		if short == nil || r.Dias < short.Dias {
			short = r
		}
		if long == nil || r.Dias > long.Dias {
			long = r
		}
	}
	if short == nil || long == nil || short == long {
		return TrendFlat
	}
	switch {
	case *short.Efectividad > *long.Efectividad+trendThreshold:
		return TrendUp
	case *short.Efectividad < *long.Efectividad-trendThreshold:
		return TrendDown
	}
	return TrendFlat
}

// DeltaEfectividad devuelve to - from, o nil si falta alguno.
func DeltaEfectividad(from, to *float64) *float64 {
	if from == nil || to == nil {
		return nil
	}
	d := *to - *from
	return &d
}

// PickWinner decide qué patrón tuvo mejor efectividad. Un lado con datos gana a uno sin datos.
func PickWinner(a, b *float64) Winner {
	switch {
	case a == nil && b == nil:
		return WinnerTie
	case b == nil:
		return WinnerA
	case a == nil:
		return WinnerB
	case *a > *b:
		return WinnerA
	case *b > *a:
		return WinnerB
	}
	return WinnerTie
}

// WindowComparison es la tabla de ventanas hacia atrás con su tendencia.
type WindowComparison struct {
	Patron    Pattern     `json:"patron"`
	Direccion Side        `json:"direccion"`
	Fin       time.Time   `json:"fin"`
	Filas     []WindowRow `json:"filas"`
	Tendencia Trend       `json:"tendencia"`
}

// RangeComparison son las métricas del mismo patrón en dos rangos. Los deltas son B - A.
type RangeComparison struct {
	Mercado          string       `json:"mercado"`
	Intervalo        Interval     `json:"intervalo"`
	Patron           Pattern      `json:"patron"`
	Direccion        Side         `json:"direccion"`
	A                RangeMetrics `json:"a"`
	B                RangeMetrics `json:"b"`
	DeltaEfectividad *float64     `json:"delta_efectividad"`
	DeltaMuestras    int          `json:"delta_muestras"`
}

// PatternComparison enfrenta dos patrones en un rango. Los deltas son A - B.
type PatternComparison struct {
	Mercado          string       `json:"mercado"`
	Intervalo        Interval     `json:"intervalo"`
	A                RangeMetrics `json:"a"`
	B                RangeMetrics `json:"b"`
	DeltaEfectividad *float64     `json:"delta_efectividad"`
	DeltaMuestras    int          `json:"delta_muestras"`
	Ganador          Winner       `json:"ganador"`
}
