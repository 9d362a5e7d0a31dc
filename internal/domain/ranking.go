package domain

import (
	"sort"
	"time"
)

// RankParams controla el ranking de patrones.
type RankParams struct {
	MinLen     int
	MaxLen     int
	MinSamples int
	// Alpha es el suavizado de Laplace; 0 = frecuencia cruda.
	Alpha float64
	// Now es la referencia para DesdeUltimaSeg. Zero = sin métricas relativas.
	Now time.Time
}

// PatternRow es una fila del ranking: el patrón y su dirección dominante.
type PatternRow struct {
	Patron         Pattern    `json:"patron"`
	Direccion      Side       `json:"direccion"`
	Efectividad    float64    `json:"efectividad"`
	Muestras       int        `json:"muestras"`
	Verdes         int        `json:"verdes"`
	Rojas          int        `json:"rojas"`
	UltimaVezUTC   *time.Time `json:"ultima_vez_utc"`
	ApareceCadaSeg *int64     `json:"aparece_cada_seg"`
	DesdeUltimaSeg *int64     `json:"desde_ultima_seg"`
}

// patternStats acumula los conteos de un patrón durante el recorrido.
type patternStats struct {
	verdes int
	rojas  int
	// timestamps de la última vela del patrón en cada aparición
	seen []time.Time
}

// RankPatterns cuenta todos los patrones de longitud MinLen..MaxLen y su siguiente vela.
//
// La dirección de cada patrón es la dominante (V si pV >= pR). Con Alpha > 0:
//
//	pV = (verdes + α) / (muestras + 2α)
//
// endTimes es opcional; si su largo no coincide con colors no se calculan métricas de tiempo.
// El resultado se ordena por (efectividad, muestras) descendente.
func RankPatterns(colors []Side, endTimes []time.Time, p RankParams) []PatternRow {
	lmin := max(minPatternLen, p.MinLen)
	lmax := max(lmin, p.MaxLen)
	useTimes := endTimes != nil && len(endTimes) == len(colors)

	stats := make(map[Pattern]*patternStats)
	order := make([]Pattern, 0)
	for l := lmin; l <= lmax; l++ {
		for i := l; i < len(colors); i++ {
			pat := joinSides(colors[i-l : i])
			s, ok := stats[pat]
			if !ok {
				s = &patternStats{}
				stats[pat] = s
				order = append(order, pat)
			}
			if colors[i] == SideWin {
				s.verdes++
			} else {
				s.rojas++
			}
			if useTimes {
				s.seen = append(s.seen, endTimes[i-1])
			}
		}
	}

	rows := make([]PatternRow, 0, len(stats))
	for _, pat := range order {
		s := stats[pat]
		total := s.verdes + s.rojas
		if total < p.MinSamples {
			continue
		}

		pv, pr := smoothed(s.verdes, total, p.Alpha), smoothed(s.rojas, total, p.Alpha)
		row := PatternRow{
			Patron:      pat,
			Direccion:   SideWin,
			Efectividad: pv,
			Muestras:    total,
			Verdes:      s.verdes,
			Rojas:       s.rojas,
		}
		if pv < pr {
			row.Direccion = SideLoss
			row.Efectividad = pr
		}

		if useTimes && len(s.seen) > 0 {
			last := latest(s.seen)
			row.UltimaVezUTC = &last
			row.ApareceCadaSeg = MeanGapSeconds(s.seen)
			if !p.Now.IsZero() {
				since := int64(p.Now.Sub(last) / time.Second)
				row.DesdeUltimaSeg = &since
			}
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Efectividad != rows[j].Efectividad {
			return rows[i].Efectividad > rows[j].Efectividad
		}
		return rows[i].Muestras > rows[j].Muestras
	})
	return rows
}

// smoothed devuelve la proporción con suavizado de Laplace.
func smoothed(count, total int, alpha float64) float64 {
	if alpha > 0 {
		return (float64(count) + alpha) / (float64(total) + 2*alpha)
	}
	return ratio(count, total)
}

// MeanGapSeconds devuelve el promedio en segundos enteros entre apariciones consecutivas.
// Devuelve nil con menos de dos apariciones.
func MeanGapSeconds(ts []time.Time) *int64 {
	if len(ts) < 2 {
		return nil
	}
	sorted := make([]time.Time, len(ts))
	copy(sorted, ts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var sum int64
	for i := 1; i < len(sorted); i++ {
		sum += int64(sorted[i].Sub(sorted[i-1]) / time.Second)
	}
	avg := sum / int64(len(sorted)-1)
	return &avg
}

func latest(ts []time.Time) time.Time {
	var out time.Time
	for _, t := range ts {
		if t.After(out) {
			out = t
		}
	}
	return out.UTC()
}
