package domain

import "math"

// z95 es el cuantil normal bilateral al 95%.
const z95 = 1.959963984540054

// WilsonCI es un intervalo de confianza dentro de [0, 1].
type WilsonCI struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Wilson95 calcula el intervalo de Wilson al 95% para una proporción binomial.
// Con muestras chicas (<30) es bastante más preciso que la aproximación normal,
// sobre todo cerca de 0 y 1.
//
// Fórmula:
//
//	p      = successes / total
//	denom  = 1 + z²/total
//	center = (p + z²/(2·total)) / denom
//	margin = z·√((p(1-p) + z²/(4·total)) / total) / denom
//
// Devuelve {0, 0} si total <= 0.
func Wilson95(successes, total int) WilsonCI {
	if total <= 0 {
		return WilsonCI{}
	}
	n := float64(total)
	p := float64(successes) / n
	z2 := z95 * z95
	denom := 1 + z2/n
	center := (p + z2/(2*n)) / denom
	margin := z95 * math.Sqrt((p*(1-p)+z2/(4*n))/n) / denom
	return WilsonCI{
		Low:  math.Max(0, center-margin),
		High: math.Min(1, center+margin),
	}
}

// ratio divide protegiendo contra denominador cero.
func ratio(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den)
}
