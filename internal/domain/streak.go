package domain

// StreakConditional describe qué pasó justo después de cada posición donde la racha
// de Side llevaba exactamente K elementos.
type StreakConditional struct {
	Side      Side    `json:"side"`
	K         int     `json:"k"`
	Base      int     `json:"base"`
	NextWin   int     `json:"nextV"`
	NextLoss  int     `json:"nextR"`
	PNextWin  float64 `json:"pNextV"`
	PNextLoss float64 `json:"pNextR"`
}

// DistributionRow agrega ambos lados para una longitud de racha K.
type DistributionRow struct {
	K          int     `json:"k"`
	Casos      int     `json:"casos"`
	Rupturas   int     `json:"rupturas"`
	PctRuptura float64 `json:"pctRuptura"`
}

// CurrentStreak cuenta hacia atrás desde el último resultado mientras el lado se repita.
// Con una secuencia vacía devuelve (nil, 0).
func CurrentStreak(results []Side) (*Side, int) {
	if len(results) == 0 {
		return nil, 0
	}
	side := results[len(results)-1]
	n := 1
	for i := len(results) - 2; i >= 0; i-- {
		if results[i] != side {
			break
		}
		n++
	}
	return &side, n
}

// MaxStreak devuelve la racha contigua más larga de target.
func MaxStreak(results []Side, target Side) int {
	best, run := 0, 0
	for _, s := range results {
		if s != target {
			run = 0
			continue
		}
		run++
		if run > best {
			best = run
		}
	}
	return best
}

// ConditionalByExactStreak mide "dada una racha de side que ahora mismo mide k, qué viene después".
//
// Para cada i < n-1 con results[i] == side se calcula la longitud de la racha en curso que
// termina en i (no la longitud final de esa racha). Una racha máxima de longitud L aporta
// entonces una observación a cada k en 1..L. El último índice no cuenta: no tiene siguiente.
// Un solo recorrido con contador: el costo es lineal en n.
func ConditionalByExactStreak(results []Side, side Side, k int) StreakConditional {
	c := StreakConditional{Side: side, K: k}
	run := 0
	for i := 0; i < len(results)-1; i++ {
		if results[i] != side {
			run = 0
			continue
		}
		run++
		if run != k {
			continue
		}
		c.Base++
		if results[i+1] == SideWin {
			c.NextWin++
		} else {
			c.NextLoss++
		}
	}
	c.PNextWin = ratio(c.NextWin, c.Base)
	c.PNextLoss = ratio(c.NextLoss, c.Base)
	return c
}

// BuildDistribution arma una fila por k en 1..maxK. Una ruptura es que el siguiente
// resultado cambie de lado respecto a la racha condicionada.
func BuildDistribution(results []Side, maxK int) []DistributionRow {
	rows := make([]DistributionRow, 0, max(maxK, 0))
	for k := 1; k <= maxK; k++ {
		win := ConditionalByExactStreak(results, SideWin, k)
		loss := ConditionalByExactStreak(results, SideLoss, k)
		casos := win.Base + loss.Base
		rupturas := win.NextLoss + loss.NextWin
		rows = append(rows, DistributionRow{
			K:          k,
			Casos:      casos,
			Rupturas:   rupturas,
			PctRuptura: ratio(rupturas, casos),
		})
	}
	return rows
}
