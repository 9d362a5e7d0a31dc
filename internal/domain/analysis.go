package domain

import "math"

const (
	// distributionCap limita la tabla de distribución; es un tope de presentación,
	// MaxObservedStreak conserva el máximo real.
	distributionCap = 5
	// quickConditionals es cuántas condicionales por lado se muestran como referencia rápida.
	quickConditionals = 3
	// recencyFraction y recencyMin definen la ventana reciente: el último 25%, mínimo 10.
	recencyFraction = 0.25
	recencyMin      = 10
)

// EdgeSnapshot es la efectividad de una secuencia respecto al lado esperado.
type EdgeSnapshot struct {
	N           int     `json:"n"`
	Wins        int     `json:"wins"`
	Efectividad float64 `json:"efectividad"`
}

// AnalysisResult es el resumen completo del historial de un patrón.
// Se construye una vez por llamada y no se modifica después.
type AnalysisResult struct {
	N            int      `json:"n"`
	Wins         int      `json:"wins"`
	ExpectedSide Side     `json:"expectedSide"`
	Efectividad  float64  `json:"efectividad"`
	CI95         WilsonCI `json:"ci95"`

	MaxStreakWin      int `json:"maxStreakV"`
	MaxStreakLoss     int `json:"maxStreakR"`
	MaxObservedStreak int `json:"maxObservedStreak"`

	CurrentStreakSide  *Side              `json:"currentStreakSide"`
	CurrentStreakLen   int                `json:"currentStreakLen"`
	CurrentConditional *StreakConditional `json:"currentConditional"`

	CondWin      []StreakConditional `json:"condV"`
	CondLoss     []StreakConditional `json:"condR"`
	Distribution []DistributionRow   `json:"distribution"`

	All              EdgeSnapshot `json:"all"`
	LastQuarter      EdgeSnapshot `json:"lastQuarter"`
	DeltaLastQuarter float64      `json:"deltaLastQuarter"`
}

// Snapshot cuenta cuántos resultados coinciden con el lado esperado.
func Snapshot(results []Side, expected Side) EdgeSnapshot {
	wins := 0
	for _, s := range results {
		if s == expected {
			wins++
		}
	}
	return EdgeSnapshot{
		N:           len(results),
		Wins:        wins,
		Efectividad: ratio(wins, len(results)),
	}
}

// Analyze calcula el AnalysisResult de una secuencia ordenada (más antigua primero).
// Es una función pura: no falla con ninguna entrada finita, incluida la vacía.
// Los lados inválidos se rechazan antes, en el borde (ParseSide / ParseSides).
func Analyze(results []Side, expected Side) AnalysisResult {
	n := len(results)
	all := Snapshot(results, expected)

	side, curLen := CurrentStreak(results)
	maxWin := MaxStreak(results, SideWin)
	maxLoss := MaxStreak(results, SideLoss)
	observed := max(maxWin, maxLoss)
	maxK := min(max(observed, 1), distributionCap)

	quick := min(quickConditionals, maxK)
	condWin := make([]StreakConditional, 0, quick)
	condLoss := make([]StreakConditional, 0, quick)
	for k := 1; k <= quick; k++ {
		condWin = append(condWin, ConditionalByExactStreak(results, SideWin, k))
		condLoss = append(condLoss, ConditionalByExactStreak(results, SideLoss, k))
	}

	var current *StreakConditional
	if side != nil && curLen > 0 {
		c := ConditionalByExactStreak(results, *side, curLen)
		current = &c
	}

	quarterSize := min(n, max(int(math.Ceil(float64(n)*recencyFraction)), recencyMin))
	lastQuarter := Snapshot(results[n-quarterSize:], expected)

	return AnalysisResult{
		N:                  n,
		Wins:               all.Wins,
		ExpectedSide:       expected,
		Efectividad:        all.Efectividad,
		CI95:               Wilson95(all.Wins, all.N),
		MaxStreakWin:       maxWin,
		MaxStreakLoss:      maxLoss,
		MaxObservedStreak:  observed,
		CurrentStreakSide:  side,
		CurrentStreakLen:   curLen,
		CurrentConditional: current,
		CondWin:            condWin,
		CondLoss:           condLoss,
		Distribution:       BuildDistribution(results, maxK),
		All:                all,
		LastQuarter:        lastQuarter,
		DeltaLastQuarter:   lastQuarter.Efectividad - all.Efectividad,
	}
}

// LowEvidence indica si la condicional de la racha actual tiene menos de minBase casos.
// La capa de presentación lo usa para etiquetar "poca evidencia".
func (r AnalysisResult) LowEvidence(minBase int) bool {
	return r.CurrentConditional == nil || r.CurrentConditional.Base < minBase
}
