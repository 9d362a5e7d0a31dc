package domain

import "time"

// SimParams son los parámetros de la simulación "entrar siempre".
type SimParams struct {
	Pattern   Pattern
	Direction *Side // nil = V
	Bankroll  float64
	Stake     float64
	Payout    float64 // ganancia por unidad apostada, ej. 0.85
	Reinvest  bool
}

// SimTrade es una entrada simulada.
type SimTrade struct {
	FinTsUTC      time.Time `json:"fin_ts_utc"`
	Patron        Pattern   `json:"patron"`
	Direccion     Side      `json:"direccion"`
	Real          Side      `json:"real"`
	Gano          bool      `json:"gano"`
	PnL           float64   `json:"pnl"`
	BancaDespues  float64   `json:"banca_despues"`
	StakeAplicado float64   `json:"stake"`
}

// SimResult es el resultado agregado de la simulación.
type SimResult struct {
	RunID            string     `json:"run_id"`
	Banca0           float64    `json:"banca0"`
	BancaFin         float64    `json:"banca_fin"`
	PnLTotal         float64    `json:"pnl_total"`
	ROI              float64    `json:"roi"`
	MaxDrawdown      float64    `json:"max_drawdown"`
	MaxRachaPerdidas int        `json:"max_racha_perdidas"`
	MaxRachaGanadas  int        `json:"max_racha_ganadas"`
	Trades           []SimTrade `json:"trades"`
}

// SimulateAlwaysEnter entra en cada aparición del patrón apostando a la dirección dada.
//
// Ganar paga stake×payout; perder cuesta stake. Con Reinvest el stake escala con la banca
// (stake × banca / banca0), sin Reinvest es fijo. El drawdown se mide contra el pico de banca.
func SimulateAlwaysEnter(series Series, p SimParams) SimResult {
	dir := SideWin
	if p.Direction != nil {
		dir = *p.Direction
	}

	bank := p.Bankroll
	peak := p.Bankroll
	res := SimResult{Banca0: p.Bankroll, Trades: make([]SimTrade, 0)}
	winRun, lossRun := 0, 0

	for i := p.Pattern.Len(); i < series.Len(); i++ {
		if !p.Pattern.matchesAt(series.Colors, i) {
			continue
		}

		stake := p.Stake
		if p.Reinvest && p.Bankroll > 0 {
			stake = p.Stake * bank / p.Bankroll
		}

		got := series.Colors[i]
		won := got == dir
		var pnl float64
		if won {
			pnl = stake * p.Payout
			winRun++
			lossRun = 0
		} else {
			pnl = -stake
			lossRun++
			winRun = 0
		}
		bank += pnl

		peak = max(peak, bank)
		res.MaxDrawdown = max(res.MaxDrawdown, peak-bank)
		res.MaxRachaGanadas = max(res.MaxRachaGanadas, winRun)
		res.MaxRachaPerdidas = max(res.MaxRachaPerdidas, lossRun)

		res.Trades = append(res.Trades, SimTrade{
			FinTsUTC:      series.EndTimes[i],
			Patron:        p.Pattern,
			Direccion:     dir,
			Real:          got,
			Gano:          won,
			PnL:           pnl,
			BancaDespues:  bank,
			StakeAplicado: stake,
		})
	}

	res.BancaFin = bank
	res.PnLTotal = bank - p.Bankroll
	if p.Bankroll != 0 {
		res.ROI = res.PnLTotal / p.Bankroll
	}
	return res
}
