package notify

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/olekukonko/tablewriter"
)

const timeLayout = "2006-01-02 15:04"

// Console imprime los resultados de las consultas como tablas.
// Las fechas se muestran en la zona horaria configurada.
type Console struct {
	out       io.Writer
	loc       *time.Location
	maxTrades int
}

// NewConsole crea un Console que escribe a stdout. loc nil = UTC.
func NewConsole(loc *time.Location) *Console {
	return NewConsoleWriter(os.Stdout, loc)
}

// NewConsoleWriter crea un Console sobre cualquier writer (tests, archivos).
func NewConsoleWriter(w io.Writer, loc *time.Location) *Console {
	if loc == nil {
		loc = time.UTC
	}
	return &Console{out: w, loc: loc, maxTrades: 20}
}

// PrintJSON imprime v como JSON indentado.
func (c *Console) PrintJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("notify.PrintJSON: %w", err)
	}
	return nil
}

// PrintAnalysis imprime el resumen del motor: efectividad, rachas, condicionales y distribución.
func (c *Console) PrintAnalysis(res domain.AnalysisResult, lowEvidence bool) {
	if res.N == 0 {
		fmt.Fprintln(c.out, "No results to analyze")
		return
	}

	fmt.Fprintf(c.out, "\n=== ANALYSIS (expected %s) ===\n", res.ExpectedSide)
	fmt.Fprintf(c.out, "  Samples:      %d (%d wins)\n", res.N, res.Wins)
	fmt.Fprintf(c.out, "  Efectividad:  %s  IC95 [%s, %s]\n",
		pct(res.Efectividad), pct(res.CI95.Low), pct(res.CI95.High))
	fmt.Fprintf(c.out, "  Last quarter: %s over %d (delta %+.1fpp)\n",
		pct(res.LastQuarter.Efectividad), res.LastQuarter.N, res.DeltaLastQuarter*100)
	fmt.Fprintf(c.out, "  Max streak:   V=%d R=%d\n", res.MaxStreakWin, res.MaxStreakLoss)

	if res.CurrentStreakSide != nil {
		fmt.Fprintf(c.out, "  Current:      %s x%d", *res.CurrentStreakSide, res.CurrentStreakLen)
		if cc := res.CurrentConditional; cc != nil {
			fmt.Fprintf(c.out, "  → next V %s / R %s (base %d)", pct(cc.PNextWin), pct(cc.PNextLoss), cc.Base)
		}
		fmt.Fprintln(c.out)
	}
	if lowEvidence {
		fmt.Fprintln(c.out, "  ⚠ poca evidencia: the current streak has too few past cases")
	}

	if len(res.CondWin)+len(res.CondLoss) > 0 {
		table := tablewriter.NewWriter(c.out)
		table.Header("Streak", "Base", "Next V", "Next R", "P(V)", "P(R)")
		for _, rows := range [][]domain.StreakConditional{res.CondWin, res.CondLoss} {
			for _, r := range rows {
				table.Append(
					fmt.Sprintf("%s x%d", r.Side, r.K),
					fmt.Sprintf("%d", r.Base),
					fmt.Sprintf("%d", r.NextWin),
					fmt.Sprintf("%d", r.NextLoss),
					pct(r.PNextWin),
					pct(r.PNextLoss),
				)
			}
		}
		table.Render()
	}

	if len(res.Distribution) > 0 {
		table := tablewriter.NewWriter(c.out)
		table.Header("K", "Casos", "Rupturas", "% Ruptura")
		for _, d := range res.Distribution {
			table.Append(
				fmt.Sprintf("%d", d.K),
				fmt.Sprintf("%d", d.Casos),
				fmt.Sprintf("%d", d.Rupturas),
				pct(d.PctRuptura),
			)
		}
		table.Render()
	}
	fmt.Fprintln(c.out)
}

// AnalysisSummary es una fila del resumen de varios análisis.
type AnalysisSummary struct {
	Label       string
	Result      domain.AnalysisResult
	LowEvidence bool
	Err         error
}

// PrintAnalysisSummary imprime una fila por análisis, para lotes de patrones.
func (c *Console) PrintAnalysisSummary(items []AnalysisSummary) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Pattern", "N", "Efectividad", "IC95", "Last 25%", "Streak", "Evidence")
	for _, it := range items {
		if it.Err != nil {
			table.Append(it.Label, "-", "-", "-", "-", "-", "error: "+it.Err.Error())
			continue
		}
		r := it.Result
		streak := "-"
		if r.CurrentStreakSide != nil {
			streak = fmt.Sprintf("%s x%d", *r.CurrentStreakSide, r.CurrentStreakLen)
		}
		evidence := "ok"
		if it.LowEvidence {
			evidence = "poca"
		}
		table.Append(
			it.Label,
			fmt.Sprintf("%d", r.N),
			pct(r.Efectividad),
			fmt.Sprintf("%s–%s", pct(r.CI95.Low), pct(r.CI95.High)),
			pct(r.LastQuarter.Efectividad),
			streak,
			evidence,
		)
	}
	table.Render()
}

// PrintRanking imprime el ranking de patrones.
func (c *Console) PrintRanking(rows []domain.PatternRow) {
	if len(rows) == 0 {
		fmt.Fprintln(c.out, "No patterns found (not enough candles or samples)")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Pattern", "Dir", "Efectividad", "Samples", "V", "R", "Last seen", "Every")
	for i, r := range rows {
		table.Append(
			fmt.Sprintf("%d", i+1),
			string(r.Patron),
			string(r.Direccion),
			pct(r.Efectividad),
			fmt.Sprintf("%d", r.Muestras),
			fmt.Sprintf("%d", r.Verdes),
			fmt.Sprintf("%d", r.Rojas),
			c.timePtr(r.UltimaVezUTC),
			seconds(r.ApareceCadaSeg),
		)
	}
	table.Render()
}

// PrintHistory imprime las apariciones del patrón.
func (c *Console) PrintHistory(h domain.PatternHistory) {
	fmt.Fprintf(c.out, "\n%s %s | pattern %s → %s | %d samples",
		h.Mercado, h.Intervalo, h.Patron, h.Direccion, h.TotalMuestras)
	if h.RangoFechaInicio != nil && h.RangoFechaFin != nil {
		fmt.Fprintf(c.out, " | %s → %s", c.time(*h.RangoFechaInicio), c.time(*h.RangoFechaFin))
	}
	fmt.Fprintln(c.out)

	if len(h.Ocurrencias) == 0 {
		fmt.Fprintln(c.out, "No occurrences in range")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Time", "Result", "Hit", "Slug")
	for i, o := range h.Ocurrencias {
		hit := "✗"
		if o.DireccionResultado == h.Direccion {
			hit = "✓"
		}
		slug := ""
		if o.MercadoSlug != nil {
			slug = *o.MercadoSlug
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			c.time(o.EndTime),
			string(o.DireccionResultado),
			hit,
			slug,
		)
	}
	table.Render()
}

// PrintSimulation imprime el resumen de la simulación y las últimas entradas.
func (c *Console) PrintSimulation(res domain.SimResult) {
	fmt.Fprintf(c.out, "\n=== SIMULATION %s ===\n", res.RunID)
	fmt.Fprintf(c.out, "  Bankroll:     $%.2f → $%.2f\n", res.Banca0, res.BancaFin)
	fmt.Fprintf(c.out, "  PnL:          $%.2f  ROI %s\n", res.PnLTotal, pct(res.ROI))
	fmt.Fprintf(c.out, "  Max drawdown: $%.2f\n", res.MaxDrawdown)
	fmt.Fprintf(c.out, "  Runs:         %d wins / %d losses max\n", res.MaxRachaGanadas, res.MaxRachaPerdidas)
	fmt.Fprintf(c.out, "  Trades:       %d\n", len(res.Trades))

	if len(res.Trades) == 0 {
		return
	}

	trades := res.Trades
	if len(trades) > c.maxTrades {
		fmt.Fprintf(c.out, "  (showing last %d)\n", c.maxTrades)
		trades = trades[len(trades)-c.maxTrades:]
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Time", "Bet", "Result", "Stake", "PnL", "Bankroll")
	for _, t := range trades {
		table.Append(
			c.time(t.FinTsUTC),
			string(t.Direccion),
			string(t.Real),
			fmt.Sprintf("$%.2f", t.StakeAplicado),
			fmt.Sprintf("%+.2f", t.PnL),
			fmt.Sprintf("$%.2f", t.BancaDespues),
		)
	}
	table.Render()
}

// PrintWindows imprime la comparación por ventanas.
func (c *Console) PrintWindows(res domain.WindowComparison) {
	fmt.Fprintf(c.out, "\nPattern %s → %s | until %s | trend: %s\n",
		res.Patron, res.Direccion, c.time(res.Fin), res.Tendencia)

	table := tablewriter.NewWriter(c.out)
	table.Header("Days", "From", "Efectividad", "Samples", "V", "R")
	for _, w := range res.Filas {
		table.Append(
			fmt.Sprintf("%d", w.Dias),
			c.time(w.Inicio),
			pctPtr(w.Efectividad),
			fmt.Sprintf("%d", w.Muestras),
			fmt.Sprintf("%d", w.Verdes),
			fmt.Sprintf("%d", w.Rojas),
		)
	}
	table.Render()
}

// PrintRange imprime las métricas de un rango.
func (c *Console) PrintRange(m domain.RangeMetrics) {
	c.printRanges([]string{"Range"}, []domain.RangeMetrics{m})
}

// PrintRangeComparison imprime A contra B y los deltas.
func (c *Console) PrintRangeComparison(res domain.RangeComparison) {
	c.printRanges([]string{"A", "B"}, []domain.RangeMetrics{res.A, res.B})
	fmt.Fprintf(c.out, "  Delta (B - A): efectividad %s, samples %+d\n",
		pctDelta(res.DeltaEfectividad), res.DeltaMuestras)
}

// PrintPatternComparison imprime patrón A contra patrón B y el ganador.
func (c *Console) PrintPatternComparison(res domain.PatternComparison) {
	c.printRanges([]string{"A", "B"}, []domain.RangeMetrics{res.A, res.B})
	fmt.Fprintf(c.out, "  Delta (A - B): %s | winner: %s\n", pctDelta(res.DeltaEfectividad), res.Ganador)
}

// PrintLatest imprime la última vela guardada de una serie.
func (c *Console) PrintLatest(market string, interval domain.Interval, latest *time.Time) {
	if latest == nil {
		fmt.Fprintf(c.out, "%s %s: no candles stored\n", market, interval)
		return
	}
	fmt.Fprintf(c.out, "%s %s: last candle closed %s\n", market, interval, c.time(*latest))
}

func (c *Console) printRanges(labels []string, ms []domain.RangeMetrics) {
	table := tablewriter.NewWriter(c.out)
	table.Header("", "Pattern", "Dir", "From", "To", "Efectividad", "Samples", "V", "R", "Every", "Last seen")
	for i, m := range ms {
		table.Append(
			labels[i],
			string(m.Patron),
			string(m.Direccion),
			c.time(m.Inicio),
			c.time(m.Fin),
			pctPtr(m.Efectividad),
			fmt.Sprintf("%d", m.Muestras),
			fmt.Sprintf("%d", m.Verdes),
			fmt.Sprintf("%d", m.Rojas),
			seconds(m.ApareceCadaSeg),
			c.timePtr(m.UltimaVezUTC),
		)
	}
	table.Render()
}

// --- helpers de formato ---

func (c *Console) time(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(c.loc).Format(timeLayout)
}

func (c *Console) timePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return c.time(*t)
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func pctPtr(v *float64) string {
	if v == nil {
		return "-"
	}
	return pct(*v)
}

func pctDelta(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.1fpp", *v*100)
}

// seconds formatea una duración en segundos de forma compacta: "15m", "2h5m", "30s".
func seconds(v *int64) string {
	if v == nil {
		return "-"
	}
	d := time.Duration(*v) * time.Second
	h := int64(d / time.Hour)
	m := int64(d % time.Hour / time.Minute)
	sec := int64(d % time.Minute / time.Second)

	var sb strings.Builder
	if h > 0 {
		fmt.Fprintf(&sb, "%dh", h)
	}
	if m > 0 {
		fmt.Fprintf(&sb, "%dm", m)
	}
	if sec > 0 || sb.Len() == 0 {
		fmt.Fprintf(&sb, "%ds", sec)
	}
	return sb.String()
}
