package notify_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/polypatron/internal/adapters/notify"
	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func TestConsole_PrintAnalysis(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, nil)

	res := domain.Analyze([]domain.Side{"V", "V", "R", "V", "V"}, domain.SideWin)
	c.PrintAnalysis(res, true)

	out := buf.String()
	assert.Contains(t, out, "expected V")
	assert.Contains(t, out, "80.0%")
	assert.Contains(t, out, "poca evidencia")
	assert.Contains(t, out, "V x2")
}

func TestConsole_PrintAnalysis_Empty(t *testing.T) {
	var buf bytes.Buffer
	notify.NewConsoleWriter(&buf, nil).PrintAnalysis(domain.Analyze(nil, domain.SideWin), false)
	assert.Contains(t, buf.String(), "No results to analyze")
}

func TestConsole_PrintAnalysisSummary(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, nil)
	c.PrintAnalysisSummary([]notify.AnalysisSummary{
		{Label: "VV→V", Result: domain.Analyze([]domain.Side{"V", "R"}, domain.SideWin), LowEvidence: true},
		{Label: "RR→V", Err: errors.New("boom")},
	})
	out := buf.String()
	assert.Contains(t, out, "VV→V")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "poca")
	assert.Contains(t, out, "error: boom")
}

func TestConsole_PrintRanking(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, nil)
	c.PrintRanking([]domain.PatternRow{{
		Patron:         "VVR",
		Direccion:      domain.SideWin,
		Efectividad:    0.625,
		Muestras:       8,
		Verdes:         5,
		Rojas:          3,
		UltimaVezUTC:   ptr(t0),
		ApareceCadaSeg: ptr(int64(7500)),
	}})

	out := buf.String()
	assert.Contains(t, out, "VVR")
	assert.Contains(t, out, "62.5%")
	assert.Contains(t, out, "2025-10-01 12:00")
	assert.Contains(t, out, "2h5m")
}

func TestConsole_PrintRanking_Empty(t *testing.T) {
	var buf bytes.Buffer
	notify.NewConsoleWriter(&buf, nil).PrintRanking(nil)
	assert.Contains(t, buf.String(), "No patterns found")
}

func TestConsole_DisplayTimezone(t *testing.T) {
	loc := time.FixedZone("ART", -3*3600)

	var buf bytes.Buffer
	notify.NewConsoleWriter(&buf, loc).PrintLatest("btc-updown", domain.Interval5m, ptr(t0))
	// UTC-3
	assert.Contains(t, buf.String(), "2025-10-01 09:00")
}

func TestConsole_PrintLatest_NoData(t *testing.T) {
	var buf bytes.Buffer
	notify.NewConsoleWriter(&buf, nil).PrintLatest("btc-updown", domain.Interval5m, nil)
	assert.Contains(t, buf.String(), "no candles stored")
}

func TestConsole_PrintHistory(t *testing.T) {
	var buf bytes.Buffer
	h := domain.NewPatternHistory("btc-updown", domain.Interval5m, "VV", domain.SideWin, []domain.Occurrence{
		{DireccionResultado: domain.SideWin, EndTime: t0, MercadoSlug: ptr("btc-updown-5m-1")},
		{DireccionResultado: domain.SideLoss, EndTime: t0.Add(time.Hour)},
	})
	notify.NewConsoleWriter(&buf, nil).PrintHistory(h)

	out := buf.String()
	assert.Contains(t, out, "2 samples")
	assert.Contains(t, out, "btc-updown-5m-1")
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "✗")
}

func TestConsole_PrintSimulation_TruncatesTrades(t *testing.T) {
	var buf bytes.Buffer
	res := domain.SimResult{RunID: "run-1", Banca0: 100, BancaFin: 110}
	for i := 0; i < 25; i++ {
		res.Trades = append(res.Trades, domain.SimTrade{FinTsUTC: t0.Add(time.Duration(i) * time.Minute), Direccion: "V", Real: "V"})
	}
	notify.NewConsoleWriter(&buf, nil).PrintSimulation(res)

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "showing last 20")
	assert.NotContains(t, out, "2025-10-01 12:04")
	assert.Contains(t, out, "2025-10-01 12:24")
}

func TestConsole_PrintComparisons(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, nil)

	c.PrintWindows(domain.WindowComparison{
		Patron: "VV", Direccion: "V", Fin: t0, Tendencia: domain.TrendUp,
		Filas: []domain.WindowRow{{Dias: 3, Inicio: t0.Add(-72 * time.Hour), Efectividad: ptr(0.6)}, {Dias: 7}},
	})
	c.PrintRangeComparison(domain.RangeComparison{DeltaEfectividad: ptr(-0.1), DeltaMuestras: 4})
	c.PrintPatternComparison(domain.PatternComparison{Ganador: domain.WinnerA})

	out := buf.String()
	assert.Contains(t, out, "trend: ascenso")
	assert.Contains(t, out, "60.0%")
	assert.Contains(t, out, "-10.0pp")
	assert.Contains(t, out, "+4")
	assert.Contains(t, out, "winner: A")
}

func TestConsole_PrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, notify.NewConsoleWriter(&buf, nil).PrintJSON(domain.Analyze([]domain.Side{"V"}, "V")))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.EqualValues(t, 1, decoded["n"])
	assert.Contains(t, decoded, "maxStreakV")
}
