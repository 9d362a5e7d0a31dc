package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/polypatron/internal/adapters/storage"
	"github.com/alejandrodnm/polypatron/internal/application/patterns"
	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

// VV aparece 4 veces con resultados R, V, R, R.
const seq = "VVRVVVRVVR"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewSQLiteStorage(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	candles := make([]domain.Candle, 0, len(seq))
	for i, r := range seq {
		end := t0.Add(time.Duration(i+1) * 5 * time.Minute)
		candles = append(candles, domain.Candle{
			Market:   "btc-updown",
			Interval: domain.Interval5m,
			Slug:     "btc-updown-5m-" + end.Format("150405"),
			MarketID: end.Format("1504"),
			EndTime:  end,
			Color:    domain.Side(string(r)),
		})
	}
	_, err = store.InsertCandles(context.Background(), candles)
	require.NoError(t, err)

	svc := patterns.New(patterns.DefaultConfig(), nil, store, nil)
	return NewServer(Config{CORSOrigins: []string{"http://localhost:3000"}}, svc)
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func hourRange() map[string]any {
	return map[string]any{
		"intervalo": "5m",
		"inicio":    "2025-10-01T00:00:00",
		"fin":       "2025-10-01T01:00:00Z",
	}
}

func with(base map[string]any, kv ...any) map[string]any {
	out := make(map[string]any, len(base)+len(kv)/2)
	for k, v := range base {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodGet, "/salud", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "PolyPatron", body["app"])
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/salud", nil)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	req := httptest.NewRequest(http.MethodGet, "/salud", nil)
	req.Header.Set(headerRequestID, "abc-123")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(headerRequestID))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/patrones/rankear", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLatest(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/velas/ultima?intervalo=5m", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-10-01T00:50:00Z", decode(t, w)["fin_ts_utc"])

	w = do(t, s, http.MethodGet, "/velas/ultima?mercado=eth-updown", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["fin_ts_utc"])

	w = do(t, s, http.MethodGet, "/velas/ultima?intervalo=2m", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, codeValidation, decode(t, w)["error"])
}

func TestRank(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/patrones/rankear", with(hourRange(), "longitud_max", 3, "min_muestras", 1))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		Filas []domain.PatternRow `json:"filas"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotEmpty(t, res.Filas)
	for _, row := range res.Filas {
		assert.GreaterOrEqual(t, row.Patron.Len(), 2)
		assert.LessOrEqual(t, row.Patron.Len(), 3)
	}
}

func TestRank_NotEnoughCandles(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/patrones/rankear", with(hourRange(), "longitud_min", 12, "longitud_max", 12))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, decode(t, w)["filas"])
}

func TestRank_Validation(t *testing.T) {
	s := newTestServer(t)

	cases := map[string]map[string]any{
		"longitud_min fuera de rango": with(hourRange(), "longitud_min", 1),
		"min mayor que max":           with(hourRange(), "longitud_min", 5, "longitud_max", 3),
		"sin intervalo":               {"inicio": "2025-10-01", "fin": "2025-10-02"},
		"intervalo invalido":          with(hourRange(), "intervalo", "2m"),
		"fecha invalida":              with(hourRange(), "inicio", "ayer"),
		"sin fin":                     {"intervalo": "5m", "inicio": "2025-10-01"},
		"inicio despues de fin":       with(hourRange(), "inicio", "2025-10-02"),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/patrones/rankear", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, codeValidation, decode(t, w)["error"])
		})
	}
}

func historyPath(base string, params map[string]string) string {
	v := url.Values{}
	for k, val := range params {
		v.Set(k, val)
	}
	return base + "?" + v.Encode()
}

func historyParamsFor(pattern, side string) map[string]string {
	return map[string]string{
		"patron":    pattern,
		"direccion": side,
		"mercado":   "btc-updown",
		"intervalo": "5m",
		"inicio":    "2025-10-01T00:00:00Z",
		"fin":       "2025-10-01T01:00:00Z",
	}
}

func TestHistory(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, historyPath("/patrones/historial", historyParamsFor("VV", "V")), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var h domain.PatternHistory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	assert.Equal(t, 4, h.TotalMuestras)
	assert.Equal(t, []domain.Side{"R", "V", "R", "R"}, domain.Results(h.Ocurrencias))
	require.NotNil(t, h.RangoFechaInicio)
	assert.Equal(t, t0.Add(15*time.Minute), *h.RangoFechaInicio)
	require.NotNil(t, h.Ocurrencias[0].MercadoSlug)
	assert.Equal(t, "btc-updown-5m-001500", *h.Ocurrencias[0].MercadoSlug)
}

func TestHistory_Validation(t *testing.T) {
	s := newTestServer(t)

	for name, params := range map[string]map[string]string{
		"direccion":   historyParamsFor("VV", "X"),
		"patron":      historyParamsFor("V", "V"),
		"patron raro": historyParamsFor("VX", "V"),
	} {
		t.Run(name, func(t *testing.T) {
			w := do(t, s, http.MethodGet, historyPath("/patrones/historial", params), nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, codeValidation, decode(t, w)["error"])
		})
	}

	params := historyParamsFor("VV", "V")
	delete(params, "fin")
	w := do(t, s, http.MethodGet, historyPath("/patrones/historial", params), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryAnalysis(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, historyPath("/patrones/historial/analisis", historyParamsFor("VV", "R")), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res patterns.HistoryAnalysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 4, res.Historial.TotalMuestras)
	assert.Equal(t, 4, res.Analisis.N)
	assert.Equal(t, 3, res.Analisis.Wins)
	assert.True(t, res.PocaEvidencia)
}

func TestAnalyze(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/patrones/analizar", map[string]any{
		"resultados": []string{"V", "V", "R"},
		"esperado":   "V",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.EqualValues(t, 3, body["n"])
	assert.EqualValues(t, 2, body["wins"])
	assert.Equal(t, "V", body["expectedSide"])
	assert.Equal(t, true, body["poca_evidencia"])
}

func TestAnalyze_Validation(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/patrones/analizar", map[string]any{
		"resultados": []string{"V", "G"},
		"esperado":   "V",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/patrones/analizar", map[string]any{"resultados": []string{"V"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimulate(t *testing.T) {
	s := newTestServer(t)

	body := with(hourRange(),
		"patron", "VV",
		"direccion", "V",
		"banca0", 100,
		"stake", 10,
		"payout", 1,
		"reinvertir", false,
	)
	w := do(t, s, http.MethodPost, "/simular", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res domain.SimResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, res.Trades, 4)
	assert.InDelta(t, 80.0, res.BancaFin, 1e-9)
	assert.InDelta(t, -20.0, res.PnLTotal, 1e-9)
	assert.NotEmpty(t, res.RunID)
}

func TestSimulate_Errors(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/simular", with(hourRange(), "mercado", "eth-updown", "patron", "VV"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, codeInsufficient, decode(t, w)["error"])

	w = do(t, s, http.MethodPost, "/simular", with(hourRange(), "patron", "VV", "stake", 0))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/simular", with(hourRange(), "patron", "VV", "payout", 3))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/simular", with(hourRange(), "patron", "VV", "direccion", "X"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompareWindows(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/comparar/ventanas", map[string]any{
		"intervalo":     "5m",
		"fin":           "2025-10-01T01:00:00Z",
		"patron":        "VV",
		"ventanas_dias": []int{1},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res domain.WindowComparison
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, domain.SideLoss, res.Direccion)
	require.Len(t, res.Filas, 1)
	assert.Equal(t, 4, res.Filas[0].Muestras)
	require.NotNil(t, res.Filas[0].Efectividad)
	assert.InDelta(t, 0.75, *res.Filas[0].Efectividad, 1e-12)
	assert.Equal(t, domain.TrendFlat, res.Tendencia)
}

func TestCompareWindows_DefaultDays(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/comparar/ventanas", map[string]any{
		"intervalo": "5m",
		"fin":       "2025-10-01T01:00:00Z",
		"patron":    "VV",
		"direccion": "V",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res domain.WindowComparison
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Filas, 4)
	assert.Equal(t, []int{3, 7, 15, 30}, []int{res.Filas[0].Dias, res.Filas[1].Dias, res.Filas[2].Dias, res.Filas[3].Dias})
}

func TestCompareRange(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/comparar/rango", with(hourRange(), "patron", "VV"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "btc-updown", body["mercado"])
	assert.Equal(t, "5m", body["intervalo"])
	assert.Equal(t, "R", body["direccion"])
	assert.EqualValues(t, 4, body["muestras"])
	assert.InDelta(t, 0.75, body["efectividad"], 1e-12)
}

func TestCompareAB(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/comparar/a-vs-b", map[string]any{
		"intervalo": "5m",
		"patron":    "VV",
		"direccion": "R",
		"a_inicio":  "2025-10-01T00:00:00Z",
		"a_fin":     "2025-10-01T01:00:00Z",
		"b_inicio":  "2025-10-01T00:00:00Z",
		"b_fin":     "2025-10-01T00:30:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res domain.RangeComparison
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "btc-updown", res.Mercado)
	assert.Equal(t, 4, res.A.Muestras)
	// hasta 00:30 solo entran las dos primeras apariciones (R, V)
	assert.Equal(t, 2, res.B.Muestras)
	assert.Equal(t, -2, res.DeltaMuestras)
	require.NotNil(t, res.DeltaEfectividad)
	assert.InDelta(t, -0.25, *res.DeltaEfectividad, 1e-12)
}

func TestCompareAB_MissingRange(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/comparar/a-vs-b", map[string]any{
		"intervalo": "5m",
		"patron":    "VV",
		"a_inicio":  "2025-10-01T00:00:00Z",
		"a_fin":     "2025-10-01T01:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["message"], "b_inicio")
}

func TestComparePatterns(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/comparar/patrones-vs", with(hourRange(), "patron_a", "VV", "patron_b", "VR"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res domain.PatternComparison
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, domain.Interval5m, res.Intervalo)
	assert.Equal(t, domain.WinnerB, res.Ganador)
	assert.Equal(t, 2, res.DeltaMuestras)
	require.NotNil(t, res.DeltaEfectividad)
	assert.InDelta(t, -0.25, *res.DeltaEfectividad, 1e-12)

	w = do(t, s, http.MethodPost, "/comparar/patrones-vs", with(hourRange(), "patron_a", "VV", "patron_b", "VR", "direccion_b", "Z"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["message"], "direccion_b")
}

func TestIngestLive_Offline(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/ingesta/live", map[string]any{"intervalo": "5m"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "OFFLINE", decode(t, w)["error"])

	for name, body := range map[string]map[string]any{
		"sin intervalo":       {"mercado": "btc-updown"},
		"intervalo invalido":  {"intervalo": "2m"},
		"bloques en cero":     {"intervalo": "5m", "bloques_lookback": 0},
		"bloques fuera rango": {"intervalo": "5m", "bloques_lookback": 4001},
	} {
		w := do(t, s, http.MethodPost, "/ingesta/live", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
}

// ingestStub sólo implementa IngestRecent; el resto de PatternService no se usa.
type ingestStub struct {
	PatternService
	market string
	blocks int
	prefix string
}

func (s *ingestStub) IngestRecent(_ context.Context, market string, interval domain.Interval, blocks int, prefix string) (patterns.IngestReport, error) {
	s.market, s.blocks, s.prefix = market, blocks, prefix
	latest := t0.Add(time.Hour)
	return patterns.IngestReport{Mercado: market, Intervalo: interval, Insertadas: 3, UltimaVela: &latest}, nil
}

func TestIngestLive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &ingestStub{}
	s := NewServer(Config{}, stub)

	w := do(t, s, http.MethodPost, "/ingesta/live", map[string]any{"intervalo": "5m"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "btc-updown", body["mercado"])
	assert.Equal(t, float64(3), body["insertadas"])
	assert.Equal(t, "2025-10-01T01:00:00Z", body["ultima_vela_utc"])
	assert.Equal(t, 144, stub.blocks)

	w = do(t, s, http.MethodPost, "/ingesta/live", map[string]any{
		"mercado": "eth-updown", "intervalo": "15m", "bloques_lookback": 12, "prefix": "eth-updown-15m-",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "eth-updown", stub.market)
	assert.Equal(t, 12, stub.blocks)
	assert.Equal(t, "eth-updown-15m-", stub.prefix)
}

func TestAnalyze_BodyTooLarge(t *testing.T) {
	s := newTestServer(t)
	huge := strings.Split(strings.Repeat("V", 600000), "")

	w := do(t, s, http.MethodPost, "/patrones/analizar", map[string]any{"resultados": huge, "esperado": "V"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w)["error"])
}
