package api

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/polypatron/internal/domain"
)

// Requests y responses JSON. Los nombres de campo son los del frontend.

type rangeRequest struct {
	Mercado   string  `json:"mercado"`
	Intervalo string  `json:"intervalo" binding:"required"`
	Inicio    apiTime `json:"inicio"`
	Fin       apiTime `json:"fin"`
}

// bounds exige inicio y fin presentes.
func (r rangeRequest) bounds() (time.Time, time.Time, error) {
	return requireRange("inicio", r.Inicio, "fin", r.Fin)
}

func requireRange(startName string, start apiTime, endName string, end apiTime) (time.Time, time.Time, error) {
	if start.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s es obligatorio", domain.ErrInvalidTime, startName)
	}
	if end.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s es obligatorio", domain.ErrInvalidTime, endName)
	}
	return start.Time, end.Time, nil
}

type rankRequest struct {
	rangeRequest
	LongitudMin *int     `json:"longitud_min" binding:"omitempty,min=2,max=12"`
	LongitudMax *int     `json:"longitud_max" binding:"omitempty,min=2,max=12"`
	MinMuestras *int     `json:"min_muestras" binding:"omitempty,min=1,max=100000"`
	Suavizado   *float64 `json:"suavizado" binding:"omitempty,min=0,max=10"`
}

type rankResponse struct {
	Filas []domain.PatternRow `json:"filas"`
}

type latestResponse struct {
	FinTsUTC *time.Time `json:"fin_ts_utc"`
}

type ingestRequest struct {
	Mercado   string `json:"mercado"`
	Intervalo string `json:"intervalo" binding:"required"`
	Bloques   *int   `json:"bloques_lookback" binding:"omitempty,min=1,max=4000"`
	Prefix    string `json:"prefix"`
}

type historyParams struct {
	Patron    string `form:"patron" binding:"required"`
	Direccion string `form:"direccion" binding:"required"`
	Mercado   string `form:"mercado"`
	Intervalo string `form:"intervalo" binding:"required"`
	Inicio    string `form:"inicio" binding:"required"`
	Fin       string `form:"fin" binding:"required"`
}

type analyzeRequest struct {
	Resultados []string `json:"resultados"`
	Esperado   string   `json:"esperado" binding:"required"`
}

type analyzeResponse struct {
	domain.AnalysisResult
	PocaEvidencia bool `json:"poca_evidencia"`
}

type simulateRequest struct {
	rangeRequest
	Patron     string   `json:"patron" binding:"required"`
	Direccion  string   `json:"direccion"`
	Banca0     *float64 `json:"banca0" binding:"omitempty,gt=0"`
	Stake      *float64 `json:"stake" binding:"omitempty,gt=0"`
	Payout     *float64 `json:"payout" binding:"omitempty,min=0,max=2"`
	Reinvertir *bool    `json:"reinvertir"`
}

type windowsRequest struct {
	Mercado      string  `json:"mercado"`
	Intervalo    string  `json:"intervalo" binding:"required"`
	Fin          apiTime `json:"fin"`
	Patron       string  `json:"patron" binding:"required"`
	Direccion    string  `json:"direccion"`
	VentanasDias []int   `json:"ventanas_dias"`
}

type compareRangeRequest struct {
	rangeRequest
	Patron    string `json:"patron" binding:"required"`
	Direccion string `json:"direccion"`
}

type compareRangeResponse struct {
	Mercado   string          `json:"mercado"`
	Intervalo domain.Interval `json:"intervalo"`
	domain.RangeMetrics
}

type abRequest struct {
	Mercado   string  `json:"mercado"`
	Intervalo string  `json:"intervalo" binding:"required"`
	Patron    string  `json:"patron" binding:"required"`
	Direccion string  `json:"direccion"`
	AInicio   apiTime `json:"a_inicio"`
	AFin      apiTime `json:"a_fin"`
	BInicio   apiTime `json:"b_inicio"`
	BFin      apiTime `json:"b_fin"`
}

type patternsVsRequest struct {
	rangeRequest
	PatronA    string `json:"patron_a" binding:"required"`
	DireccionA string `json:"direccion_a"`
	PatronB    string `json:"patron_b" binding:"required"`
	DireccionB string `json:"direccion_b"`
}

var defaultWindowDays = []int{3, 7, 15, 30}

const (
	defaultMinLen       = 2
	defaultMaxLen       = 6
	defaultMinSamples   = 20
	defaultBankroll     = 1000.0
	defaultStake        = 10.0
	defaultPayout       = 0.85
	defaultIngestBlocks = 144
)

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
