package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alejandrodnm/polypatron/internal/application/patterns"
	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	codeValidation   = "VALIDATION_ERROR"
	codeInsufficient = "INSUFFICIENT_DATA"
	codeInternal     = "INTERNAL_ERROR"
	codeOffline      = "OFFLINE"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "app": "PolyPatron"})
}

func (s *Server) handleLatest(c *gin.Context) {
	interval, err := domain.ParseInterval(c.DefaultQuery("intervalo", string(domain.Interval5m)))
	if err != nil {
		s.fail(c, err)
		return
	}
	t, err := s.svc.Latest(c.Request.Context(), c.DefaultQuery("mercado", s.cfg.DefaultMarket), interval)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, latestResponse{FinTsUTC: t})
}

func (s *Server) handleRank(c *gin.Context) {
	var req rankRequest
	if !s.bind(c, &req) {
		return
	}
	scope, err := s.scope(req.rangeRequest)
	if err != nil {
		s.fail(c, err)
		return
	}
	q := patterns.RankQuery{
		Scope:      scope,
		MinLen:     intOr(req.LongitudMin, defaultMinLen),
		MaxLen:     intOr(req.LongitudMax, defaultMaxLen),
		MinSamples: intOr(req.MinMuestras, defaultMinSamples),
		Alpha:      floatOr(req.Suavizado, 0),
	}
	if q.MinLen > q.MaxLen {
		validationError(c, fmt.Sprintf("longitud_min (%d) no puede superar longitud_max (%d)", q.MinLen, q.MaxLen))
		return
	}

	rows, err := s.svc.Rank(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rankResponse{Filas: rows})
}

func (s *Server) handleHistory(c *gin.Context) {
	q, ok := s.historyQuery(c)
	if !ok {
		return
	}
	h, err := s.svc.History(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) handleHistoryAnalysis(c *gin.Context) {
	q, ok := s.historyQuery(c)
	if !ok {
		return
	}
	res, err := s.svc.AnalyzeHistory(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// historyQuery valida los query params comunes de los endpoints de historial.
func (s *Server) historyQuery(c *gin.Context) (patterns.HistoryQuery, bool) {
	var p historyParams
	if err := c.ShouldBindQuery(&p); err != nil {
		validationError(c, err.Error())
		return patterns.HistoryQuery{}, false
	}
	side, err := domain.ParseSide(p.Direccion)
	if err != nil {
		s.fail(c, err)
		return patterns.HistoryQuery{}, false
	}
	pattern, err := domain.ParsePattern(p.Patron)
	if err != nil {
		s.fail(c, err)
		return patterns.HistoryQuery{}, false
	}
	interval, err := domain.ParseInterval(p.Intervalo)
	if err != nil {
		s.fail(c, err)
		return patterns.HistoryQuery{}, false
	}
	start, err := domain.ParseTime(p.Inicio)
	if err != nil {
		s.fail(c, err)
		return patterns.HistoryQuery{}, false
	}
	end, err := domain.ParseTime(p.Fin)
	if err != nil {
		s.fail(c, err)
		return patterns.HistoryQuery{}, false
	}
	return patterns.HistoryQuery{
		Scope:   patterns.Scope{Market: s.market(p.Mercado), Interval: interval, Start: start, End: end},
		Pattern: pattern,
		Side:    side,
	}, true
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if !s.bind(c, &req) {
		return
	}
	expected, err := domain.ParseSide(req.Esperado)
	if err != nil {
		s.fail(c, err)
		return
	}
	results, err := domain.ParseSides(req.Resultados)
	if err != nil {
		s.fail(c, err)
		return
	}
	res, low := s.svc.Analyze(results, expected)
	c.JSON(http.StatusOK, analyzeResponse{AnalysisResult: res, PocaEvidencia: low})
}

func (s *Server) handleSimulate(c *gin.Context) {
	var req simulateRequest
	if !s.bind(c, &req) {
		return
	}
	scope, err := s.scope(req.rangeRequest)
	if err != nil {
		s.fail(c, err)
		return
	}
	pattern, err := domain.ParsePattern(req.Patron)
	if err != nil {
		s.fail(c, err)
		return
	}
	dir, err := domain.OptionalSide(req.Direccion)
	if err != nil {
		s.fail(c, err)
		return
	}
	reinvest := true
	if req.Reinvertir != nil {
		reinvest = *req.Reinvertir
	}

	res, err := s.svc.Simulate(c.Request.Context(), patterns.SimulateQuery{
		Scope: scope,
		Params: domain.SimParams{
			Pattern:   pattern,
			Direction: dir,
			Bankroll:  floatOr(req.Banca0, defaultBankroll),
			Stake:     floatOr(req.Stake, defaultStake),
			Payout:    floatOr(req.Payout, defaultPayout),
			Reinvest:  reinvest,
		},
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleCompareWindows(c *gin.Context) {
	var req windowsRequest
	if !s.bind(c, &req) {
		return
	}
	interval, err := domain.ParseInterval(req.Intervalo)
	if err != nil {
		s.fail(c, err)
		return
	}
	if req.Fin.IsZero() {
		s.fail(c, fmt.Errorf("%w: fin es obligatorio", domain.ErrInvalidTime))
		return
	}
	pattern, err := domain.ParsePattern(req.Patron)
	if err != nil {
		s.fail(c, err)
		return
	}
	dir, err := domain.OptionalSide(req.Direccion)
	if err != nil {
		s.fail(c, err)
		return
	}
	days := req.VentanasDias
	if days == nil {
		days = defaultWindowDays
	}

	res, err := s.svc.CompareWindows(c.Request.Context(), patterns.WindowsQuery{
		Market:   s.market(req.Mercado),
		Interval: interval,
		Pattern:  pattern,
		Side:     dir,
		End:      req.Fin.Time,
		Days:     days,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleCompareRange(c *gin.Context) {
	var req compareRangeRequest
	if !s.bind(c, &req) {
		return
	}
	scope, err := s.scope(req.rangeRequest)
	if err != nil {
		s.fail(c, err)
		return
	}
	pattern, err := domain.ParsePattern(req.Patron)
	if err != nil {
		s.fail(c, err)
		return
	}
	dir, err := domain.OptionalSide(req.Direccion)
	if err != nil {
		s.fail(c, err)
		return
	}

	m, err := s.svc.CompareRange(c.Request.Context(), patterns.RangeQuery{Scope: scope, Pattern: pattern, Side: dir})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, compareRangeResponse{Mercado: scope.Market, Intervalo: scope.Interval, RangeMetrics: m})
}

func (s *Server) handleCompareAB(c *gin.Context) {
	var req abRequest
	if !s.bind(c, &req) {
		return
	}
	interval, err := domain.ParseInterval(req.Intervalo)
	if err != nil {
		s.fail(c, err)
		return
	}
	aStart, aEnd, err := requireRange("a_inicio", req.AInicio, "a_fin", req.AFin)
	if err != nil {
		s.fail(c, err)
		return
	}
	bStart, bEnd, err := requireRange("b_inicio", req.BInicio, "b_fin", req.BFin)
	if err != nil {
		s.fail(c, err)
		return
	}
	pattern, err := domain.ParsePattern(req.Patron)
	if err != nil {
		s.fail(c, err)
		return
	}
	dir, err := domain.OptionalSide(req.Direccion)
	if err != nil {
		s.fail(c, err)
		return
	}

	res, err := s.svc.CompareAB(c.Request.Context(), patterns.ABQuery{
		Market:   s.market(req.Mercado),
		Interval: interval,
		Pattern:  pattern,
		Side:     dir,
		AStart:   aStart,
		AEnd:     aEnd,
		BStart:   bStart,
		BEnd:     bEnd,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleComparePatterns(c *gin.Context) {
	var req patternsVsRequest
	if !s.bind(c, &req) {
		return
	}
	scope, err := s.scope(req.rangeRequest)
	if err != nil {
		s.fail(c, err)
		return
	}
	patternA, err := domain.ParsePattern(req.PatronA)
	if err != nil {
		s.fail(c, fmt.Errorf("patron_a: %w", err))
		return
	}
	patternB, err := domain.ParsePattern(req.PatronB)
	if err != nil {
		s.fail(c, fmt.Errorf("patron_b: %w", err))
		return
	}
	sideA, err := domain.OptionalSide(req.DireccionA)
	if err != nil {
		s.fail(c, fmt.Errorf("direccion_a: %w", err))
		return
	}
	sideB, err := domain.OptionalSide(req.DireccionB)
	if err != nil {
		s.fail(c, fmt.Errorf("direccion_b: %w", err))
		return
	}

	res, err := s.svc.ComparePatterns(c.Request.Context(), patterns.PatternsVsQuery{
		Scope:    scope,
		PatternA: patternA,
		SideA:    sideA,
		PatternB: patternB,
		SideB:    sideB,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- helpers ---

// handleIngestLive trae de Gamma las últimas velas cerradas de una serie.
func (s *Server) handleIngestLive(c *gin.Context) {
	var req ingestRequest
	if !s.bind(c, &req) {
		return
	}
	interval, err := domain.ParseInterval(req.Intervalo)
	if err != nil {
		s.fail(c, err)
		return
	}
	rep, err := s.svc.IngestRecent(c.Request.Context(), s.market(req.Mercado), interval, intOr(req.Bloques, defaultIngestBlocks), req.Prefix)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		validationError(c, err.Error())
		return false
	}
	return true
}

func (s *Server) scope(r rangeRequest) (patterns.Scope, error) {
	interval, err := domain.ParseInterval(r.Intervalo)
	if err != nil {
		return patterns.Scope{}, err
	}
	start, end, err := r.bounds()
	if err != nil {
		return patterns.Scope{}, err
	}
	return patterns.Scope{Market: s.market(r.Mercado), Interval: interval, Start: start, End: end}, nil
}

func (s *Server) market(raw string) string {
	if raw == "" {
		return s.cfg.DefaultMarket
	}
	return raw
}

// fail traduce errores del dominio y del servicio a respuestas HTTP.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSide),
		errors.Is(err, domain.ErrInvalidPattern),
		errors.Is(err, domain.ErrInvalidInterval),
		errors.Is(err, patterns.ErrInvalidRange),
		errors.Is(err, domain.ErrInvalidTime):
		validationError(c, err.Error())
	case errors.Is(err, patterns.ErrInsufficientData):
		errorResponse(c, http.StatusUnprocessableEntity, codeInsufficient, err.Error())
	case errors.Is(err, patterns.ErrOffline):
		errorResponse(c, http.StatusConflict, codeOffline, err.Error())
	default:
		slog.Error("request failed",
			"path", c.Request.URL.Path,
			"request_id", c.GetString(ctxRequestID),
			"err", err,
		)
		errorResponse(c, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

func validationError(c *gin.Context, message string) {
	errorResponse(c, http.StatusBadRequest, codeValidation, message)
}

func errorResponse(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   code,
		"message": message,
	})
}
