package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alejandrodnm/polypatron/internal/application/patterns"
	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// PatternService es lo que la API necesita del servicio de patrones.
type PatternService interface {
	Latest(ctx context.Context, market string, interval domain.Interval) (*time.Time, error)
	Rank(ctx context.Context, q patterns.RankQuery) ([]domain.PatternRow, error)
	History(ctx context.Context, q patterns.HistoryQuery) (domain.PatternHistory, error)
	AnalyzeHistory(ctx context.Context, q patterns.HistoryQuery) (patterns.HistoryAnalysis, error)
	Analyze(results []domain.Side, expected domain.Side) (domain.AnalysisResult, bool)
	Simulate(ctx context.Context, q patterns.SimulateQuery) (domain.SimResult, error)
	CompareWindows(ctx context.Context, q patterns.WindowsQuery) (domain.WindowComparison, error)
	CompareRange(ctx context.Context, q patterns.RangeQuery) (domain.RangeMetrics, error)
	CompareAB(ctx context.Context, q patterns.ABQuery) (domain.RangeComparison, error)
	ComparePatterns(ctx context.Context, q patterns.PatternsVsQuery) (domain.PatternComparison, error)
	IngestRecent(ctx context.Context, market string, interval domain.Interval, blocks int, prefix string) (patterns.IngestReport, error)
}

// Config controla el servidor HTTP.
type Config struct {
	Addr            string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	DefaultMarket   string
	ReleaseMode     bool
}

// Server es la API JSON de PolyPatron.
type Server struct {
	cfg        Config
	svc        PatternService
	router     *gin.Engine
	httpServer *http.Server
}

// NewServer arma el router con recovery, request id, logging y CORS.
func NewServer(cfg Config, svc PatternService) *Server {
	if cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.DefaultMarket == "" {
		cfg.DefaultMarket = "btc-updown"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLogger())
	router.Use(bodyLimit(maxBodyBytes))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", headerRequestID}
	corsConfig.ExposeHeaders = []string{"Content-Length", headerRequestID}
	router.Use(cors.New(corsConfig))

	s := &Server{cfg: cfg, svc: svc, router: router}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/salud", s.handleHealth)
	s.router.GET("/velas/ultima", s.handleLatest)

	pat := s.router.Group("/patrones")
	{
		pat.POST("/rankear", s.handleRank)
		pat.GET("/historial", s.handleHistory)
		pat.GET("/historial/analisis", s.handleHistoryAnalysis)
		pat.POST("/analizar", s.handleAnalyze)
	}

	s.router.POST("/simular", s.handleSimulate)

	cmp := s.router.Group("/comparar")
	{
		cmp.POST("/ventanas", s.handleCompareWindows)
		cmp.POST("/rango", s.handleCompareRange)
		cmp.POST("/a-vs-b", s.handleCompareAB)
		cmp.POST("/patrones-vs", s.handleComparePatterns)
	}

	s.router.POST("/ingesta/live", s.handleIngestLive)
}

// Handler devuelve el router, útil para tests con httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run sirve hasta que ctx se cancele y luego hace un shutdown ordenado.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // los backfills largos tardan
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.cfg.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("api.Run: listen %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api.Run: shutdown: %w", err)
	}
	return nil
}
