package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polypatron/internal/domain"
)

// CandleQuery describe qué mercados cerrados pedir a la fuente.
type CandleQuery struct {
	Market     string
	Interval   domain.Interval
	SlugPrefix string // vacío = "<market>-<interval>-"
	EndMin     time.Time
	EndMax     time.Time
	PageSize   int
	MaxPages   int
}

// CandleProvider obtiene velas resueltas desde la API de Polymarket.
type CandleProvider interface {
	// FetchClosedCandles pagina los mercados cerrados cuyo fin cae en [EndMin, EndMax]
	// y devuelve solo los de la serie pedida con resultado V/R conocido.
	FetchClosedCandles(ctx context.Context, q CandleQuery) ([]domain.Candle, error)
}
