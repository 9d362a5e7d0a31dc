package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polypatron/internal/domain"
)

// CandleStorage persiste las velas resueltas de cada serie.
type CandleStorage interface {
	// InsertCandles inserta las velas que no existan todavía (clave: intervalo, fin, slug).
	// Devuelve cuántas filas nuevas se escribieron.
	InsertCandles(ctx context.Context, candles []domain.Candle) (int, error)

	// LoadSeries devuelve las velas V/R de la serie con fin en [from, to], en orden ascendente.
	LoadSeries(ctx context.Context, market string, interval domain.Interval, from, to time.Time) (domain.Series, error)

	// LatestEndTime devuelve el fin de la vela más reciente de la serie, o nil si no hay datos.
	LatestEndTime(ctx context.Context, market string, interval domain.Interval) (*time.Time, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
