package ports

import (
	"context"

	"github.com/alejandrodnm/polypatron/internal/domain"
)

// HistoryCache guarda historiales de patrones ya calculados.
// Vive fuera del motor de análisis: su ciclo de vida es el del proceso (memoria) o el de Redis.
type HistoryCache interface {
	// Get devuelve el historial cacheado y true, o false si no está o expiró.
	Get(ctx context.Context, key domain.HistoryKey) (domain.PatternHistory, bool, error)

	// Set guarda el historial bajo la clave dada.
	Set(ctx context.Context, key domain.HistoryKey, h domain.PatternHistory) error
}
