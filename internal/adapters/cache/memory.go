package cache

import (
	"context"
	"sync"
	"time"

	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/alejandrodnm/polypatron/internal/ports"
)

const defaultMaxEntries = 256

var _ ports.HistoryCache = (*Memory)(nil)

type memoryEntry struct {
	history   domain.PatternHistory
	expiresAt time.Time
}

// Memory es una cache de historiales en proceso, con TTL y tope de entradas.
// Al llenarse descarta primero la entrada que vence antes.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewMemory crea una cache en memoria. ttl <= 0 significa sin vencimiento.
func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Memory{
		entries:    make(map[string]memoryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get devuelve una copia del historial si existe y no venció.
func (m *Memory) Get(_ context.Context, key domain.HistoryKey) (domain.PatternHistory, bool, error) {
	k := key.String()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[k]
	if !ok {
		return domain.PatternHistory{}, false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, k)
		return domain.PatternHistory{}, false, nil
	}
	return e.history.Clone(), true, nil
}

// Set guarda el historial, reemplazando el anterior bajo la misma clave.
func (m *Memory) Set(_ context.Context, key domain.HistoryKey, h domain.PatternHistory) error {
	k := key.String()

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, exists := m.entries[k]; !exists && len(m.entries) >= m.maxEntries {
		m.evictLocked(now)
	}

	var expiresAt time.Time
	if m.ttl > 0 {
		expiresAt = now.Add(m.ttl)
	}
	m.entries[k] = memoryEntry{history: h.Clone(), expiresAt: expiresAt}
	return nil
}

// Len devuelve la cantidad de entradas guardadas, vencidas incluidas.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// evictLocked borra las vencidas; si no hay ninguna, la que vence antes.
func (m *Memory) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for k, e := range m.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(m.entries, k)
			continue
		}
		if oldestKey == "" || e.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.expiresAt
		}
	}
	if len(m.entries) >= m.maxEntries && oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}
