package storage

// sqlite.go: velas resueltas de cada serie up/down.
//
// Estrategia:
//   - `candles`: una fila por mercado cerrado, clave única (interval, end_ts, slug).
//     Insert idempotente: re-ingerir el mismo rango no duplica nada.
//   - end_ts en segundos Unix UTC: los filtros por rango son exactos y usan el índice.
//   - `ingest_runs`: resumen ligero por ingesta (recibidas / nuevas). Siempre 1 fila.
//   - Cache en memoria del último fin por serie: LatestEndTime no toca disco
//     salvo la primera vez.
//   - Prune opcional al arrancar si se configura retención.

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/alejandrodnm/polypatron/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por vela resuelta
CREATE TABLE IF NOT EXISTS candles (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    market      TEXT    NOT NULL,
    interval    TEXT    NOT NULL,
    slug        TEXT    NOT NULL,
    market_id   TEXT,
    end_ts      INTEGER NOT NULL,
    color       TEXT    NOT NULL CHECK (color IN ('V', 'R')),
    close_up    REAL,
    close_down  REAL,
    source      TEXT    NOT NULL DEFAULT 'gamma',
    ingested_at INTEGER NOT NULL,
    UNIQUE (interval, end_ts, slug)
);

-- Resumen por ingesta
CREATE TABLE IF NOT EXISTS ingest_runs (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    ran_at   INTEGER NOT NULL,
    received INTEGER NOT NULL DEFAULT 0,
    inserted INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_candles_series ON candles(market, interval, end_ts);
CREATE INDEX IF NOT EXISTS idx_runs_at        ON ingest_runs(ran_at DESC);
`

var _ ports.CandleStorage = (*SQLiteStorage)(nil)

type seriesKey struct {
	market   string
	interval domain.Interval
}

// SQLiteStorage implementa ports.CandleStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db     *sql.DB
	latest map[seriesKey]time.Time // último end_ts conocido por serie
	mu     sync.Mutex
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema, borra velas más viejas que retention (0 = conservar todo)
// y precarga la cache de últimas velas.
func NewSQLiteStorage(path string, retention time.Duration) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{
		db:     db,
		latest: make(map[seriesKey]time.Time),
	}
	if retention > 0 {
		s.pruneOld(context.Background(), retention)
	}
	s.warmCache(context.Background())
	return s, nil
}

// InsertCandles inserta las velas nuevas en una transacción y registra la ingesta.
// Las que ya existen (misma clave) se ignoran.
func (s *SQLiteStorage) InsertCandles(ctx context.Context, candles []domain.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}

	now := time.Now().UTC().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage.InsertCandles: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles
			(market, interval, slug, market_id, end_ts, color,
			 close_up, close_down, source, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(interval, end_ts, slug) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("storage.InsertCandles: prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	newest := make(map[seriesKey]time.Time)
	for _, c := range candles {
		if !c.Color.Valid() {
			continue
		}
		source := c.Source
		if source == "" {
			source = "gamma"
		}
		res, err := stmt.ExecContext(ctx,
			c.Market,
			string(c.Interval),
			c.Slug,
			nullString(c.MarketID),
			c.EndTime.UTC().Unix(),
			string(c.Color),
			c.CloseUp,
			c.CloseDown,
			source,
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("storage.InsertCandles: insert %s: %w", c.Slug, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
		key := seriesKey{c.Market, c.Interval}
		if end := c.EndTime.UTC(); end.After(newest[key]) {
			newest[key] = end
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ingest_runs (ran_at, received, inserted) VALUES (?, ?, ?)`,
		now, len(candles), inserted,
	); err != nil {
		return 0, fmt.Errorf("storage.InsertCandles: insert run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage.InsertCandles: commit: %w", err)
	}

	s.mu.Lock()
	for key, end := range newest {
		if end.After(s.latest[key]) {
			s.latest[key] = end
		}
	}
	s.mu.Unlock()

	return inserted, nil
}

// LoadSeries devuelve la serie con fin en [from, to], ordenada por end_ts ascendente.
// Un from o to en cero deja ese extremo abierto.
func (s *SQLiteStorage) LoadSeries(ctx context.Context, market string, interval domain.Interval, from, to time.Time) (domain.Series, error) {
	lo, hi := int64(0), int64(1<<62)
	if !from.IsZero() {
		lo = from.UTC().Unix()
	}
	if !to.IsZero() {
		hi = to.UTC().Unix()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT slug, COALESCE(market_id, ''), end_ts, color, close_up, close_down, source
		FROM candles
		WHERE market = ? AND interval = ? AND end_ts BETWEEN ? AND ?
		ORDER BY end_ts ASC, slug ASC
	`, market, string(interval), lo, hi)
	if err != nil {
		return domain.Series{}, fmt.Errorf("storage.LoadSeries: query: %w", err)
	}
	defer rows.Close()

	var candles []domain.Candle
	for rows.Next() {
		c := domain.Candle{Market: market, Interval: interval}
		var endTS int64
		var color string
		var up, down sql.NullFloat64

		if err := rows.Scan(&c.Slug, &c.MarketID, &endTS, &color, &up, &down, &c.Source); err != nil {
			return domain.Series{}, fmt.Errorf("storage.LoadSeries: scan row: %w", err)
		}
		c.EndTime = time.Unix(endTS, 0).UTC()
		c.Color = domain.Side(color)
		if up.Valid {
			c.CloseUp = &up.Float64
		}
		if down.Valid {
			c.CloseDown = &down.Float64
		}
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return domain.Series{}, fmt.Errorf("storage.LoadSeries: rows: %w", err)
	}

	return domain.NewSeries(candles), nil
}

// LatestEndTime devuelve el fin de la última vela guardada de la serie, o nil si no hay.
func (s *SQLiteStorage) LatestEndTime(ctx context.Context, market string, interval domain.Interval) (*time.Time, error) {
	key := seriesKey{market, interval}

	s.mu.Lock()
	cached, ok := s.latest[key]
	s.mu.Unlock()
	if ok {
		return &cached, nil
	}

	var endTS sql.NullInt64
	if err := s.db.QueryRowContext(ctx,
		`SELECT MAX(end_ts) FROM candles WHERE market = ? AND interval = ?`,
		market, string(interval),
	).Scan(&endTS); err != nil {
		return nil, fmt.Errorf("storage.LatestEndTime: query: %w", err)
	}
	if !endTS.Valid {
		return nil, nil
	}

	t := time.Unix(endTS.Int64, 0).UTC()
	s.mu.Lock()
	s.latest[key] = t
	s.mu.Unlock()
	return &t, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina velas y resúmenes más viejos que la retención.
func (s *SQLiteStorage) pruneOld(ctx context.Context, retention time.Duration) {
	cutoff := time.Now().UTC().Add(-retention).Unix()
	s.db.ExecContext(ctx, `DELETE FROM candles WHERE end_ts < ?`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM ingest_runs WHERE ran_at < ?`, cutoff)
}

// warmCache precarga el último fin de cada serie al arrancar.
func (s *SQLiteStorage) warmCache(ctx context.Context) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT market, interval, MAX(end_ts) FROM candles GROUP BY market, interval`,
	)
	if err != nil {
		return
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var market, interval string
		var endTS int64
		if rows.Scan(&market, &interval, &endTS) == nil {
			s.latest[seriesKey{market, domain.Interval(interval)}] = time.Unix(endTS, 0).UTC()
		}
	}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
