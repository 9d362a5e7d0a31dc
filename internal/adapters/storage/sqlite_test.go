package storage_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/polypatron/internal/adapters/storage"
	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 10, 9, 8, 0, 0, 0, time.UTC)

func makeCandle(i int, color domain.Side) domain.Candle {
	end := base.Add(time.Duration(i) * 5 * time.Minute)
	up, down := 1.0, 0.0
	if color == domain.SideLoss {
		up, down = 0, 1
	}
	return domain.Candle{
		Market:    "btc-updown",
		Interval:  domain.Interval5m,
		Slug:      fmt.Sprintf("btc-updown-5m-%d", end.Unix()),
		MarketID:  fmt.Sprintf("%d", 1000+i),
		EndTime:   end,
		Color:     color,
		CloseUp:   &up,
		CloseDown: &down,
		Source:    "gamma",
	}
}

func newDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStorage_InsertAndLoad(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	// desordenadas a propósito: LoadSeries ordena por fin
	candles := []domain.Candle{
		makeCandle(2, domain.SideLoss),
		makeCandle(0, domain.SideWin),
		makeCandle(1, domain.SideWin),
	}
	n, err := db.InsertCandles(ctx, candles)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	s, err := db.LoadSeries(ctx, "btc-updown", domain.Interval5m, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, []domain.Side{domain.SideWin, domain.SideWin, domain.SideLoss}, s.Colors)
	assert.Equal(t, base, s.EndTimes[0])
	assert.Equal(t, "1000", s.Candles[0].MarketID)
	require.NotNil(t, s.Candles[2].CloseDown)
	assert.InDelta(t, 1.0, *s.Candles[2].CloseDown, 1e-9)
}

func TestSQLiteStorage_InsertIsIdempotent(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	candles := []domain.Candle{makeCandle(0, domain.SideWin), makeCandle(1, domain.SideLoss)}
	n, err := db.InsertCandles(ctx, candles)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = db.InsertCandles(ctx, append(candles, makeCandle(2, domain.SideWin)))
	require.NoError(t, err)
	assert.Equal(t, 1, n, "solo la vela nueva se inserta")

	s, err := db.LoadSeries(ctx, "btc-updown", domain.Interval5m, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
}

func TestSQLiteStorage_InsertEmptySlice(t *testing.T) {
	db := newDB(t)
	n, err := db.InsertCandles(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStorage_LoadSeriesRange(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	var candles []domain.Candle
	for i := 0; i < 10; i++ {
		color := domain.SideWin
		if i%2 == 1 {
			color = domain.SideLoss
		}
		candles = append(candles, makeCandle(i, color))
	}
	_, err := db.InsertCandles(ctx, candles)
	require.NoError(t, err)

	// extremos inclusivos: índices 2..5
	s, err := db.LoadSeries(ctx, "btc-updown", domain.Interval5m,
		base.Add(10*time.Minute), base.Add(25*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 4, s.Len())
	assert.Equal(t, base.Add(10*time.Minute), s.EndTimes[0])
	assert.Equal(t, base.Add(25*time.Minute), s.EndTimes[3])

	other, err := db.LoadSeries(ctx, "eth-updown", domain.Interval5m, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Zero(t, other.Len())
}

func TestSQLiteStorage_LatestEndTime(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	latest, err := db.LatestEndTime(ctx, "btc-updown", domain.Interval5m)
	require.NoError(t, err)
	assert.Nil(t, latest)

	_, err = db.InsertCandles(ctx, []domain.Candle{makeCandle(3, domain.SideWin), makeCandle(1, domain.SideLoss)})
	require.NoError(t, err)

	latest, err = db.LatestEndTime(ctx, "btc-updown", domain.Interval5m)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, base.Add(15*time.Minute), *latest)
}

func TestSQLiteStorage_WarmCacheAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candles.db")
	ctx := context.Background()

	db, err := storage.NewSQLiteStorage(path, 0)
	require.NoError(t, err)
	_, err = db.InsertCandles(ctx, []domain.Candle{makeCandle(4, domain.SideWin)})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = storage.NewSQLiteStorage(path, 0)
	require.NoError(t, err)
	defer db.Close()

	latest, err := db.LatestEndTime(ctx, "btc-updown", domain.Interval5m)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, base.Add(20*time.Minute), *latest)
}

func TestSQLiteStorage_SkipsInvalidColor(t *testing.T) {
	db := newDB(t)
	bad := makeCandle(0, domain.SideWin)
	bad.Color = "X"
	n, err := db.InsertCandles(context.Background(), []domain.Candle{bad, makeCandle(1, domain.SideLoss)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
