package patterns

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/polypatron/internal/domain"
	"github.com/alejandrodnm/polypatron/internal/ports"
)

var t0 = time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

// seriesCandles arma velas de 5m consecutivas desde start a partir de "VVRR...".
func seriesCandles(start time.Time, colors string) []domain.Candle {
	out := make([]domain.Candle, 0, len(colors))
	for i, c := range colors {
		end := start.Add(time.Duration(i+1) * 5 * time.Minute)
		out = append(out, domain.Candle{
			Market:   "btc-updown",
			Interval: domain.Interval5m,
			Slug:     fmt.Sprintf("btc-updown-5m-%d", end.Unix()),
			MarketID: fmt.Sprintf("%d", i),
			EndTime:  end,
			Color:    domain.Side(string(c)),
			Source:   "gamma",
		})
	}
	return out
}

// fakeProvider devuelve las velas del rango pedido y cuenta las llamadas.
type fakeProvider struct {
	mu      sync.Mutex
	candles []domain.Candle
	err     error
	calls   int
	queries []ports.CandleQuery
}

func (f *fakeProvider) FetchClosedCandles(_ context.Context, q ports.CandleQuery) ([]domain.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Candle
	for _, c := range f.candles {
		if !q.EndMin.IsZero() && c.EndTime.Before(q.EndMin) {
			continue
		}
		if !q.EndMax.IsZero() && c.EndTime.After(q.EndMax) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// fakeStorage es un CandleStorage en memoria con la misma semántica que SQLite.
type fakeStorage struct {
	mu      sync.Mutex
	candles map[string]domain.Candle
	loads   int
	loadErr error
}

var _ ports.CandleStorage = (*fakeStorage)(nil)

func newFakeStorage(candles ...domain.Candle) *fakeStorage {
	s := &fakeStorage{candles: make(map[string]domain.Candle)}
	_, _ = s.InsertCandles(context.Background(), candles)
	return s
}

func (s *fakeStorage) InsertCandles(_ context.Context, candles []domain.Candle) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range candles {
		k := fmt.Sprintf("%s|%d|%s", c.Interval, c.EndTime.Unix(), c.Slug)
		if _, ok := s.candles[k]; ok {
			continue
		}
		s.candles[k] = c
		n++
	}
	return n, nil
}

func (s *fakeStorage) LoadSeries(_ context.Context, market string, interval domain.Interval, from, to time.Time) (domain.Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return domain.Series{}, s.loadErr
	}
	var out []domain.Candle
	for _, c := range s.candles {
		if c.Market != market || c.Interval != interval {
			continue
		}
		if !from.IsZero() && c.EndTime.Before(from) {
			continue
		}
		if !to.IsZero() && c.EndTime.After(to) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	return domain.NewSeries(out), nil
}

func (s *fakeStorage) LatestEndTime(_ context.Context, market string, interval domain.Interval) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *time.Time
	for _, c := range s.candles {
		if c.Market != market || c.Interval != interval {
			continue
		}
		if latest == nil || c.EndTime.After(*latest) {
			t := c.EndTime
			latest = &t
		}
	}
	return latest, nil
}

func (s *fakeStorage) Close() error { return nil }

// failingCache siempre falla: las consultas deben seguir funcionando.
type failingCache struct{}

func (failingCache) Get(context.Context, domain.HistoryKey) (domain.PatternHistory, bool, error) {
	return domain.PatternHistory{}, false, errors.New("cache down")
}

func (failingCache) Set(context.Context, domain.HistoryKey, domain.PatternHistory) error {
	return errors.New("cache down")
}
