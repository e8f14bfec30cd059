// Package market fetches stock quotes and daily candles through the relay's
// chart pass-through and reshapes them into the dashboard's quote and candle
// records.
package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"optiscope/internal/domain"
	"optiscope/internal/util"
)

var (
	// ErrSymbolRequired is returned when the symbol is empty.
	ErrSymbolRequired = errors.New("symbol is required")
	// ErrInvalidData is returned when the chart response has no usable result.
	ErrInvalidData = errors.New("invalid data received from API")
	// ErrInvalidRange is returned for a candle window that is empty or
	// inverted.
	ErrInvalidRange = errors.New("from and to dates are required")
	// ErrResolution is returned for an unsupported candle resolution.
	ErrResolution = errors.New("unsupported resolution")
)

// RecentWindow is the candle window shown next to the quote.
const RecentWindow = 30 * 24 * time.Hour

// ChartSource returns the raw chart response for a symbol.
type ChartSource interface {
	Chart(ctx context.Context, symbol string, p domain.ChartParams) ([]byte, error)
}

// Service turns chart responses into quotes and candles.
type Service struct {
	src      ChartSource
	now      func() time.Time
	attempts int
	backoff  time.Duration
	log      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRetry sets the total attempts per query and the first backoff delay.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		if attempts >= 1 {
			s.attempts = attempts
		}
		s.backoff = backoff
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a Service over src. Each query is tried twice by
// default.
func NewService(src ChartSource, opts ...Option) *Service {
	s := &Service{
		src:      src,
		now:      time.Now,
		attempts: 2,
		backoff:  time.Second,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Quote returns the latest quote for symbol, prices rounded to cents.
func (s *Service) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return domain.Quote{}, ErrSymbolRequired
	}

	params := domain.ChartParams{Interval: string(datetime.OneDay), Range: string(datetime.OneDay)}
	res, err := s.chart(ctx, symbol, params)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("failed to fetch stock quote: %w", err)
	}

	m := res.Meta
	prev := m.ChartPreviousClose
	if !prev.Valid {
		prev = m.PreviousClose
	}

	var open float64
	for _, o := range res.quoteSeries().Open {
		if o.Valid {
			open = o.Float64
		}
	}

	ts := m.RegularMarketTime.Int64
	if !m.RegularMarketTime.Valid || ts == 0 {
		ts = s.now().Unix()
	}

	return domain.Quote{
		Current:       round2(m.RegularMarketPrice.ValueOrZero()),
		High:          round2(m.RegularMarketDayHigh.ValueOrZero()),
		Low:           round2(m.RegularMarketDayLow.ValueOrZero()),
		Open:          round2(open),
		PreviousClose: round2(prev.ValueOrZero()),
		Timestamp:     ts,
	}, nil
}

// Candles returns sessions of symbol between from and to. resolution is
// D, W, M or a minute count (1, 5, 15, 30, 60). Sessions with a null price
// are dropped so every sequence has the same length.
func (s *Service) Candles(ctx context.Context, symbol, resolution string, from, to time.Time) (domain.CandleSeries, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return domain.CandleSeries{}, ErrSymbolRequired
	}
	if from.IsZero() || to.IsZero() || !from.Before(to) {
		return domain.CandleSeries{}, ErrInvalidRange
	}
	interval, err := Interval(resolution)
	if err != nil {
		return domain.CandleSeries{}, err
	}

	params := domain.ChartParams{
		Interval: string(interval),
		Period1:  int64(datetime.New(&from).Unix()),
		Period2:  int64(datetime.New(&to).Unix()),
	}
	res, err := s.chart(ctx, symbol, params)
	if err != nil {
		return domain.CandleSeries{}, fmt.Errorf("failed to fetch stock candles: %w", err)
	}
	return candleSeries(res), nil
}

// RecentCandles returns the daily candles of the last 30 days.
func (s *Service) RecentCandles(ctx context.Context, symbol string) (domain.CandleSeries, error) {
	to := s.now()
	return s.Candles(ctx, symbol, "D", to.Add(-RecentWindow), to)
}

func (s *Service) chart(ctx context.Context, symbol string, p domain.ChartParams) (*chartResult, error) {
	var res *chartResult
	err := util.Retry(ctx, s.attempts, s.backoff, func() error {
		body, err := s.src.Chart(ctx, symbol, p)
		if err != nil {
			s.log.Warn("chart request failed", "symbol", symbol, "error", err)
			return err
		}
		r, err := decodeChart(body)
		if err != nil {
			return util.Permanent(err)
		}
		res = r
		return nil
	})
	return res, err
}

func candleSeries(res *chartResult) domain.CandleSeries {
	q := res.quoteSeries()
	out := domain.CandleSeries{
		Timestamps: make([]int64, 0, len(res.Timestamp)),
		Open:       make([]float64, 0, len(res.Timestamp)),
		High:       make([]float64, 0, len(res.Timestamp)),
		Low:        make([]float64, 0, len(res.Timestamp)),
		Close:      make([]float64, 0, len(res.Timestamp)),
		Volume:     make([]int64, 0, len(res.Timestamp)),
		Status:     domain.CandleStatusOK,
	}
	for i, ts := range res.Timestamp {
		o, h, l, c := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i)
		if !o.Valid || !h.Valid || !l.Valid || !c.Valid {
			continue
		}
		out.Timestamps = append(out.Timestamps, ts)
		out.Open = append(out.Open, round2(o.Float64))
		out.High = append(out.High, round2(h.Float64))
		out.Low = append(out.Low, round2(l.Float64))
		out.Close = append(out.Close, round2(c.Float64))
		out.Volume = append(out.Volume, int64(at(q.Volume, i).ValueOrZero()))
	}
	return out
}

// Interval maps a candle resolution onto the chart interval.
func Interval(resolution string) (datetime.Interval, error) {
	switch strings.ToUpper(strings.TrimSpace(resolution)) {
	case "", "D":
		return datetime.OneDay, nil
	case "W":
		return datetime.Interval("1wk"), nil
	case "M":
		return datetime.OneMonth, nil
	case "1":
		return datetime.OneMin, nil
	case "5":
		return datetime.FiveMins, nil
	case "15":
		return datetime.FifteenMins, nil
	case "30":
		return datetime.ThirtyMins, nil
	case "60":
		return datetime.SixtyMins, nil
	}
	return "", fmt.Errorf("%w: %q", ErrResolution, resolution)
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
