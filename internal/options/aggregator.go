// Package options assembles a per-strike option chain for one symbol, right
// and expiration out of three upstream calls: expirations, strikes and one
// EOD summary per strike.
package options

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"optiscope/internal/domain"
)

// DefaultMaxConcurrent caps in-flight per-strike EOD requests.
const DefaultMaxConcurrent = 8

// ErrNoExpirations is returned when the symbol has no usable expiration.
var ErrNoExpirations = errors.New("no expirations available")

// Source is the upstream the aggregator draws from.
type Source interface {
	Expirations(ctx context.Context, root string) ([]string, error)
	Strikes(ctx context.Context, root, exp string) ([]float64, error)
	OptionEOD(ctx context.Context, req domain.EODRequest) (domain.OptionQuote, error)
}

// Request selects the chain to aggregate. Expiration, StartDate and EndDate
// are optional.
type Request struct {
	Symbol     string
	Right      domain.Right
	Expiration string
	StartDate  string
	EndDate    string
}

// Aggregator builds option chains from a Source.
type Aggregator struct {
	src           Source
	maxConcurrent int
	now           func() time.Time
	log           *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithMaxConcurrent sets the per-strike fan-out cap. Values below 1 keep the
// default.
func WithMaxConcurrent(n int) Option {
	return func(a *Aggregator) {
		if n >= 1 {
			a.maxConcurrent = n
		}
	}
}

// WithLogger sets the aggregator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.log = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an Aggregator over src.
func NewAggregator(src Source, opts ...Option) *Aggregator {
	a := &Aggregator{
		src:           src,
		maxConcurrent: DefaultMaxConcurrent,
		now:           time.Now,
		log:           slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Fetch aggregates the chain. One failing strike fails the whole call and
// no partial result is returned.
func (a *Aggregator) Fetch(ctx context.Context, req Request) (domain.OptionsData, error) {
	data, err := a.fetch(ctx, req)
	if err != nil {
		return domain.OptionsData{}, wrap(err)
	}
	return data, nil
}

func (a *Aggregator) fetch(ctx context.Context, req Request) (domain.OptionsData, error) {
	plan, err := a.plan(ctx, req)
	if err != nil {
		return domain.OptionsData{}, err
	}

	entries := make([]domain.OptionEntry, len(plan.strikes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrent)
	for i, strike := range plan.strikes {
		g.Go(func() error {
			q, err := a.src.OptionEOD(gctx, plan.eodRequest(strike))
			if err != nil {
				return fmt.Errorf("strike %v: %w", strike, err)
			}
			entries[i] = plan.entry(strike, q)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.OptionsData{}, err
	}

	return domain.OptionsData{
		Strikes:     plan.strikes,
		Expirations: plan.expirations,
		Options:     entries,
	}, nil
}

// ---- Partial results ----

// StrikeResult is the outcome of one strike's EOD request. Exactly one of
// Quote and Err is meaningful.
type StrikeResult struct {
	Strike float64
	Quote  domain.OptionQuote
	Err    error
}

// PartialResult holds every strike's outcome. Data.Options lists only the
// successful strikes; Failed lists the rest.
type PartialResult struct {
	Data   domain.OptionsData
	Failed []StrikeResult
}

// Errs returns the per-strike errors.
func (p PartialResult) Errs() []error {
	errs := make([]error, 0, len(p.Failed))
	for _, f := range p.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}

// FetchPartial aggregates the chain without failing on individual strikes.
// Failures in the expirations or strikes step still abort.
func (a *Aggregator) FetchPartial(ctx context.Context, req Request) (PartialResult, error) {
	plan, err := a.plan(ctx, req)
	if err != nil {
		return PartialResult{}, wrap(err)
	}

	results := make([]StrikeResult, len(plan.strikes))
	var g errgroup.Group
	g.SetLimit(a.maxConcurrent)
	for i, strike := range plan.strikes {
		g.Go(func() error {
			q, err := a.src.OptionEOD(ctx, plan.eodRequest(strike))
			results[i] = StrikeResult{Strike: strike, Quote: q, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := PartialResult{
		Data: domain.OptionsData{
			Strikes:     plan.strikes,
			Expirations: plan.expirations,
			Options:     make([]domain.OptionEntry, 0, len(results)),
		},
	}
	for _, r := range results {
		if r.Err != nil {
			a.log.Warn("strike EOD failed", "symbol", req.Symbol, "strike", r.Strike, "error", r.Err)
			out.Failed = append(out.Failed, r)
			continue
		}
		out.Data.Options = append(out.Data.Options, plan.entry(r.Strike, r.Quote))
	}
	return out, nil
}

// ---- Planning ----

// plan is the resolved input of the per-strike fan-out.
type plan struct {
	req         Request
	expirations []string
	target      string
	strikes     []float64
	start, end  string
}

func (a *Aggregator) plan(ctx context.Context, req Request) (*plan, error) {
	exps, err := a.src.Expirations(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}

	target := req.Expiration
	if target == "" {
		if len(exps) == 0 {
			return nil, ErrNoExpirations
		}
		target = exps[0]
	}

	strikes, err := a.src.Strikes(ctx, req.Symbol, target)
	if err != nil {
		return nil, err
	}

	start, end := req.StartDate, req.EndDate
	if start == "" || end == "" {
		defStart, defEnd, err := DateRange(target, a.now())
		if err != nil {
			return nil, err
		}
		if start == "" {
			start = defStart
		}
		if end == "" {
			end = defEnd
		}
	}

	a.log.Debug("aggregating option chain",
		"symbol", req.Symbol,
		"right", req.Right,
		"expiration", target,
		"strikes", len(strikes),
	)
	return &plan{
		req:         req,
		expirations: exps,
		target:      target,
		strikes:     strikes,
		start:       start,
		end:         end,
	}, nil
}

func (p *plan) eodRequest(strike float64) domain.EODRequest {
	return domain.EODRequest{
		Root:       p.req.Symbol,
		Expiration: p.target,
		Strike:     strike,
		Right:      p.req.Right,
		StartDate:  p.start,
		EndDate:    p.end,
	}
}

func (p *plan) entry(strike float64, q domain.OptionQuote) domain.OptionEntry {
	return domain.OptionEntry{
		Strike:       strike,
		Expiration:   p.target,
		LastPrice:    q.LastPrice,
		Volume:       q.Volume,
		OpenInterest: q.OpenInterest,
	}
}

func wrap(err error) error {
	return fmt.Errorf("Failed to fetch options data: %w", err)
}
