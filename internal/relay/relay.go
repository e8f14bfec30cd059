// Package relay forwards dashboard requests to the options-data daemon and
// the chart provider, reshaping the daemon's compact responses on the way
// back.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"optiscope/internal/domain"
	"optiscope/internal/normalize"
)

// Provider names an upstream reachable under /api/<provider>/.
type Provider string

const (
	ProviderThetaData Provider = "thetadata"
	ProviderYahoo     Provider = "yahoo"
)

// ErrUnknownProvider is returned by Forward for a provider it does not route.
var ErrUnknownProvider = errors.New("unknown provider")

// ErrNotJSON is returned when a pass-through body is not valid JSON.
var ErrNotJSON = errors.New("upstream response is not JSON")

// Fetcher performs one upstream GET. *upstream.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// Daemon sub-paths with a shaping rule.
const (
	PathExpirations = "list/expirations"
	PathStrikes     = "list/strikes"
	PathOptionEOD   = "v2/hist/option/eod"
	PathOptionList  = "list"
)

// rule reshapes one daemon endpoint. prepare, when set, rewrites the
// incoming query before it is forwarded.
type rule struct {
	prepare func(url.Values) (url.Values, error)
	shape   func(body []byte, now time.Time) (any, error)
}

var thetaRules = map[string]rule{
	PathExpirations: {
		shape: func(body []byte, now time.Time) (any, error) { return normalize.Expirations(body, now) },
	},
	PathStrikes: {
		shape: func(body []byte, _ time.Time) (any, error) { return normalize.Strikes(body) },
	},
	PathOptionEOD: {
		prepare: normalize.EODQuery,
		shape:   func(body []byte, _ time.Time) (any, error) { return normalize.OptionEOD(body) },
	},
	PathOptionList: {
		shape: func(body []byte, _ time.Time) (any, error) { return normalize.OptionList(body) },
	},
}

// Relay routes requests to a provider and applies the matching rule.
type Relay struct {
	theta Fetcher
	yahoo Fetcher
	now   func() time.Time
	log   *slog.Logger
}

// Option configures a Relay.
type Option func(*Relay)

// WithClock replaces time.Now as the relay's time source.
func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

// New creates a Relay over the daemon and chart fetchers.
func New(theta, yahoo Fetcher, logger *slog.Logger, opts ...Option) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Relay{theta: theta, yahoo: yahoo, now: time.Now, log: logger}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Forward sends path and query to provider. Daemon paths with a rule return
// the shaped value; everything else returns the upstream JSON unchanged as a
// json.RawMessage.
func (r *Relay) Forward(ctx context.Context, provider Provider, path string, query url.Values) (any, error) {
	path = strings.Trim(path, "/")

	switch provider {
	case ProviderThetaData:
		if rl, ok := thetaRules[path]; ok {
			return r.apply(ctx, path, query, rl)
		}
		return r.passThrough(ctx, r.theta, provider, path, query)
	case ProviderYahoo:
		return r.passThrough(ctx, r.yahoo, provider, path, query)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}

func (r *Relay) apply(ctx context.Context, path string, query url.Values, rl rule) (any, error) {
	if rl.prepare != nil {
		q, err := rl.prepare(query)
		if err != nil {
			return nil, err
		}
		query = q
	}

	body, err := r.theta.Get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	v, err := rl.shape(body, r.now())
	if err != nil {
		r.log.Error("shaping daemon response", "path", path, "error", err)
		return nil, err
	}
	return v, nil
}

func (r *Relay) passThrough(ctx context.Context, f Fetcher, provider Provider, path string, query url.Values) (json.RawMessage, error) {
	body, err := f.Get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s %s: %w", provider, path, ErrNotJSON)
	}
	return json.RawMessage(body), nil
}

// ---- Typed helpers ----

// Expirations lists root's expirations from six months ago onwards.
func (r *Relay) Expirations(ctx context.Context, root string) ([]string, error) {
	body, err := r.theta.Get(ctx, PathExpirations, url.Values{normalize.ParamRoot: {root}})
	if err != nil {
		return nil, err
	}
	return normalize.Expirations(body, r.now())
}

// Strikes lists the decimal strikes of root at expiration exp.
func (r *Relay) Strikes(ctx context.Context, root, exp string) ([]float64, error) {
	q := url.Values{
		normalize.ParamRoot: {root},
		normalize.ParamExp:  {normalize.StripDashes(exp)},
	}
	body, err := r.theta.Get(ctx, PathStrikes, q)
	if err != nil {
		return nil, err
	}
	return normalize.Strikes(body)
}

// OptionEOD returns the contract's most recent EOD summary.
func (r *Relay) OptionEOD(ctx context.Context, req domain.EODRequest) (domain.OptionQuote, error) {
	body, err := r.eod(ctx, req)
	if err != nil {
		return domain.OptionQuote{}, err
	}
	return normalize.OptionEOD(body)
}

// OptionHistory returns the contract's EOD history plus its latest summary.
func (r *Relay) OptionHistory(ctx context.Context, req domain.EODRequest) (domain.OptionPrice, error) {
	body, err := r.eod(ctx, req)
	if err != nil {
		return domain.OptionPrice{}, err
	}
	return normalize.OptionHistory(body)
}

func (r *Relay) eod(ctx context.Context, req domain.EODRequest) ([]byte, error) {
	q, err := normalize.EODQuery(normalize.EODValues(req))
	if err != nil {
		return nil, err
	}
	return r.theta.Get(ctx, PathOptionEOD, q)
}

// ChartPath is the chart endpoint for symbol.
func ChartPath(symbol string) string {
	return "v8/finance/chart/" + url.PathEscape(symbol)
}

// Chart returns the chart provider's raw response for symbol.
func (r *Relay) Chart(ctx context.Context, symbol string, p domain.ChartParams) ([]byte, error) {
	raw, err := r.passThrough(ctx, r.yahoo, ProviderYahoo, ChartPath(symbol), p.Values())
	if err != nil {
		return nil, err
	}
	return raw, nil
}
