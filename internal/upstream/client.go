// Package upstream is the HTTP transport shared by every provider the relay
// talks to. Each Client is built from an explicit Config; there are no
// package-level clients.
package upstream

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"optiscope/internal/util"
)

// DefaultTimeout bounds a single upstream call when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Config describes one upstream provider.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64 // <= 0 disables throttling
	Burst         int
	UserAgent     string
	Logger        *slog.Logger
}

// Client performs GET requests against a single provider.
type Client struct {
	name    string
	http    *resty.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Client for the provider called name.
func New(name string, cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("provider", name)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	hc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		hc.SetHeader("User-Agent", cfg.UserAgent)
	}

	hc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("upstream response",
			"url", resp.Request.URL,
			"status", resp.StatusCode(),
			"elapsed", resp.Time(),
		)
		return nil
	})
	hc.OnError(func(req *resty.Request, err error) {
		logger.Warn("upstream request failed", "url", req.URL, "error", err)
	})

	return &Client{
		name:    name,
		http:    hc,
		limiter: util.NewRateLimiter(cfg.RatePerSecond, cfg.Burst),
		logger:  logger,
	}
}

// Name returns the provider name given to New.
func (c *Client) Name() string { return c.name }

// BaseURL returns the provider root every path is resolved against.
func (c *Client) BaseURL() string { return c.http.BaseURL }

// Get fetches path (relative to the base URL) with the given query and
// returns the raw body of a 2xx response. Any other outcome is an *Error.
// Get never retries.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Provider: c.name, Kind: KindUnreachable, Err: err}
		}
	}

	req := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}

	resp, err := req.Get("/" + strings.TrimLeft(path, "/"))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = errors.Join(err, ctxErr)
		}
		return nil, &Error{Provider: c.name, Kind: KindUnreachable, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &Error{
			Provider: c.name,
			Kind:     KindHTTP,
			Status:   resp.StatusCode(),
			Body:     resp.Body(),
		}
	}
	return resp.Body(), nil
}
