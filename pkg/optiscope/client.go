// Package optiscope is a Go client for the optiscope relay HTTP API.
package optiscope

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"optiscope/internal/domain"
	"optiscope/internal/normalize"
	"optiscope/internal/relay"
	"optiscope/internal/upstream"
)

// APIError is a failure reported by the relay.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay returned status %d", e.Status)
	}
	return e.Message
}

// Client provides a Go SDK for interacting with the optiscope relay.
type Client struct {
	baseURL string
	http    *upstream.Client
}

// NewClient creates a new relay client.
func NewClient(baseURL string) *Client {
	return NewClientWithConfig(upstream.Config{BaseURL: baseURL, Timeout: 30 * time.Second})
}

// NewClientWithConfig creates a relay client from an explicit transport
// configuration.
func NewClientWithConfig(cfg upstream.Config) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    upstream.New("relay", cfg),
	}
}

// BaseURL returns the relay root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Health checks that the relay is up.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "api/health", nil, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return fmt.Errorf("relay status %q", out.Status)
	}
	return nil
}

// Expirations lists root's expirations as YYYY-MM-DD.
func (c *Client) Expirations(ctx context.Context, root string) ([]string, error) {
	var out []string
	err := c.get(ctx, "api/thetadata/"+relay.PathExpirations, url.Values{normalize.ParamRoot: {root}}, &out)
	return out, err
}

// Strikes lists root's decimal strikes at expiration exp.
func (c *Client) Strikes(ctx context.Context, root, exp string) ([]float64, error) {
	q := url.Values{
		normalize.ParamRoot: {root},
		normalize.ParamExp:  {normalize.StripDashes(exp)},
	}
	var out []float64
	err := c.get(ctx, "api/thetadata/"+relay.PathStrikes, q, &out)
	return out, err
}

// OptionEOD returns one contract's latest EOD summary.
func (c *Client) OptionEOD(ctx context.Context, req domain.EODRequest) (domain.OptionQuote, error) {
	var out domain.OptionQuote
	err := c.get(ctx, "api/thetadata/"+relay.PathOptionEOD, normalize.EODValues(req), &out)
	return out, err
}

// OptionPrice returns one contract's EOD history and latest summary.
func (c *Client) OptionPrice(ctx context.Context, req domain.EODRequest) (domain.OptionPrice, error) {
	q := normalize.EODValues(req)
	q.Set("symbol", req.Root)
	q.Del(normalize.ParamRoot)

	var out domain.OptionPrice
	err := c.get(ctx, "api/options/price", q, &out)
	return out, err
}

// OptionsChain returns the aggregated chain computed by the relay.
func (c *Client) OptionsChain(ctx context.Context, symbol string, right domain.Right, expiration string) (domain.OptionsData, error) {
	q := url.Values{"symbol": {symbol}, "type": {string(right)}}
	if expiration != "" {
		q.Set("expiration", expiration)
	}
	var out domain.OptionsData
	err := c.get(ctx, "api/options/chain", q, &out)
	return out, err
}

// Chart returns the chart provider's raw response for symbol.
func (c *Client) Chart(ctx context.Context, symbol string, p domain.ChartParams) ([]byte, error) {
	body, err := c.http.Get(ctx, "api/yahoo/"+relay.ChartPath(symbol), p.Values())
	if err != nil {
		return nil, apiError(err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	body, err := c.http.Get(ctx, path, q)
	if err != nil {
		return apiError(err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// apiError converts a relay error response into *APIError. Transport
// failures are returned unchanged.
func apiError(err error) error {
	var uerr *upstream.Error
	if !errors.As(err, &uerr) || uerr.Kind != upstream.KindHTTP {
		return err
	}
	out := &APIError{Status: uerr.Status}
	if json.Unmarshal(uerr.Body, out) != nil || out.Message == "" {
		out.Message = "relay returned status " + strconv.Itoa(uerr.Status)
		out.Details = uerr.Details()
	}
	return out
}
