package optiscope

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"optiscope/internal/domain"
	"optiscope/internal/market"
	"optiscope/internal/options"
)

var (
	_ options.Source     = (*Client)(nil)
	_ market.ChartSource = (*Client)(nil)
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:3001"
	c := NewClient(baseURL)

	if c == nil {
		t.Fatal("expected non-nil client")
	}
	if c.BaseURL() != baseURL {
		t.Errorf("expected baseURL %q, got %q", baseURL, c.BaseURL())
	}
}

func TestClientRequests(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.Query()
		switch r.URL.Path {
		case "/api/thetadata/list/expirations":
			w.Write([]byte(`["2024-06-21","2024-09-20"]`))
		case "/api/thetadata/list/strikes":
			w.Write([]byte(`[170,172.5]`))
		case "/api/thetadata/v2/hist/option/eod":
			w.Write([]byte(`{"lastPrice":4.5,"volume":50,"openInterest":6}`))
		case "/api/options/price":
			w.Write([]byte(`{"current":{"lastPrice":1,"volume":2,"openInterest":3},"history":[]}`))
		case "/api/options/chain":
			w.Write([]byte(`{"strikes":[170],"expirations":["2024-06-21"],"options":[]}`))
		case "/api/health":
			w.Write([]byte(`{"status":"ok"}`))
		default:
			w.Write([]byte(`{"chart":{}}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	if err := c.Health(ctx); err != nil {
		t.Errorf("Health() error: %v", err)
	}

	exps, err := c.Expirations(ctx, "AAPL")
	if err != nil || !reflect.DeepEqual(exps, []string{"2024-06-21", "2024-09-20"}) {
		t.Errorf("Expirations() = %v, %v", exps, err)
	}

	strikes, err := c.Strikes(ctx, "AAPL", "2024-06-21")
	if err != nil || !reflect.DeepEqual(strikes, []float64{170, 172.5}) {
		t.Errorf("Strikes() = %v, %v", strikes, err)
	}
	if gotQuery["exp"][0] != "20240621" {
		t.Errorf("strikes exp = %v", gotQuery["exp"])
	}

	req := domain.EODRequest{Root: "AAPL", Expiration: "2024-06-21", Strike: 172.5, Right: domain.RightCall}
	q, err := c.OptionEOD(ctx, req)
	if err != nil || q != (domain.OptionQuote{LastPrice: 4.5, Volume: 50, OpenInterest: 6}) {
		t.Errorf("OptionEOD() = %+v, %v", q, err)
	}
	if gotQuery["strike"][0] != "172.5" || gotQuery["right"][0] != "call" {
		t.Errorf("EOD query = %v", gotQuery)
	}

	price, err := c.OptionPrice(ctx, req)
	if err != nil || price.Current.OpenInterest != 3 {
		t.Errorf("OptionPrice() = %+v, %v", price, err)
	}
	if gotQuery["symbol"][0] != "AAPL" {
		t.Errorf("price query = %v", gotQuery)
	}
	if _, ok := gotQuery["root"]; ok {
		t.Errorf("price query carries root: %v", gotQuery)
	}

	chain, err := c.OptionsChain(ctx, "AAPL", domain.RightPut, "")
	if err != nil || len(chain.Strikes) != 1 {
		t.Errorf("OptionsChain() = %+v, %v", chain, err)
	}
	if gotQuery["type"][0] != "put" {
		t.Errorf("chain query = %v", gotQuery)
	}

	raw, err := c.Chart(ctx, "AAPL", domain.ChartParams{Interval: "1d", Range: "1mo"})
	if err != nil || string(raw) != `{"chart":{}}` {
		t.Errorf("Chart() = %s, %v", raw, err)
	}
	if gotPath != "/api/yahoo/v8/finance/chart/AAPL" {
		t.Errorf("chart path = %q", gotPath)
	}
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to fetch options data: boom","details":{"code":7}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).OptionsChain(context.Background(), "AAPL", domain.RightCall, "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != 500 || apiErr.Message != "Failed to fetch options data: boom" {
		t.Errorf("APIError = %+v", apiErr)
	}
	if !reflect.DeepEqual(apiErr.Details, map[string]any{"code": float64(7)}) {
		t.Errorf("Details = %#v", apiErr.Details)
	}
}

func TestClientNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Expirations(context.Background(), "AAPL")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Message != "relay returned status 502" || apiErr.Details != "bad gateway" {
		t.Errorf("APIError = %+v", apiErr)
	}
}
