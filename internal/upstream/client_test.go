package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
	"time"
)

func TestGetSuccess(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":[1,2]}`))
	}))
	defer srv.Close()

	c := New("thetadata", Config{BaseURL: srv.URL + "/"})
	body, err := c.Get(context.Background(), "list/strikes", url.Values{"root": {"AAPL"}, "exp": {"20240119"}})
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(body) != `{"response":[1,2]}` {
		t.Errorf("Get() body = %s", body)
	}
	if gotPath != "/list/strikes" {
		t.Errorf("path = %q, want /list/strikes", gotPath)
	}
	want := url.Values{"root": {"AAPL"}, "exp": {"20240119"}}
	if !reflect.DeepEqual(gotQuery, want) {
		t.Errorf("query = %v, want %v", gotQuery, want)
	}
}

func TestGetHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"no such root"}`))
	}))
	defer srv.Close()

	c := New("thetadata", Config{BaseURL: srv.URL})
	_, err := c.Get(context.Background(), "list/expirations", nil)

	var uerr *Error
	if !errors.As(err, &uerr) {
		t.Fatalf("Get() error = %v, want *Error", err)
	}
	if uerr.Kind != KindHTTP || uerr.Status != http.StatusNotFound {
		t.Errorf("error kind/status = %v/%d, want http/404", uerr.Kind, uerr.Status)
	}
	want := map[string]any{"message": "no such root"}
	if !reflect.DeepEqual(uerr.Details(), want) {
		t.Errorf("Details() = %#v, want %#v", uerr.Details(), want)
	}
}

func TestGetUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New("thetadata", Config{BaseURL: base, Timeout: time.Second})
	_, err := c.Get(context.Background(), "list/expirations", nil)

	var uerr *Error
	if !errors.As(err, &uerr) {
		t.Fatalf("Get() error = %v, want *Error", err)
	}
	if uerr.Kind != KindUnreachable {
		t.Errorf("Kind = %v, want unreachable", uerr.Kind)
	}
	if uerr.Details() != nil {
		t.Errorf("Details() = %v, want nil", uerr.Details())
	}
}

func TestGetRespectsCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New("yahoo", Config{BaseURL: srv.URL, RatePerSecond: 1, Burst: 1})
	_, err := c.Get(ctx, "v8/finance/chart/AAPL", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
}

func TestErrorDetailsText(t *testing.T) {
	e := &Error{Provider: "yahoo", Kind: KindHTTP, Status: 502, Body: []byte("  Bad Gateway\n")}
	if got := e.Details(); got != "Bad Gateway" {
		t.Errorf("Details() = %#v, want %q", got, "Bad Gateway")
	}
	if e.Error() != "yahoo: upstream returned status 502" {
		t.Errorf("Error() = %q", e.Error())
	}
}
