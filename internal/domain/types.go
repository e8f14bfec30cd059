// Package domain defines the plain value records exchanged between the relay,
// the options aggregator and the dashboard. None of them outlive a single
// request/response.
package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Stock quotes and candles
// ---------------------------------------------------------------------------

// Quote is a point-in-time stock quote. Prices carry two decimal places.
type Quote struct {
	Current       float64 `json:"c"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"` // epoch seconds
}

// CandleSeries holds parallel OHLCV sequences; index i describes one trading
// session.
type CandleSeries struct {
	Timestamps []int64   `json:"t"`
	Open       []float64 `json:"o"`
	High       []float64 `json:"h"`
	Low        []float64 `json:"l"`
	Close      []float64 `json:"c"`
	Volume     []int64   `json:"v"`
	Status     string    `json:"s"`
}

// CandleStatusOK is the status flag of a well-formed series.
const CandleStatusOK = "ok"

// Len returns the number of sessions in the series.
func (c *CandleSeries) Len() int { return len(c.Timestamps) }

// Validate checks that every parallel sequence has the same length.
func (c *CandleSeries) Validate() error {
	n := len(c.Timestamps)
	if len(c.Open) != n || len(c.High) != n || len(c.Low) != n || len(c.Close) != n || len(c.Volume) != n {
		return fmt.Errorf("candle series length mismatch: t=%d o=%d h=%d l=%d c=%d v=%d",
			n, len(c.Open), len(c.High), len(c.Low), len(c.Close), len(c.Volume))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Right is the contract direction of an option.
type Right string

const (
	RightCall Right = "call"
	RightPut  Right = "put"
)

// ParseRight maps user input onto a Right. "call" in any case is a call;
// everything else is a put, matching the upstream letter mapping.
func ParseRight(s string) Right {
	if strings.EqualFold(strings.TrimSpace(s), string(RightCall)) {
		return RightCall
	}
	return RightPut
}

// Code returns the single-letter upstream encoding: "C" for calls, "P" for
// anything else.
func (r Right) Code() string {
	if strings.EqualFold(string(r), string(RightCall)) {
		return "C"
	}
	return "P"
}

// OptionQuote is the most recent price summary of one contract.
type OptionQuote struct {
	LastPrice    float64 `json:"lastPrice"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"openInterest"`
}

// OptionPricePoint is one end-of-day row of a contract's history.
type OptionPricePoint struct {
	Date         string  `json:"date"` // YYYY-MM-DD
	Open         float64 `json:"open"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	Close        float64 `json:"lastPrice"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"openInterest"`
}

// OptionPrice pairs the current summary with the full EOD history.
type OptionPrice struct {
	Current OptionQuote        `json:"current"`
	History []OptionPricePoint `json:"history"`
}

// OptionEntry is one strike's row in an aggregated chain.
type OptionEntry struct {
	Strike       float64 `json:"strike"`
	Expiration   string  `json:"expiration"`
	LastPrice    float64 `json:"lastPrice"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"openInterest"`
}

// OptionsData is the aggregated chain for one symbol, right and expiration.
type OptionsData struct {
	Strikes     []float64     `json:"strikes"`
	Expirations []string      `json:"expirations"`
	Options     []OptionEntry `json:"options"`
}

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// EODRequest identifies one contract and an optional date window. Strike is
// the decimal price; dates are YYYY-MM-DD or YYYYMMDD.
type EODRequest struct {
	Root       string
	Expiration string
	Strike     float64
	Right      Right
	StartDate  string
	EndDate    string
}

// ChartParams selects the window of a chart request. Either Range or both
// Period1 and Period2 (epoch seconds) should be set.
type ChartParams struct {
	Interval string // e.g. "1d"
	Range    string // e.g. "1mo"
	Period1  int64
	Period2  int64
}

// Values renders p as chart query parameters.
func (p ChartParams) Values() url.Values {
	q := url.Values{}
	if p.Interval != "" {
		q.Set("interval", p.Interval)
	}
	if p.Range != "" {
		q.Set("range", p.Range)
	}
	if p.Period1 != 0 || p.Period2 != 0 {
		q.Set("period1", strconv.FormatInt(p.Period1, 10))
		q.Set("period2", strconv.FormatInt(p.Period2, 10))
	}
	return q
}
