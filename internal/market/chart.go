package market

import (
	"encoding/json"
	"fmt"

	"github.com/guregu/null/v6"
)

// chartEnvelope is the chart provider's response: chart.result[0] carries
// the meta block and parallel, nullable OHLCV series.
type chartEnvelope struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartMeta struct {
	Symbol               string     `json:"symbol"`
	Currency             string     `json:"currency"`
	RegularMarketPrice   null.Float `json:"regularMarketPrice"`
	RegularMarketDayHigh null.Float `json:"regularMarketDayHigh"`
	RegularMarketDayLow  null.Float `json:"regularMarketDayLow"`
	ChartPreviousClose   null.Float `json:"chartPreviousClose"`
	PreviousClose        null.Float `json:"previousClose"`
	RegularMarketTime    null.Int   `json:"regularMarketTime"`
}

type chartQuote struct {
	Open   []null.Float `json:"open"`
	High   []null.Float `json:"high"`
	Low    []null.Float `json:"low"`
	Close  []null.Float `json:"close"`
	Volume []null.Float `json:"volume"`
}

// decodeChart returns the first chart result or ErrInvalidData.
func decodeChart(body []byte) (*chartResult, error) {
	var env chartEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if e := env.Chart.Error; e != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidData, e.Code, e.Description)
	}
	if len(env.Chart.Result) == 0 {
		return nil, ErrInvalidData
	}
	return &env.Chart.Result[0], nil
}

// quoteSeries returns the first indicator quote, or an empty one.
func (r *chartResult) quoteSeries() chartQuote {
	if len(r.Indicators.Quote) == 0 {
		return chartQuote{}
	}
	return r.Indicators.Quote[0]
}

func at(s []null.Float, i int) null.Float {
	if i < 0 || i >= len(s) {
		return null.Float{}
	}
	return s[i]
}
