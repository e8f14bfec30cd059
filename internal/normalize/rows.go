package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"optiscope/internal/domain"
)

// envelope is the daemon's response wrapper. Header.Format, when present,
// names the columns of positional rows.
type envelope struct {
	Header   json.RawMessage `json:"header"`
	Response json.RawMessage `json:"response"`
}

type header struct {
	Format []string `json:"format"`
}

// decodeEnvelope returns the elements of body's response array together with
// the header's column names (nil when the header carries none).
func decodeEnvelope(body []byte) ([]json.RawMessage, []string, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidUpstreamFormat, err)
	}

	raw := bytes.TrimSpace(env.Response)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, nil, ErrInvalidUpstreamFormat
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidUpstreamFormat, err)
	}

	var h header
	if len(env.Header) > 0 {
		// A header we cannot read just means positional defaults.
		_ = json.Unmarshal(env.Header, &h)
	}
	return items, h.Format, nil
}

// eodRow is one decoded end-of-day record.
type eodRow struct {
	Open, High, Low, Close float64
	Volume, OpenInterest   int64
	Date                   string
}

func (r eodRow) quote() domain.OptionQuote {
	return domain.OptionQuote{
		LastPrice:    r.Close,
		Volume:       r.Volume,
		OpenInterest: r.OpenInterest,
	}
}

func (r eodRow) point() domain.OptionPricePoint {
	return domain.OptionPricePoint{
		Date:         r.Date,
		Open:         r.Open,
		High:         r.High,
		Low:          r.Low,
		Close:        r.Close,
		Volume:       r.Volume,
		OpenInterest: r.OpenInterest,
	}
}

// defaultColumns is the positional layout used when the envelope has no
// header: [open, high, low, close, volume, open_interest, date].
var defaultColumns = map[string]int{
	"open":          0,
	"high":          1,
	"low":           2,
	"close":         3,
	"volume":        4,
	"open_interest": 5,
	"date":          6,
}

func columnIndex(format []string) map[string]int {
	if len(format) == 0 {
		return defaultColumns
	}
	idx := make(map[string]int, len(format))
	for i, name := range format {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

// decodeRow reads a positional array or a named object. Any field that is
// absent, null, zero or non-numeric decodes as zero; a row that is neither an
// array nor an object decodes as the zero row.
func decodeRow(raw json.RawMessage, cols map[string]int) eodRow {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return eodRow{}
	}

	var field func(name string) any
	switch t := v.(type) {
	case []any:
		field = func(name string) any {
			i, ok := cols[name]
			if !ok || i < 0 || i >= len(t) {
				return nil
			}
			return t[i]
		}
	case map[string]any:
		field = func(name string) any { return t[name] }
	default:
		return eodRow{}
	}

	return eodRow{
		Open:         toFloat(field("open")),
		High:         toFloat(field("high")),
		Low:          toFloat(field("low")),
		Close:        toFloat(field("close")),
		Volume:       toInt(field("volume")),
		OpenInterest: toInt(field("open_interest")),
		Date:         toDate(field("date")),
	}
}

func toFloat(v any) float64 {
	var f float64
	switch t := v.(type) {
	case json.Number:
		f, _ = t.Float64()
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toInt(v any) int64 {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	return int64(toFloat(v))
}

func toDate(v any) string {
	switch t := v.(type) {
	case string:
		return InsertDashes(strings.TrimSpace(t))
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return FormatDateInt(i)
		}
	}
	return ""
}
