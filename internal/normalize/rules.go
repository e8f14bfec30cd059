package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"optiscope/internal/domain"
)

// Expirations shapes a {response: [YYYYMMDD, ...]} body into ascending ISO
// dates, dropping everything older than six months before now.
func Expirations(body []byte, now time.Time) ([]string, error) {
	items, _, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	cutoff := ExpirationCutoff(now)
	seen := make(map[string]struct{}, len(items))
	dates := make([]string, 0, len(items))
	for i, raw := range items {
		v, err := parseDateInt(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: expiration %d: %v", ErrInvalidUpstreamFormat, i, err)
		}
		if v < cutoff {
			continue
		}
		d := FormatDateInt(v)
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}

	sort.Strings(dates)
	return dates, nil
}

// Strikes shapes a {response: [scaled-strike, ...]} body into ascending
// decimal strikes.
func Strikes(body []byte) ([]float64, error) {
	items, _, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	strikes := make([]float64, 0, len(items))
	for i, raw := range items {
		d, err := decimal.NewFromString(string(bytes.Trim(bytes.TrimSpace(raw), `"`)))
		if err != nil {
			return nil, fmt.Errorf("%w: strike %d: %v", ErrInvalidUpstreamFormat, i, err)
		}
		strikes = append(strikes, unscaleDecimal(d))
	}

	sort.Float64s(strikes)
	return strikes, nil
}

// OptionEOD reduces an EOD history body to its most recent row (the LAST
// element). An empty history is not an error: it yields the zero quote.
func OptionEOD(body []byte) (domain.OptionQuote, error) {
	items, format, err := decodeEnvelope(body)
	if err != nil {
		return domain.OptionQuote{}, err
	}
	if len(items) == 0 {
		return domain.OptionQuote{}, nil
	}
	return decodeRow(items[len(items)-1], columnIndex(format)).quote(), nil
}

// OptionList reduces a list body to its FIRST row and, unlike OptionEOD,
// fails with ErrNoDataAvailable when the array is empty.
func OptionList(body []byte) (domain.OptionQuote, error) {
	items, format, err := decodeEnvelope(body)
	if err != nil {
		return domain.OptionQuote{}, err
	}
	if len(items) == 0 {
		return domain.OptionQuote{}, ErrNoDataAvailable
	}
	return decodeRow(items[0], columnIndex(format)).quote(), nil
}

// OptionHistory decodes every row of an EOD history body. Current follows
// the OptionEOD rule: the last row, or zero when the history is empty.
func OptionHistory(body []byte) (domain.OptionPrice, error) {
	items, format, err := decodeEnvelope(body)
	if err != nil {
		return domain.OptionPrice{}, err
	}

	cols := columnIndex(format)
	price := domain.OptionPrice{History: make([]domain.OptionPricePoint, 0, len(items))}
	for _, raw := range items {
		row := decodeRow(raw, cols)
		price.History = append(price.History, row.point())
		price.Current = row.quote()
	}
	return price, nil
}

// parseDateInt accepts a JSON integer or a quoted integer.
func parseDateInt(raw json.RawMessage) (int64, error) {
	tok := string(bytes.Trim(bytes.TrimSpace(raw), `"`))
	return strconv.ParseInt(tok, 10, 64)
}
