package normalize

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"optiscope/internal/domain"
)

// EOD query parameter names shared by the dashboard and the daemon.
const (
	ParamRoot      = "root"
	ParamExp       = "exp"
	ParamStrike    = "strike"
	ParamRight     = "right"
	ParamStartDate = "start_date"
	ParamEndDate   = "end_date"
)

// EODValues renders req as the dashboard-side EOD query, the input form of
// EODQuery.
func EODValues(req domain.EODRequest) url.Values {
	q := url.Values{}
	q.Set(ParamRoot, req.Root)
	q.Set(ParamExp, req.Expiration)
	q.Set(ParamStrike, strconv.FormatFloat(req.Strike, 'f', -1, 64))
	q.Set(ParamRight, string(req.Right))
	if req.StartDate != "" {
		q.Set(ParamStartDate, req.StartDate)
	}
	if req.EndDate != "" {
		q.Set(ParamEndDate, req.EndDate)
	}
	return q
}

// EODQuery rewrites a dashboard EOD query into the daemon's form: dashes are
// stripped from dates, the right becomes C or P and the decimal strike is
// scaled. Optional dates are only sent when non-empty.
func EODQuery(in url.Values) (url.Values, error) {
	for _, name := range []string{ParamRoot, ParamExp, ParamStrike, ParamRight} {
		if strings.TrimSpace(in.Get(name)) == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingParam, name)
		}
	}

	strike, err := strconv.ParseFloat(strings.TrimSpace(in.Get(ParamStrike)), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: strike %q", ErrInvalidParam, in.Get(ParamStrike))
	}

	out := url.Values{}
	out.Set(ParamRoot, in.Get(ParamRoot))
	out.Set(ParamExp, StripDashes(in.Get(ParamExp)))
	out.Set(ParamStrike, strconv.FormatInt(ScaleStrike(strike), 10))
	out.Set(ParamRight, domain.ParseRight(in.Get(ParamRight)).Code())
	if v := in.Get(ParamStartDate); v != "" {
		out.Set(ParamStartDate, StripDashes(v))
	}
	if v := in.Get(ParamEndDate); v != "" {
		out.Set(ParamEndDate, StripDashes(v))
	}
	return out, nil
}
