package options

import (
	"fmt"
	"time"

	"optiscope/internal/normalize"
)

const isoDate = "2006-01-02"

// DateRange returns the default EOD window for an expiration: one year
// ending at the expiration, with a start in the future clamped to now.
// expiration may be YYYY-MM-DD or YYYYMMDD; results are YYYY-MM-DD.
func DateRange(expiration string, now time.Time) (start, end string, err error) {
	exp, err := time.ParseInLocation(isoDate, normalize.InsertDashes(expiration), now.Location())
	if err != nil {
		return "", "", fmt.Errorf("parsing expiration %q: %w", expiration, err)
	}

	from := exp.AddDate(-1, 0, 0)
	if from.After(now) {
		from = now
	}
	return from.Format(isoDate), exp.Format(isoDate), nil
}
