package normalize

import "errors"

var (
	// ErrInvalidUpstreamFormat is returned when the daemon's JSON lacks the
	// {response: [...]} envelope or the array holds values of the wrong kind.
	ErrInvalidUpstreamFormat = errors.New("invalid response format from ThetaData API")

	// ErrNoDataAvailable is returned by rules that need at least one row and
	// received an empty array.
	ErrNoDataAvailable = errors.New("no option data available")

	// ErrMissingParam is returned when a required query parameter is absent.
	ErrMissingParam = errors.New("missing required parameter")

	// ErrInvalidParam is returned when a query parameter cannot be parsed.
	ErrInvalidParam = errors.New("invalid parameter")
)
