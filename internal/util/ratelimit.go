package util

import "golang.org/x/time/rate"

// NewRateLimiter returns a token-bucket limiter allowing perSecond requests
// per second with the given burst. A non-positive perSecond means no limit
// and yields nil; callers skip waiting on a nil limiter.
func NewRateLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
