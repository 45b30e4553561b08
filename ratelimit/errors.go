package ratelimit

import (
	"math"
	"net/http"

	"github.com/goliatone/go-errors"
)

var (
	// ErrRateLimited is returned when a key exhausted its budget for the window
	ErrRateLimited = errors.New("Rate limit exceeded", errors.CategoryRateLimit).
			WithTextCode("RATE_LIMITED").
			WithCode(http.StatusTooManyRequests)

	// ErrRedisUnavailable wraps transport failures talking to Redis
	ErrRedisUnavailable = errors.New("rate limit store unavailable", errors.CategoryInternal).
				WithTextCode("RATE_LIMIT_STORE_UNAVAILABLE").
				WithCode(errors.CodeInternal)

	// ErrInvalidPolicy is returned by Policy.Validate
	ErrInvalidPolicy = errors.New("invalid rate limit policy", errors.CategoryBadInput).
				WithTextCode("INVALID_RATE_LIMIT_POLICY").
				WithCode(errors.CodeBadRequest)
)

// RateLimitedError describes a rejected request under policy
func RateLimitedError(policy Policy, res Result) *errors.Error {
	retry := int(math.Ceil(res.ResetAfter.Seconds()))
	if retry < 1 {
		retry = 1
	}

	err := ErrRateLimited.Clone()
	err.Message = "Rate limit exceeded: " + policy.String()
	return err.WithMetadata(map[string]any{
		"policy":      policy.Name,
		"limit":       res.Limit,
		"retry_after": retry,
	})
}
