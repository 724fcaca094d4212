package llm

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	deepseekapi "github.com/cohesion-org/deepseek-go"
	openaiapi "github.com/meguminnnnnnnnn/go-openai"

	"github.com/d00mkeeps/ibhackathon/consts"
)

// RateLimitError reports that the provider throttled the request.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// RetryAfterSeconds is the client-facing delay, never below one second.
func (e *RateLimitError) RetryAfterSeconds() int {
	s := int(e.RetryAfter.Round(time.Second) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

var rateLimitMarkers = []string{
	"rate limit",
	"rate_limit",
	"ratelimit",
	"resource exhausted",
	"resource_exhausted",
	"too many requests",
	"quota exceeded",
}

var (
	statusTooMany = regexp.MustCompile(`(?i)(?:status(?: code)?:?\s*|http\s+)429\b`)
	retryHint     = regexp.MustCompile(`(?i)(?:retry[- ]after|try again in)[^0-9]{0,3}([0-9]+(?:\.[0-9]+)?)\s*(ms|s|sec|seconds?|m|mins?|minutes?)?\b`)
)

// Classify wraps provider throttling errors in *RateLimitError and returns
// any other error unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return err
	}
	msg := strings.ToLower(err.Error())
	if code, ok := providerStatus(err); ok {
		if code == http.StatusTooManyRequests {
			return &RateLimitError{RetryAfter: retryAfter(msg), Err: err}
		}
		return err
	}
	if statusTooMany.MatchString(msg) {
		return &RateLimitError{RetryAfter: retryAfter(msg), Err: err}
	}
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return &RateLimitError{RetryAfter: retryAfter(msg), Err: err}
		}
	}
	return err
}

// providerStatus extracts the HTTP status carried by the openai or deepseek
// client errors that the eino-ext models wrap.
func providerStatus(err error) (int, bool) {
	var apiErr *openaiapi.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openaiapi.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return reqErr.HTTPStatusCode, true
	}
	var dsPtr *deepseekapi.APIError
	if errors.As(err, &dsPtr) && dsPtr.StatusCode > 0 {
		return dsPtr.StatusCode, true
	}
	var dsErr deepseekapi.APIError
	if errors.As(err, &dsErr) && dsErr.StatusCode > 0 {
		return dsErr.StatusCode, true
	}
	return 0, false
}

func retryAfter(msg string) time.Duration {
	def := time.Duration(consts.DefaultRetryAfterSeconds) * time.Second
	m := retryHint.FindStringSubmatch(msg)
	if m == nil {
		return def
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return def
	}
	switch {
	case m[2] == "ms":
		return time.Duration(v * float64(time.Millisecond))
	case strings.HasPrefix(m[2], "m"):
		return time.Duration(v * float64(time.Minute))
	}
	return time.Duration(v * float64(time.Second))
}
