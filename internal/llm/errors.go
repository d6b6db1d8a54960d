package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failed generation attempt. The classification feeds
// logs and metrics; routing never branches on it because every provider
// failure triggers the same single fallback.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindRateLimited ErrorKind = "rate_limited"
	KindAuth        ErrorKind = "auth"
	KindNetwork     ErrorKind = "network"
	KindBadResponse ErrorKind = "bad_response"
	KindUnknown     ErrorKind = "unknown"
)

// ProviderError is one failed generation attempt against one backend.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func newProviderError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: Classify(err), Err: err}
}

// SDK errors arrive as opaque strings across providers, so classification
// matches on transport-level substrings.
var kindSubstrings = []struct {
	kind    ErrorKind
	needles []string
}{
	{KindTimeout, []string{
		"context deadline exceeded",
		"connection timeout",
		"timeout",
		"504",
	}},
	{KindRateLimited, []string{
		"429",
		"too many requests",
		"rate limit",
		"quota",
	}},
	{KindAuth, []string{
		"401",
		"403",
		"unauthorized",
		"forbidden",
		"invalid api key",
		"incorrect api key",
		"authentication",
	}},
	{KindNetwork, []string{
		"connection refused",
		"connection reset",
		"no such host",
		"dns lookup failed",
		"network unreachable",
		"broken pipe",
		"temporary failure",
		"service unavailable",
		"502",
		"503",
	}},
	{KindBadResponse, []string{
		"empty response",
		"unexpected end of json",
		"invalid character",
		"malformed",
	}},
}

// Classify maps an underlying SDK or transport error to an ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	msg := strings.ToLower(err.Error())
	for _, row := range kindSubstrings {
		for _, needle := range row.needles {
			if strings.Contains(msg, needle) {
				return row.kind
			}
		}
	}
	return KindUnknown
}
