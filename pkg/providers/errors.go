package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind tells the orchestrator and logs why a fetch produced no data.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindTransient    Kind = "transient"
	KindRateLimited  Kind = "rate_limited"
	KindAuth         Kind = "auth"
	KindDecode       Kind = "decode"
	KindUnconfigured Kind = "unconfigured"
)

// FetchError describes a failed provider fetch.
type FetchError struct {
	Provider   string
	Kind       Kind
	Status     int
	RetryAfter string
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.Status > 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether a later attempt could succeed.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case KindTransient, KindRateLimited:
		return true
	default:
		return false
	}
}

// KindOf extracts the Kind from err, or "" when err is not a FetchError.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// statusError maps a non-200 provider status to a FetchError. It returns nil
// for statuses that are reported as "no data".
func statusError(provider string, status int, retryAfter string, body []byte) *FetchError {
	detail := errors.New(responseSnippet(body))
	switch {
	case status == http.StatusTooManyRequests:
		return &FetchError{Provider: provider, Kind: KindRateLimited, Status: status, RetryAfter: retryAfter, Err: detail}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &FetchError{Provider: provider, Kind: KindAuth, Status: status, Err: detail}
	case status == http.StatusNotFound:
		return &FetchError{Provider: provider, Kind: KindNotFound, Status: status}
	case status >= http.StatusInternalServerError:
		return &FetchError{Provider: provider, Kind: KindTransient, Status: status, Err: detail}
	default:
		return nil
	}
}

// transportError wraps a failed round trip.
func transportError(provider string, err error) *FetchError {
	fe := &FetchError{Provider: provider, Kind: KindTransient, Err: err}
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		fe.Err = fmt.Errorf("timeout: %w", err)
	}
	return fe
}
