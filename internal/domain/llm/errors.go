package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnavailable means the backend is unreachable or failed its health check.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrProviderFailed means a reachable backend returned an error or a malformed body.
	ErrProviderFailed = errors.New("provider error")
	// ErrQuotaExceeded indicates the provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded = errors.New("ai quota exceeded")
	// ErrUnknownProvider is returned when routing names a backend that is not registered.
	ErrUnknownProvider = errors.New("provider not registered")
)

// Kind classifies a backend failure.
type Kind string

const (
	KindUnavailable Kind = "unavailable"
	KindResponse    Kind = "response"
)

// Error is the single normalized error kind every backend returns.
type Error struct {
	Backend string
	Kind    Kind
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == KindUnavailable {
		return fmt.Sprintf("provider %s unavailable: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("provider %s error: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match the sentinel that corresponds to the kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrProviderUnavailable:
		return e.Kind == KindUnavailable
	case ErrProviderFailed:
		return e.Kind == KindResponse
	}
	return false
}

// Unavailable wraps cause as a ProviderUnavailable error for backend.
func Unavailable(backend string, cause error) error {
	return &Error{Backend: backend, Kind: KindUnavailable, Err: cause}
}

// Failed wraps cause as a ProviderError for backend.
func Failed(backend string, cause error) error {
	return &Error{Backend: backend, Kind: KindResponse, Err: cause}
}

// Retryable reports whether err is an infrastructure failure worth retrying.
func Retryable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrProviderFailed)
}
