package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited signals that the provider rejected the call due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
	// ErrUpstreamBlocked signals that the generative provider refused or filtered the request.
	ErrUpstreamBlocked = errors.New("upstream blocked")
	// ErrUpstreamMalformed signals a provider response that violates its contract.
	ErrUpstreamMalformed = errors.New("upstream malformed")
	// ErrTimeout signals that a remote call exceeded its time budget.
	ErrTimeout = errors.New("timeout")
	// ErrNotFound signals missing content to operate on.
	ErrNotFound = errors.New("not found")
	// ErrInternal signals an unexpected failure.
	ErrInternal = errors.New("internal error")
)

// ErrorKind is the stable failure classification exposed across the pipeline boundary.
type ErrorKind string

const (
	KindRateLimited       ErrorKind = "rate_limited"
	KindUpstreamBlocked   ErrorKind = "upstream_blocked"
	KindUpstreamMalformed ErrorKind = "upstream_malformed"
	KindTimeout           ErrorKind = "timeout"
	KindNotFound          ErrorKind = "not_found"
	KindInternal          ErrorKind = "internal"
)

// PipelineError is the uniform error contract returned by pipeline operations.
// Callers see a stable kind and message, never raw transport errors.
type PipelineError struct {
	Kind       ErrorKind
	Message    string
	RetryAfter time.Duration // non-zero only for retryable kinds
	err        error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.err }

// Retryable reports whether the caller may retry with backoff.
func (e *PipelineError) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindTimeout
}

// NewPipelineError creates a PipelineError with an explicit kind.
func NewPipelineError(kind ErrorKind, msg string) *PipelineError {
	return &PipelineError{Kind: kind, Message: msg, err: sentinelFor(kind)}
}

// ClassifyError converts any component failure into a PipelineError by
// matching the wrapped sentinel. Unknown errors map to KindInternal.
func ClassifyError(err error) *PipelineError {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}

	kind := KindInternal
	var retryAfter time.Duration
	switch {
	case errors.Is(err, ErrRateLimited):
		kind = KindRateLimited
		retryAfter = 30 * time.Second
	case errors.Is(err, ErrUpstreamBlocked):
		kind = KindUpstreamBlocked
	case errors.Is(err, ErrUpstreamMalformed):
		kind = KindUpstreamMalformed
	case errors.Is(err, ErrTimeout):
		kind = KindTimeout
		retryAfter = 5 * time.Second
	case errors.Is(err, ErrNotFound):
		kind = KindNotFound
	}

	return &PipelineError{
		Kind:       kind,
		Message:    err.Error(),
		RetryAfter: retryAfter,
		err:        err,
	}
}

func sentinelFor(kind ErrorKind) error {
	switch kind {
	case KindRateLimited:
		return ErrRateLimited
	case KindUpstreamBlocked:
		return ErrUpstreamBlocked
	case KindUpstreamMalformed:
		return ErrUpstreamMalformed
	case KindTimeout:
		return ErrTimeout
	case KindNotFound:
		return ErrNotFound
	default:
		return ErrInternal
	}
}
