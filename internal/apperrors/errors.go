// Package apperrors defines the error taxonomy shared by every subsystem.
//
// Kinds are sentinel values so callers can compare with errors.Is; Error
// wraps a kind with operation context the way core.FrameworkError does in
// the teacher framework, without pulling in the rest of that package.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind is one of the taxonomy entries from the error handling design.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindUnauthenticated     Kind = "unauthenticated"
	KindUnauthorized        Kind = "unauthorized"
	KindRateLimited         Kind = "rate_limited"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindPreconditionFailed  Kind = "precondition_failed"
	KindTokenLimit          Kind = "token_limit"
	KindProviderRateLimit   Kind = "rate_limit"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindNetwork             Kind = "network"
	KindTimeout             Kind = "timeout"
	KindInvalidResponse     Kind = "invalid_response"
	KindAuthentication      Kind = "authentication"
	KindChainBroken         Kind = "chain_broken"
	KindSignatureInvalid    Kind = "signature_invalid"
	KindStorageUnavailable  Kind = "storage_unavailable"
	KindInternal            Kind = "internal"
)

// Error is a structured error carrying a taxonomy Kind plus context.
type Error struct {
	Op      string
	Kind    Kind
	ID      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil && e.ID != "":
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error for the given operation/kind.
func New(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Newf builds an Error with a formatted message and no wrapped cause.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error; otherwise returns KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err's Kind equals k.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}

// Retriable reports whether a provider error kind should be retried
// locally by the AI Gateway per spec §4.4/§7.
func Retriable(k Kind) bool {
	switch k {
	case KindProviderRateLimit, KindTimeout, KindNetwork, KindProviderUnavailable:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a Kind to the HTTP status code spec §7 specifies.
func HTTPStatus(k Kind) int {
	switch k {
	case KindUnauthenticated:
		return 401
	case KindUnauthorized:
		return 403
	case KindRateLimited:
		return 429
	case KindNotFound:
		return 404
	case KindInvalidInput:
		return 400
	case KindConflict:
		return 409
	default:
		return 500
	}
}
