package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies a failure the way the admin panel needs to report it.
type Kind string

const (
	InvalidInput        Kind = "invalid_input"
	NetworkError        Kind = "network_error"
	PermissionDenied    Kind = "permission_denied"
	NotFound            Kind = "not_found"
	QuotaOrSizeExceeded Kind = "quota_or_size_exceeded"
	Unknown             Kind = "unknown"
)

// ErrUploadFailed marks errors produced by the media upload step.
var ErrUploadFailed = errors.New("upload failed")

// Error is a classified error with the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Invalid reports a missing or malformed input detected before any backend call.
func Invalid(op, format string, args ...any) *Error {
	return &Error{Kind: InvalidInput, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in the chain, Unknown otherwise.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FromBackend classifies an error returned by Firestore, Cloud Storage or the
// network stack. Already classified errors are returned unchanged.
func FromBackend(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: classify(err), Op: op, Err: err}
}

func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NetworkError
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return PermissionDenied
		case http.StatusNotFound:
			return NotFound
		case http.StatusTooManyRequests, http.StatusRequestEntityTooLarge, http.StatusInsufficientStorage:
			return QuotaOrSizeExceeded
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return NetworkError
		}
		return Unknown
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.PermissionDenied, codes.Unauthenticated:
			return PermissionDenied
		case codes.NotFound:
			return NotFound
		case codes.ResourceExhausted:
			return QuotaOrSizeExceeded
		case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
			return NetworkError
		case codes.InvalidArgument:
			return InvalidInput
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return NetworkError
	}
	return Unknown
}
