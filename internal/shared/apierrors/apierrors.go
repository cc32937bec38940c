// Package apierrors is the error taxonomy shared by the agent and cluster
// RPC surfaces (spec §7): a small set of named error kinds, each mapped to
// a grpc status code so handlers propagate consistent semantics instead of
// ad-hoc strings.
package apierrors

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindContainerNotFound
	KindPermissionDenied
	KindUnsupportedLogDriver
	KindNotSwarmManager
	KindNotInSwarm
	KindInvalidArgument
	KindParseLineTooLarge
	KindParseNonUTF8
	KindParseFailed
	KindParserPanic
	KindTimeout
	KindConnectionFailed
)

// Error wraps an underlying cause with a taxonomy Kind, so callers on
// either side of the RPC boundary can branch on Kind without parsing
// message text.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// grpcCode maps each taxonomy Kind to the status code the RPC layer
// surfaces to callers (spec §7's "Propagation" column).
func (k Kind) grpcCode() codes.Code {
	switch k {
	case KindContainerNotFound:
		return codes.NotFound
	case KindPermissionDenied:
		return codes.PermissionDenied
	case KindUnsupportedLogDriver:
		return codes.FailedPrecondition
	case KindNotSwarmManager:
		return codes.Unavailable
	case KindNotInSwarm:
		return codes.FailedPrecondition
	case KindInvalidArgument:
		return codes.InvalidArgument
	case KindTimeout:
		return codes.DeadlineExceeded
	case KindConnectionFailed:
		return codes.Unavailable
	case KindParseLineTooLarge, KindParseNonUTF8, KindParseFailed, KindParserPanic:
		return codes.Internal
	default:
		return codes.Unknown
	}
}

// ToStatus converts err to a grpc status error when it carries a known
// Kind; otherwise it is wrapped as codes.Unknown.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if asError(err, &apiErr) {
		return status.Error(apiErr.Kind.grpcCode(), apiErr.Error())
	}
	return status.Error(codes.Unknown, err.Error())
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
