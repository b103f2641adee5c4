package apperr

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error kinds. Concrete errors wrap exactly one of these.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrValidation  = errors.New("invalid input")
	ErrUnavailable = errors.New("upstream unavailable")
)

type Error struct {
	kind error
	msg  string
}

// New declares a concrete error of the given kind.
func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Kind returns the sentinel kind of err, or nil for errors outside the taxonomy.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrConflict, ErrValidation, ErrUnavailable} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

func GRPCCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	switch Kind(err) {
	case ErrNotFound:
		return codes.NotFound
	case ErrConflict:
		return codes.AlreadyExists
	case ErrValidation:
		return codes.InvalidArgument
	case ErrUnavailable:
		return codes.Unavailable
	}
	return codes.Internal
}

// ToStatus converts err into a grpc status error. Internal errors lose their message.
func ToStatus(err error) error {
	code := GRPCCode(err)
	if code == codes.Internal {
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}

// HTTPStatus maps err to an HTTP status, a stable code and a caller-safe message.
func HTTPStatus(err error) (int, string, string) {
	msg := "internal error"
	if s, ok := status.FromError(err); ok {
		msg = s.Message()
	} else if Kind(err) != nil {
		msg = err.Error()
	}

	switch GRPCCode(err) {
	case codes.InvalidArgument:
		return http.StatusBadRequest, "INVALID_ARGUMENT", msg
	case codes.NotFound:
		return http.StatusNotFound, "NOT_FOUND", msg
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict, "CONFLICT", msg
	case codes.Unauthenticated:
		return http.StatusUnauthorized, "UNAUTHENTICATED", msg
	case codes.Unavailable, codes.DeadlineExceeded:
		return http.StatusServiceUnavailable, "UNAVAILABLE", msg
	}
	return http.StatusInternalServerError, "INTERNAL", "internal error"
}
