package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/lineup/internal/adapters/repository"
	service "github.com/okian/lineup/internal/app"
	"github.com/okian/lineup/internal/domain/player"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("service unavailable")

	ErrEmptyBody = fmt.Errorf("%w: empty request body", ErrBadRequest)
)

// OpError records the handler operation that failed, the kind used to pick
// the HTTP status and the underlying cause.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	switch {
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *OpError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap attaches op to err and classifies it. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Kind: kindOf(err), Err: err}
}

// WrapKind attaches op and an explicit kind to err.
func WrapKind(op string, kind, err error) error {
	return &OpError{Op: op, Kind: kind, Err: err}
}

// NewKind returns an error of the given kind with no further cause.
func NewKind(op string, kind error) error {
	return &OpError{Op: op, Kind: kind}
}

// kindOf maps lower-layer errors onto API kinds. Unknown errors have no
// kind and surface as 500.
func kindOf(err error) error {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, player.ErrInvalidPlayer):
		return ErrBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, repository.ErrConflict):
		return ErrConflict
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrBackpressure):
		return ErrBackpressure
	case errors.Is(err, ErrUnavailable), errors.Is(err, service.ErrNotStarted):
		return ErrUnavailable
	}
	return nil
}

// statusOf returns the HTTP status and error code for err.
func statusOf(err error) (int, string) {
	switch kindOf(err) {
	case ErrBadRequest:
		return http.StatusBadRequest, "bad_request"
	case ErrNotFound:
		return http.StatusNotFound, "not_found"
	case ErrConflict:
		return http.StatusConflict, "conflict"
	case ErrBackpressure:
		return http.StatusTooManyRequests, "backpressure"
	case ErrUnavailable:
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}
