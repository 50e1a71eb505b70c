package service

import "errors"

// Service error kinds. Store lookups surface repository.ErrNotFound and
// repository.ErrConflict unchanged.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrBackpressure   = errors.New("history queue is full")
	ErrNotStarted     = errors.New("service not started")
)
