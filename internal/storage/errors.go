package storage

import "errors"

var (
	ErrUnreachable       = errors.New("postgres unreachable")
	ErrStorage           = errors.New("storage failure")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrInvalidFilter     = errors.New("invalid filter")
)
