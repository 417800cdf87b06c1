package qsieve

import "github.com/pkg/errors"

// Errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrConfig       = errors.New("invalid sieve configuration")
	ErrNoPolynomial = errors.New("no admissible polynomial")
	ErrWorkerPanic  = errors.New("sieve worker panicked")
)
