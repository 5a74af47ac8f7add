package domain

import "errors"

var (
	// ErrInvalidInput marks inputs rejected at the engine boundary.
	ErrInvalidInput = errors.New("invalid input")

	// ErrComputationDegenerate marks a derived quantity (such as the wind
	// profile log term) that left its valid domain.
	ErrComputationDegenerate = errors.New("degenerate computation")

	// ErrUpstreamUnavailable marks a weather or vegetation source that could
	// not be reached after retries.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
