package idempotency

import "errors"

var (
	ErrEmptyKey   = errors.New("idempotency key cannot be empty")
	ErrInvalidTTL = errors.New("idempotency TTL must be positive")
)
