package lock

import "errors"

var (
	ErrEmptyKey   = errors.New("lock key cannot be empty")
	ErrEmptyToken = errors.New("lock token cannot be empty")
	ErrInvalidTTL = errors.New("lock TTL must be positive")
)
