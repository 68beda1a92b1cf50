package config

import "errors"

var (
	// ErrNilConfig is returned when a nil pointer is passed to Load.
	ErrNilConfig = errors.New("config: nil config pointer")

	// ErrParseFailed is returned when environment parsing fails.
	ErrParseFailed = errors.New("config: failed to parse environment")
)
