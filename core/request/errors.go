package request

import "errors"

var (
	// ErrMalformedDocument is returned when a request document cannot be decoded.
	ErrMalformedDocument = errors.New("request: malformed document")

	// ErrEmptyCommonName is returned when certKey.commonName is missing.
	ErrEmptyCommonName = errors.New("request: common name is required")

	// ErrInvalidDNSName is returned when a name is not a valid DNS name.
	ErrInvalidDNSName = errors.New("request: invalid DNS name")

	// ErrInvalidKeySize is returned when certKey.keySize is not positive.
	ErrInvalidKeySize = errors.New("request: key size must be a positive integer")

	// ErrDuplicateName is returned when alternative names repeat each other
	// or the common name.
	ErrDuplicateName = errors.New("request: duplicate name")

	// ErrMissingZone is returned when the DNS zone name is missing.
	ErrMissingZone = errors.New("request: DNS zone name is required")

	// ErrMissingDirectoryURL is returned when the ACME directory URL is missing.
	ErrMissingDirectoryURL = errors.New("request: ACME directory URL is required")
)
