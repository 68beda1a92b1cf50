package pembundle

import "errors"

var (
	// ErrEmptyCertificate is returned when a bundle has no certificate chain.
	ErrEmptyCertificate = errors.New("pembundle: empty certificate chain")

	// ErrMissingPrivateKey is returned when a bundle has no private key.
	ErrMissingPrivateKey = errors.New("pembundle: missing private key")

	// ErrKeyEncoding is returned when a private key cannot be encoded to or
	// decoded from PKCS#8.
	ErrKeyEncoding = errors.New("pembundle: private key encoding failed")

	// ErrMalformedBundle is returned when the bundle text cannot be parsed.
	ErrMalformedBundle = errors.New("pembundle: malformed bundle")
)
