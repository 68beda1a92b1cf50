package certstore

import "errors"

var (
	// ErrCertificateNotFound means no certificate was ever provisioned under
	// the given name. It is a valid read outcome, never escalated as a fault.
	ErrCertificateNotFound = errors.New("certstore: certificate not found")

	// ErrStoreFault covers every other store failure; fatal to the request
	// being processed.
	ErrStoreFault = errors.New("certstore: store operation failed")
)
