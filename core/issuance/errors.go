package issuance

import "errors"

var (
	// ErrChallengeNotOffered is returned when an authorization carries no
	// DNS-01 challenge. There is no fallback challenge type.
	ErrChallengeNotOffered = errors.New("issuance: no dns-01 challenge offered")

	// ErrAuthority covers rejections and timeouts from the certificate
	// authority; fatal to the order.
	ErrAuthority = errors.New("issuance: authority error")

	// ErrDNSOperation is returned when a challenge record cannot be
	// published; fatal to that authorization.
	ErrDNSOperation = errors.New("issuance: dns operation failed")

	// ErrOrderFailed wraps the aggregate failure of an order.
	ErrOrderFailed = errors.New("issuance: order failed")
)
