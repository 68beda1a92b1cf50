package renewal

import "errors"

var (
	// ErrScanFailed is returned when the request catalogue cannot be listed.
	// Nothing is renewed on a failed scan.
	ErrScanFailed = errors.New("renewal: catalogue scan failed")

	// ErrRenewalsFailed aggregates per-certificate failures of a run. The
	// run itself completes; inspect the Report for details.
	ErrRenewalsFailed = errors.New("renewal: one or more renewals failed")
)
