// Package renewal decides which certificates need attention and drives their
// reissuance. The clock answers "is this certificate due", the selector turns
// the request catalogue plus store metadata into a work list, and the
// coordinator fans the work list out to the issuance workflow with one run
// per invocation.
package renewal
