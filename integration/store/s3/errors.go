package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/certkeeper/core/certstore"
)

var (
	// ErrInvalidConfig is returned when the store is constructed without
	// required settings.
	ErrInvalidConfig = errors.New("s3store: invalid config")

	// ErrNoPendingRequest is returned when a merge finds no staged key for
	// the certificate.
	ErrNoPendingRequest = errors.New("s3store: no pending certificate request")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("s3store: bucket not found")

	// ErrOperationTimeout is returned when the context deadline expires
	// mid-operation.
	ErrOperationTimeout = errors.New("s3store: operation timed out")
)

// classifyError converts S3 errors to domain errors. A missing object maps to
// certstore.ErrCertificateNotFound so the renewal scan can treat it as
// "never issued".
func classifyError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrOperationTimeout, operation)
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return certstore.ErrCertificateNotFound
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return ErrBucketNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey":
			return certstore.ErrCertificateNotFound
		case "NoSuchBucket":
			return ErrBucketNotFound
		default:
			return fmt.Errorf("%s failed (code: %s): %w", operation, apiErr.ErrorCode(), err)
		}
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}

// isNotFound reports whether err means the object does not exist.
func isNotFound(err error) bool {
	return errors.Is(err, certstore.ErrCertificateNotFound)
}
