package route53

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"
)

var (
	// ErrInvalidConfig is returned when the provider is constructed without
	// required settings.
	ErrInvalidConfig = errors.New("route53: invalid config")

	// ErrZoneNotFound is returned when the hosted zone does not exist or the
	// credentials cannot see it.
	ErrZoneNotFound = errors.New("route53: hosted zone not found")

	// ErrThrottled is returned when Route 53 rejects the request for rate or
	// concurrency reasons. Retryable.
	ErrThrottled = errors.New("route53: request throttled")

	// ErrOperationTimeout is returned when the context deadline expires
	// mid-operation.
	ErrOperationTimeout = errors.New("route53: operation timed out")
)

// classifyError converts Route 53 errors to domain errors so callers can
// branch on sentinel values instead of SDK types.
func classifyError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrOperationTimeout, operation)
	}

	var nsz *types.NoSuchHostedZone
	if errors.As(err, &nsz) {
		return fmt.Errorf("%w: %s", ErrZoneNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchHostedZone":
			return fmt.Errorf("%w: %s", ErrZoneNotFound, err)
		case "Throttling", "ThrottlingException", "PriorRequestNotComplete":
			return fmt.Errorf("%w: %s", ErrThrottled, operation)
		default:
			return fmt.Errorf("%s failed (code: %s): %w", operation, apiErr.ErrorCode(), err)
		}
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}
