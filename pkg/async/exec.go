package async

import (
	"context"
	"errors"
)

// Future represents the result of an asynchronous computation that only
// returns an error.
type Future struct {
	err  error
	done chan struct{}
}

// Await blocks until the asynchronous function completes and returns its error.
func (f *Future) Await() error {
	<-f.done
	return f.err
}

// IsComplete reports whether the asynchronous function has completed,
// without blocking.
func (f *Future) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Exec executes fn asynchronously with the given parameter and returns a
// Future for its completion. A pre-canceled context short-circuits without
// invoking fn.
func Exec[T any](ctx context.Context, param T, fn func(context.Context, T) error) *Future {
	f := &Future{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		select {
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		default:
		}

		f.err = fn(ctx, param)
	}()

	return f
}

// AwaitAll waits for every future to complete and returns the joined errors,
// or nil if all succeeded. Unlike a fail-fast join, AwaitAll never returns
// before each future has reached a terminal outcome.
func AwaitAll(futures ...*Future) error {
	errs := make([]error, 0, len(futures))
	for _, future := range futures {
		if err := future.Await(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
