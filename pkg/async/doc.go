// Package async provides a minimal future primitive for fanning out
// I/O-bound work and joining on its completion.
//
// Exec starts a function on its own goroutine and returns a Future.
// AwaitAll is an all-complete barrier: it waits for every future to reach a
// terminal outcome before returning, regardless of individual failures, and
// joins the collected errors.
//
//	futures := make([]*async.Future, 0, len(items))
//	for _, it := range items {
//		futures = append(futures, async.Exec(ctx, it, process))
//	}
//	if err := async.AwaitAll(futures...); err != nil {
//		// every item has finished; err aggregates the failures
//	}
package async
