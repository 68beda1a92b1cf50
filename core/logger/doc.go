// Package logger provides nil-safe slog attribute helpers for the
// certificate renewal domain.
//
// Helpers return an empty slog.Attr for zero values, so call sites never
// need explicit nil checks:
//
//	log.Info("order finished",
//		logger.Domain("example.org"),
//		logger.Error(err), // no-op when err is nil
//	)
package logger
