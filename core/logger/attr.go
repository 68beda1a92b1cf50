package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// Returns empty Attr for nil errors, enabling safe usage without nil checks.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component creates an attribute for component names.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Domain creates an attribute for a DNS domain name.
func Domain(domain string) slog.Attr {
	if domain == "" {
		return slog.Attr{}
	}
	return slog.String("domain", domain)
}

// Cert creates an attribute for a store-side certificate name.
func Cert(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("cert", name)
}

// Zone creates an attribute for a DNS zone name.
func Zone(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("zone", name)
}

// Record creates an attribute for a DNS record name.
func Record(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("record", name)
}

// Mode creates an attribute for the certificate provisioning mode.
func Mode(mode string) slog.Attr {
	if mode == "" {
		return slog.Attr{}
	}
	return slog.String("mode", mode)
}

// RunID creates an attribute for a renewal run identifier.
func RunID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("run_id", id)
}

// State creates an attribute for an order state.
func State(state string) slog.Attr {
	return slog.String("state", state)
}

// Count creates a generic counter attribute.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Elapsed calculates and logs the duration since the start time.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// Expiry creates an attribute for a certificate expiry timestamp.
func Expiry(t time.Time) slog.Attr {
	if t.IsZero() {
		return slog.Attr{}
	}
	return slog.Time("expires_on", t)
}
