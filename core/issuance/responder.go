package issuance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/certkeeper/core/logger"
)

const (
	challengePrefix = "_acme-challenge."

	// recordTTL keeps validation records short-lived; they only need to
	// survive the authority's lookup.
	recordTTL = 30 * time.Second
)

// Responder publishes and removes the DNS validation record for one
// authorization. Both operations address only the single record derived
// from the authorization's domain.
type Responder struct {
	dns DNSProvider
	log *slog.Logger
}

// NewResponder creates a Responder over the DNS collaborator.
// A nil log falls back to slog.Default.
func NewResponder(dns DNSProvider, log *slog.Logger) *Responder {
	if log == nil {
		log = slog.Default()
	}
	return &Responder{dns: dns, log: log}
}

// RecordName derives the validation record name: the zone suffix is stripped
// from the domain and the challenge prefix is prepended. The zone apex keeps
// its full name. Wildcard identifiers validate at the base name.
func RecordName(domain, zone string) string {
	domain = strings.TrimPrefix(domain, "*.")
	return challengePrefix + strings.TrimSuffix(domain, "."+zone)
}

// Present upserts the validation TXT record with the key authorization as
// its sole value. Idempotent.
func (r *Responder) Present(ctx context.Context, zone ZoneRef, domain, keyAuth string) error {
	name := RecordName(domain, zone.Name)
	if err := r.dns.UpsertTXTRecord(ctx, zone, name, keyAuth, recordTTL); err != nil {
		return fmt.Errorf("%w: present %q in zone %q: %v", ErrDNSOperation, name, zone.Name, err)
	}
	r.log.Debug("challenge record published",
		logger.Domain(domain), logger.Zone(zone.Name), logger.Record(name))
	return nil
}

// Cleanup deletes the validation record. Callers invoke it on every exit
// path; a failure is returned for logging but must never replace the
// verification outcome.
func (r *Responder) Cleanup(ctx context.Context, zone ZoneRef, domain string) error {
	name := RecordName(domain, zone.Name)
	if err := r.dns.DeleteTXTRecord(ctx, zone, name); err != nil {
		return fmt.Errorf("cleanup %q in zone %q: %w", name, zone.Name, err)
	}
	r.log.Debug("challenge record removed",
		logger.Domain(domain), logger.Zone(zone.Name), logger.Record(name))
	return nil
}
