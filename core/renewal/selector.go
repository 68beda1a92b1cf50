package renewal

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/certkeeper/core/certstore"
	"github.com/dmitrymomot/certkeeper/core/logger"
	"github.com/dmitrymomot/certkeeper/core/request"
)

// Selector decides, per request, whether the certificate needs work.
type Selector struct {
	store         *certstore.Store
	thresholdDays float64
	now           func() time.Time
	log           *slog.Logger
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithNow overrides the time source, for tests.
func WithNow(now func() time.Time) SelectorOption {
	return func(s *Selector) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSelector creates a selector renewing certificates within thresholdDays
// of expiry. A nil log falls back to slog.Default.
func NewSelector(store *certstore.Store, thresholdDays float64, log *slog.Logger, opts ...SelectorOption) *Selector {
	if log == nil {
		log = slog.Default()
	}
	s := &Selector{
		store:         store,
		thresholdDays: thresholdDays,
		now:           time.Now,
		log:           log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select filters reqs down to those needing issuance. A certificate with no
// store entry has never been issued and is always selected. A disabled
// certificate is never selected, regardless of expiry. A metadata read
// failure excludes only that request; the scan continues.
func (s *Selector) Select(ctx context.Context, reqs []request.Request) []request.Request {
	now := s.now()
	selected := make([]request.Request, 0, len(reqs))
	for _, req := range reqs {
		meta, err := s.store.Metadata(ctx, req.DNSProvider.StoreID, req.CertName())
		switch {
		case errors.Is(err, certstore.ErrCertificateNotFound):
			s.log.Info("certificate not yet issued, selecting",
				logger.Cert(req.CertName()))
			selected = append(selected, req)

		case err != nil:
			s.log.Error("metadata read failed, skipping request",
				logger.Cert(req.CertName()), logger.Error(err))

		case !meta.Enabled:
			s.log.Debug("certificate disabled, skipping",
				logger.Cert(req.CertName()))

		case IsDue(now, meta.ExpiresOn, s.thresholdDays):
			s.log.Info("certificate due for renewal",
				logger.Cert(req.CertName()), logger.Expiry(meta.ExpiresOn))
			selected = append(selected, req)

		default:
			s.log.Debug("certificate not due",
				logger.Cert(req.CertName()), logger.Expiry(meta.ExpiresOn))
		}
	}
	return selected
}
