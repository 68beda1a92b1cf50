package renewal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/certkeeper/core/logger"
	"github.com/dmitrymomot/certkeeper/core/request"
	"github.com/dmitrymomot/certkeeper/pkg/async"
)

// Catalogue lists the certificate request documents to consider.
type Catalogue interface {
	ListRequests(ctx context.Context) ([]request.Request, error)
}

// Issuer performs the full issuance for one request.
type Issuer interface {
	Execute(ctx context.Context, req request.Request) error
}

// Report summarizes one coordinator run.
type Report struct {
	RunID     string
	Scanned   int
	Selected  int
	Succeeded int
	Failed    int

	// Failures maps certificate name to the error that stopped its renewal.
	Failures map[string]error
}

// Coordinator runs one renewal pass: scan the catalogue, select the due
// certificates, and issue them concurrently. Each certificate's outcome is
// independent; a failure never cancels or delays its siblings.
type Coordinator struct {
	catalogue Catalogue
	selector  *Selector
	issuer    Issuer
	log       *slog.Logger
}

// NewCoordinator wires a coordinator. A nil log falls back to slog.Default.
func NewCoordinator(catalogue Catalogue, selector *Selector, issuer Issuer, log *slog.Logger) (*Coordinator, error) {
	if catalogue == nil || selector == nil || issuer == nil {
		return nil, fmt.Errorf("%w: catalogue, selector and issuer are required", ErrScanFailed)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{catalogue: catalogue, selector: selector, issuer: issuer, log: log}, nil
}

// Run executes one renewal pass. A catalogue scan failure aborts the run with
// ErrScanFailed and renews nothing. Per-certificate failures are collected in
// the report and surfaced as ErrRenewalsFailed once every renewal, successful
// or not, has finished.
func (c *Coordinator) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.NewString(), Failures: make(map[string]error)}
	log := c.log.With(logger.RunID(report.RunID))

	reqs, err := c.catalogue.ListRequests(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: %v", ErrScanFailed, err)
	}
	report.Scanned = len(reqs)

	selected := c.selector.Select(ctx, reqs)
	report.Selected = len(selected)
	log.Info("renewal scan complete",
		logger.Count("scanned", report.Scanned), logger.Count("selected", report.Selected))

	if len(selected) == 0 {
		return report, nil
	}

	// One future per certificate; every future is awaited so a slow or
	// failing renewal cannot cancel the rest.
	futures := make([]*async.Future, len(selected))
	for i, req := range selected {
		futures[i] = async.Exec(ctx, req, c.issuer.Execute)
	}

	for i, fut := range futures {
		name := selected[i].CertName()
		if err := fut.Await(); err != nil {
			report.Failed++
			report.Failures[name] = err
			log.Error("renewal failed", logger.Cert(name), logger.Error(err))
			continue
		}
		report.Succeeded++
		log.Info("renewal succeeded", logger.Cert(name))
	}

	log.Info("renewal run finished",
		logger.Count("succeeded", report.Succeeded),
		logger.Count("failed", report.Failed),
		logger.Elapsed(start))

	if report.Failed > 0 {
		return report, fmt.Errorf("%w: %d of %d", ErrRenewalsFailed, report.Failed, report.Selected)
	}
	return report, nil
}
