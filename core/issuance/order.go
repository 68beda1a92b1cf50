package issuance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/certkeeper/core/logger"
	"github.com/dmitrymomot/certkeeper/pkg/async"
)

// DefaultValidationTimeout bounds the wait for the authority to validate a
// single challenge. Exceeding it fails that authorization.
const DefaultValidationTimeout = 5 * time.Minute

// OrderProcess drives one certificate order through the authority protocol.
// It is single-use: Run may be called once.
type OrderProcess struct {
	authority AuthorityClient
	responder *Responder
	zone      ZoneRef
	log       *slog.Logger

	validationTimeout time.Duration
	state             State
}

// OrderOption configures an OrderProcess.
type OrderOption func(*OrderProcess)

// WithValidationTimeout overrides the per-authorization validation wait.
func WithValidationTimeout(d time.Duration) OrderOption {
	return func(p *OrderProcess) {
		if d > 0 {
			p.validationTimeout = d
		}
	}
}

// NewOrderProcess creates an order process for one zone.
// A nil log falls back to slog.Default.
func NewOrderProcess(authority AuthorityClient, responder *Responder, zone ZoneRef, log *slog.Logger, opts ...OrderOption) *OrderProcess {
	if log == nil {
		log = slog.Default()
	}
	p := &OrderProcess{
		authority:         authority,
		responder:         responder,
		zone:              zone,
		log:               log,
		validationTimeout: DefaultValidationTimeout,
		state:             StateStart,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current order state.
func (p *OrderProcess) State() State {
	return p.state
}

func (p *OrderProcess) fail(err error) error {
	p.state = StateFailed
	p.log.Error("order failed", logger.State(string(StateFailed)), logger.Error(err))
	return fmt.Errorf("%w: %w", ErrOrderFailed, err)
}

// Run executes the order for the given identifiers and CSR, returning the
// issued PEM chain. Any authority error not explicitly recoverable is fatal;
// the order itself is never retried.
func (p *OrderProcess) Run(ctx context.Context, contactEmail string, identifiers []string, csrDER []byte) ([]byte, error) {
	if err := p.authority.RegisterAccount(ctx, contactEmail); err != nil {
		return nil, p.fail(fmt.Errorf("%w: register account: %v", ErrAuthority, err))
	}
	p.state = StateAccountRegistered

	order, err := p.authority.CreateOrder(ctx, identifiers)
	if err != nil {
		return nil, p.fail(fmt.Errorf("%w: create order: %v", ErrAuthority, err))
	}
	p.state = StateOrderPlaced
	p.log.Info("order placed", logger.Count("identifiers", len(identifiers)))

	authzs := make([]Authorization, 0, len(order.AuthzURLs))
	for _, u := range order.AuthzURLs {
		az, err := p.authority.GetAuthorization(ctx, u)
		if err != nil {
			return nil, p.fail(fmt.Errorf("%w: get authorization: %v", ErrAuthority, err))
		}
		authzs = append(authzs, *az)
	}
	p.state = StateAuthorizationsPending

	// All authorizations run concurrently. AwaitAll is the barrier that
	// guarantees every sibling, including its cleanup, has reached a
	// terminal outcome before any order-level failure is reported.
	futures := make([]*async.Future, 0, len(authzs))
	for _, az := range authzs {
		futures = append(futures, async.Exec(ctx, az, p.solveAuthorization))
	}
	if err := async.AwaitAll(futures...); err != nil {
		return nil, p.fail(err)
	}
	p.state = StateAuthorizationsSatisfied

	ready, err := p.authority.WaitOrderReady(ctx, order.URL)
	if err != nil {
		return nil, p.fail(fmt.Errorf("%w: wait order ready: %v", ErrAuthority, err))
	}

	chain, err := p.authority.FinalizeOrder(ctx, ready.FinalizeURL, csrDER)
	if err != nil {
		return nil, p.fail(fmt.Errorf("%w: finalize order: %v", ErrAuthority, err))
	}
	p.state = StateFinalized

	if len(chain) == 0 {
		return nil, p.fail(fmt.Errorf("%w: empty certificate chain", ErrAuthority))
	}
	p.state = StateCertificateRetrieved
	p.log.Info("certificate retrieved", logger.State(string(p.state)))

	return chain, nil
}

// solveAuthorization proves control of one domain: select the DNS-01
// challenge, publish the record, ask the authority to verify, and wait for
// the terminal status. The record is removed on every exit path.
func (p *OrderProcess) solveAuthorization(ctx context.Context, az Authorization) error {
	ch, ok := az.DNSChallenge()
	if !ok {
		// No record was published, so there is nothing to clean.
		return fmt.Errorf("%w: authorization %q", ErrChallengeNotOffered, az.Domain)
	}

	keyAuth, err := p.authority.KeyAuthorization(ch)
	if err != nil {
		return fmt.Errorf("%w: key authorization for %q: %v", ErrAuthority, az.Domain, err)
	}

	// Cleanup must run even when the verification context is already dead,
	// hence the detached context. Its failure is logged, never escalated.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
		defer cancel()
		if cerr := p.responder.Cleanup(cleanupCtx, p.zone, az.Domain); cerr != nil {
			p.log.Error("challenge record cleanup failed",
				logger.Domain(az.Domain), logger.Zone(p.zone.Name), logger.Error(cerr))
		}
	}()

	if err := p.responder.Present(ctx, p.zone, az.Domain, keyAuth); err != nil {
		return err
	}

	if err := p.authority.AcceptChallenge(ctx, ch); err != nil {
		return fmt.Errorf("%w: accept challenge for %q: %v", ErrAuthority, az.Domain, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.validationTimeout)
	defer cancel()
	if err := p.authority.WaitAuthorization(waitCtx, az.URL); err != nil {
		return fmt.Errorf("%w: authorization %q not validated: %v", ErrAuthority, az.Domain, err)
	}

	p.log.Info("authorization validated", logger.Domain(az.Domain))
	return nil
}
