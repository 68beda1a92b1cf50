package issuance

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"

	"github.com/dmitrymomot/certkeeper/core/certstore"
	"github.com/dmitrymomot/certkeeper/core/logger"
	"github.com/dmitrymomot/certkeeper/core/request"
	"github.com/dmitrymomot/certkeeper/pkg/pembundle"
)

// Workflow issues one certificate for one request and persists it to the
// store. It is the unit of work the renewal coordinator dispatches.
type Workflow struct {
	newAuthority AuthorityFactory
	dns          DNSProvider
	store        *certstore.Store
	mode         certstore.Mode
	log          *slog.Logger

	validationTimeout time.Duration
}

// WorkflowOption configures a Workflow.
type WorkflowOption func(*Workflow)

// WithWorkflowValidationTimeout overrides the per-authorization validation
// wait of the underlying order process.
func WithWorkflowValidationTimeout(d time.Duration) WorkflowOption {
	return func(w *Workflow) {
		if d > 0 {
			w.validationTimeout = d
		}
	}
}

// NewWorkflow creates an issuance workflow. The provisioning mode is an
// explicit configuration choice. A nil log falls back to slog.Default.
func NewWorkflow(newAuthority AuthorityFactory, dns DNSProvider, store *certstore.Store, mode certstore.Mode, log *slog.Logger, opts ...WorkflowOption) (*Workflow, error) {
	if newAuthority == nil || dns == nil || store == nil {
		return nil, fmt.Errorf("%w: authority factory, dns provider and store are required", ErrOrderFailed)
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown provisioning mode %q", mode)
	}
	if log == nil {
		log = slog.Default()
	}
	w := &Workflow{
		newAuthority:      newAuthority,
		dns:               dns,
		store:             store,
		mode:              mode,
		log:               log,
		validationTimeout: DefaultValidationTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Execute runs the full issuance for req: order the certificate, prove
// control of every identifier, and persist the result. No partial
// certificate is ever stored.
func (w *Workflow) Execute(ctx context.Context, req request.Request) error {
	start := time.Now()
	log := w.log.With(
		logger.Cert(req.CertName()),
		logger.Domain(req.CertKey.CommonName),
		logger.Mode(string(w.mode)),
	)

	authority, err := w.newAuthority(req.ACME.DirectoryURL)
	if err != nil {
		return fmt.Errorf("%w: connect authority %q: %v", ErrAuthority, req.ACME.DirectoryURL, err)
	}

	zone := ZoneRef{
		AccountID: req.DNSProvider.ProviderAccountID,
		ZoneID:    req.DNSProvider.DNSZoneID,
		Name:      req.DNSProvider.ZoneName,
	}
	proc := NewOrderProcess(authority, NewResponder(w.dns, log), zone, log,
		WithValidationTimeout(w.validationTimeout))

	storeID, certName := req.DNSProvider.StoreID, req.CertName()

	switch w.mode {
	case certstore.ModeLocalKey:
		key, csrDER, err := w.localKeyCSR(req)
		if err != nil {
			return err
		}
		chain, err := proc.Run(ctx, req.ACME.ContactEmail, req.Domains(), csrDER)
		if err != nil {
			return err
		}
		bundle := pembundle.Bundle{PrivateKey: key, CertificatePEM: chain}
		if err := w.store.ImportBundle(ctx, storeID, certName, bundle); err != nil {
			return err
		}

	case certstore.ModeVaultKey:
		csrDER, err := w.store.BeginCertificate(ctx, storeID, certName, certstore.Policy{
			Subject:    req.SubjectName(),
			DNSNames:   req.Domains(),
			KeySize:    req.CertKey.KeySize,
			Exportable: req.CertKey.Exportable,
		})
		if err != nil {
			return err
		}
		chain, err := proc.Run(ctx, req.ACME.ContactEmail, req.Domains(), csrDER)
		if err != nil {
			return err
		}
		if err := w.store.MergeChain(ctx, storeID, certName, chain); err != nil {
			return err
		}
	}

	log.Info("certificate issued", logger.Elapsed(start))
	return nil
}

// localKeyCSR generates the private key and a CSR naming the subject and all
// identifiers.
func (w *Workflow) localKeyCSR(req request.Request) (crypto.Signer, []byte, error) {
	keyType, err := keyTypeForSize(req.CertKey.KeySize)
	if err != nil {
		return nil, nil, err
	}
	key, err := certcrypto.GeneratePrivateKey(keyType)
	if err != nil {
		return nil, nil, fmt.Errorf("generate private key: %w", err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, nil, fmt.Errorf("generated key is not a signer")
	}

	tmpl := &x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: req.SubjectName()},
		DNSNames: req.Domains(),
	}
	csrDER, err := x509.CreateCertificateRequest(rand.Reader, tmpl, signer)
	if err != nil {
		return nil, nil, fmt.Errorf("create csr: %w", err)
	}
	return signer, csrDER, nil
}

func keyTypeForSize(bits int) (certcrypto.KeyType, error) {
	switch bits {
	case 2048:
		return certcrypto.RSA2048, nil
	case 3072:
		return certcrypto.RSA3072, nil
	case 4096:
		return certcrypto.RSA4096, nil
	case 8192:
		return certcrypto.RSA8192, nil
	default:
		return "", fmt.Errorf("unsupported key size %d", bits)
	}
}
