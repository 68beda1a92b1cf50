package certstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/certkeeper/pkg/pembundle"
)

// Mode selects how the certificate's private key is provisioned.
type Mode string

const (
	// ModeLocalKey generates the key pair in-process and imports the full
	// bundle into the store once the certificate is issued.
	ModeLocalKey Mode = "local"

	// ModeVaultKey lets the store generate the key pair and produce the CSR;
	// the signed certificate is merged back and the key never leaves the store.
	ModeVaultKey Mode = "vault"
)

// Valid reports whether m is a known provisioning mode.
func (m Mode) Valid() bool {
	return m == ModeLocalKey || m == ModeVaultKey
}

// Metadata is the store-side read used by the renewal scan.
type Metadata struct {
	Enabled   bool      `json:"enabled"`
	ExpiresOn time.Time `json:"expiresOn"`
}

// Policy describes the key and subject parameters for a store-generated
// certificate entry.
type Policy struct {
	Subject    string
	DNSNames   []string
	KeySize    int
	Exportable bool
}

// Client is the secret-store collaborator contract.
type Client interface {
	// GetCertificateMetadata reads the current metadata for a certificate.
	// Returns ErrCertificateNotFound when the certificate was never provisioned.
	GetCertificateMetadata(ctx context.Context, storeID, certName string) (Metadata, error)

	// ImportCertificate stores an encoded bundle as a new certificate version.
	ImportCertificate(ctx context.Context, storeID, certName string, bundle []byte, enabled bool) error

	// BeginCreateCertificate starts a store-side certificate entry and returns
	// the CSR (DER) for it without waiting for completion.
	BeginCreateCertificate(ctx context.Context, storeID, certName string, policy Policy) ([]byte, error)

	// MergeCertificate completes a pending entry with the signed chain (PEM).
	MergeCertificate(ctx context.Context, storeID, certName string, chainPEM []byte) error
}

// Store implements certificate persistence over a Client.
type Store struct {
	client Client
}

// New creates a Store over the given collaborator client.
func New(client Client) *Store {
	return &Store{client: client}
}

// Metadata fetches the current certificate metadata. ErrCertificateNotFound
// passes through untouched so callers can treat it as "never issued".
func (s *Store) Metadata(ctx context.Context, storeID, certName string) (Metadata, error) {
	return s.client.GetCertificateMetadata(ctx, storeID, certName)
}

// ImportBundle serializes the bundle to the store format and imports it as a
// new, enabled certificate version.
func (s *Store) ImportBundle(ctx context.Context, storeID, certName string, b pembundle.Bundle) error {
	encoded, err := b.Encode()
	if err != nil {
		return fmt.Errorf("%w: encode bundle for %q: %v", ErrStoreFault, certName, err)
	}
	if err := s.client.ImportCertificate(ctx, storeID, certName, encoded, true); err != nil {
		return fmt.Errorf("%w: import %q: %v", ErrStoreFault, certName, err)
	}
	return nil
}

// BeginCertificate starts a vault-generated entry and returns its CSR (DER).
func (s *Store) BeginCertificate(ctx context.Context, storeID, certName string, policy Policy) ([]byte, error) {
	csr, err := s.client.BeginCreateCertificate(ctx, storeID, certName, policy)
	if err != nil {
		return nil, fmt.Errorf("%w: begin create %q: %v", ErrStoreFault, certName, err)
	}
	if len(csr) == 0 {
		return nil, fmt.Errorf("%w: begin create %q returned no CSR", ErrStoreFault, certName)
	}
	return csr, nil
}

// MergeChain completes the pending entry for certName with the signed chain.
func (s *Store) MergeChain(ctx context.Context, storeID, certName string, chainPEM []byte) error {
	if err := s.client.MergeCertificate(ctx, storeID, certName, chainPEM); err != nil {
		return fmt.Errorf("%w: merge %q: %v", ErrStoreFault, certName, err)
	}
	return nil
}
