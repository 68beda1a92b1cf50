package issuance

import (
	"context"
	"time"
)

// ChallengeTypeDNS01 is the only challenge type this system acts on.
const ChallengeTypeDNS01 = "dns-01"

// State is the position of an order in its lifecycle.
type State string

const (
	StateStart                   State = "start"
	StateAccountRegistered       State = "account_registered"
	StateOrderPlaced             State = "order_placed"
	StateAuthorizationsPending   State = "authorizations_pending"
	StateAuthorizationsSatisfied State = "authorizations_satisfied"
	StateFinalized               State = "finalized"
	StateCertificateRetrieved    State = "certificate_retrieved"
	StateFailed                  State = "failed"
)

// Order is the authority-side aggregate binding authorizations to a CSR.
type Order struct {
	URL         string
	FinalizeURL string
	Identifiers []string
	AuthzURLs   []string
}

// Challenge is a single proof attempt offered within an authorization.
type Challenge struct {
	Type  string
	URL   string
	Token string
}

// Authorization is one domain-ownership proof obligation of an order.
type Authorization struct {
	// Domain is the identifier value; wildcard identifiers carry the base
	// name with Wildcard set.
	Domain   string
	Wildcard bool
	URL      string

	Challenges []Challenge
}

// DNSChallenge returns the DNS-01 challenge of the authorization, if offered.
func (a Authorization) DNSChallenge() (Challenge, bool) {
	for _, ch := range a.Challenges {
		if ch.Type == ChallengeTypeDNS01 {
			return ch, true
		}
	}
	return Challenge{}, false
}

// ZoneRef locates one DNS zone at the provider.
type ZoneRef struct {
	AccountID string
	ZoneID    string
	Name      string
}

// AuthorityClient is the certificate-authority protocol collaborator.
type AuthorityClient interface {
	// RegisterAccount registers (or resolves an existing) account for the
	// client's key, agreeing to the terms of service.
	RegisterAccount(ctx context.Context, contactEmail string) error

	// CreateOrder submits an order naming the given DNS identifiers.
	CreateOrder(ctx context.Context, identifiers []string) (*Order, error)

	// GetAuthorization fetches one authorization of an order.
	GetAuthorization(ctx context.Context, authzURL string) (*Authorization, error)

	// KeyAuthorization computes the TXT value to publish for a challenge.
	KeyAuthorization(ch Challenge) (string, error)

	// AcceptChallenge asks the authority to verify the challenge.
	AcceptChallenge(ctx context.Context, ch Challenge) error

	// WaitAuthorization polls until the authorization is valid; an invalid
	// terminal status or an expired context is an error.
	WaitAuthorization(ctx context.Context, authzURL string) error

	// WaitOrderReady polls until the order is ready to finalize.
	WaitOrderReady(ctx context.Context, orderURL string) (*Order, error)

	// FinalizeOrder submits the CSR (DER) and returns the issued PEM chain.
	FinalizeOrder(ctx context.Context, finalizeURL string, csrDER []byte) ([]byte, error)
}

// AuthorityFactory builds an AuthorityClient for a directory URL. Each
// workflow run constructs its own client with a fresh account key.
type AuthorityFactory func(directoryURL string) (AuthorityClient, error)

// DNSProvider is the DNS collaborator used to publish validation records.
type DNSProvider interface {
	// UpsertTXTRecord creates or replaces a TXT record with value as its sole
	// value. Safe to call twice for the same record.
	UpsertTXTRecord(ctx context.Context, zone ZoneRef, recordName, value string, ttl time.Duration) error

	// DeleteTXTRecord removes the record; deleting an absent record is not
	// an error.
	DeleteTXTRecord(ctx context.Context, zone ZoneRef, recordName string) error
}
