package acme

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/acme"

	"github.com/dmitrymomot/certkeeper/core/issuance"
	"github.com/dmitrymomot/certkeeper/pkg/pembundle"
)

// Client speaks the ACME protocol for one directory endpoint.
type Client struct {
	ac *acme.Client
}

// Ensure the issuance contract stays satisfied.
var _ issuance.AuthorityClient = (*Client)(nil)

// New creates a client for the given directory URL with a freshly generated
// ECDSA P-256 account key.
func New(directoryURL string) (*Client, error) {
	if directoryURL == "" {
		return nil, errors.New("acme: directory URL is required")
	}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("acme: generate account key: %w", err)
	}
	return &Client{ac: &acme.Client{Key: key, DirectoryURL: directoryURL}}, nil
}

// Factory adapts New to the issuance.AuthorityFactory contract.
func Factory(directoryURL string) (issuance.AuthorityClient, error) {
	return New(directoryURL)
}

// RegisterAccount registers the account key, agreeing to the terms of
// service. An account that already exists for the key is resolved and reused.
func (c *Client) RegisterAccount(ctx context.Context, contactEmail string) error {
	acct := &acme.Account{}
	if contactEmail != "" {
		acct.Contact = []string{"mailto:" + contactEmail}
	}
	_, err := c.ac.Register(ctx, acct, acme.AcceptTOS)
	if errors.Is(err, acme.ErrAccountAlreadyExists) {
		_, err = c.ac.GetReg(ctx, "")
	}
	if err != nil {
		return fmt.Errorf("acme: register account: %w", err)
	}
	return nil
}

// CreateOrder submits an order for the given DNS identifiers.
func (c *Client) CreateOrder(ctx context.Context, identifiers []string) (*issuance.Order, error) {
	order, err := c.ac.AuthorizeOrder(ctx, acme.DomainIDs(identifiers...))
	if err != nil {
		return nil, fmt.Errorf("acme: authorize order: %w", err)
	}
	return mapOrder(order), nil
}

// GetAuthorization fetches one authorization with its offered challenges.
func (c *Client) GetAuthorization(ctx context.Context, authzURL string) (*issuance.Authorization, error) {
	az, err := c.ac.GetAuthorization(ctx, authzURL)
	if err != nil {
		return nil, fmt.Errorf("acme: get authorization: %w", err)
	}
	out := &issuance.Authorization{
		Domain:   az.Identifier.Value,
		Wildcard: az.Wildcard,
		URL:      az.URI,
	}
	for _, ch := range az.Challenges {
		out.Challenges = append(out.Challenges, issuance.Challenge{
			Type:  ch.Type,
			URL:   ch.URI,
			Token: ch.Token,
		})
	}
	return out, nil
}

// KeyAuthorization computes the TXT record value for a DNS-01 challenge:
// the SHA-256 digest of the key authorization, base64url encoded.
func (c *Client) KeyAuthorization(ch issuance.Challenge) (string, error) {
	value, err := c.ac.DNS01ChallengeRecord(ch.Token)
	if err != nil {
		return "", fmt.Errorf("acme: dns-01 record value: %w", err)
	}
	return value, nil
}

// AcceptChallenge tells the authority the challenge is ready to verify.
func (c *Client) AcceptChallenge(ctx context.Context, ch issuance.Challenge) error {
	if _, err := c.ac.Accept(ctx, &acme.Challenge{Type: ch.Type, URI: ch.URL, Token: ch.Token}); err != nil {
		return fmt.Errorf("acme: accept challenge: %w", err)
	}
	return nil
}

// WaitAuthorization polls until the authorization reaches a valid status.
// A terminal invalid status or an expired context surfaces as an error.
func (c *Client) WaitAuthorization(ctx context.Context, authzURL string) error {
	if _, err := c.ac.WaitAuthorization(ctx, authzURL); err != nil {
		return fmt.Errorf("acme: wait authorization: %w", err)
	}
	return nil
}

// WaitOrderReady polls until the order may be finalized.
func (c *Client) WaitOrderReady(ctx context.Context, orderURL string) (*issuance.Order, error) {
	order, err := c.ac.WaitOrder(ctx, orderURL)
	if err != nil {
		return nil, fmt.Errorf("acme: wait order: %w", err)
	}
	return mapOrder(order), nil
}

// FinalizeOrder submits the CSR and downloads the full issued chain as PEM.
func (c *Client) FinalizeOrder(ctx context.Context, finalizeURL string, csrDER []byte) ([]byte, error) {
	der, _, err := c.ac.CreateOrderCert(ctx, finalizeURL, csrDER, true)
	if err != nil {
		return nil, fmt.Errorf("acme: finalize order: %w", err)
	}
	chain, err := pembundle.EncodeChainDER(der)
	if err != nil {
		return nil, fmt.Errorf("acme: encode chain: %w", err)
	}
	return chain, nil
}

func mapOrder(order *acme.Order) *issuance.Order {
	ids := make([]string, len(order.Identifiers))
	for i, id := range order.Identifiers {
		ids[i] = id.Value
	}
	return &issuance.Order{
		URL:         order.URI,
		FinalizeURL: order.FinalizeURL,
		Identifiers: ids,
		AuthzURLs:   append([]string(nil), order.AuthzURLs...),
	}
}
