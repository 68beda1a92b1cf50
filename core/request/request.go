package request

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultKeySize is applied when a document omits certKey.keySize.
const DefaultKeySize = 2048

// Request describes one certificate's desired state.
type Request struct {
	DNSProvider DNSProviderSpec `json:"dnsProvider"`
	ACME        ACMESpec        `json:"acme"`
	CertKey     CertKeySpec     `json:"certKey"`
}

// DNSProviderSpec locates the DNS zone used for validation and the store
// entry that receives the issued certificate.
type DNSProviderSpec struct {
	ProviderAccountID string `json:"providerAccountId"`
	DNSZoneID         string `json:"dnsZoneId"`
	ZoneName          string `json:"zoneName"`
	StoreID           string `json:"storeId"`
	CertName          string `json:"certName"`
}

// ACMESpec identifies the certificate authority and the account contact.
type ACMESpec struct {
	ContactEmail string `json:"contactEmail"`
	DirectoryURL string `json:"directoryUrl"`
}

// CertKeySpec describes the subject and key parameters of the certificate.
type CertKeySpec struct {
	CommonName       string   `json:"commonName"`
	Subject          string   `json:"subject,omitempty"`
	AlternativeNames []string `json:"alternativeNames,omitempty"`
	KeySize          int      `json:"keySize,omitempty"`
	Exportable       bool     `json:"exportable,omitempty"`
}

// azureSpec is the legacy document shape, mapped onto DNSProviderSpec.
type azureSpec struct {
	SubscriptionID       string `json:"subscriptionId"`
	DNSZoneResourceGroup string `json:"dnsZoneResourceGroup"`
	DNSZone              string `json:"dnsZone"`
	KeyVaultName         string `json:"keyVaultName"`
	KeyVaultCertName     string `json:"keyVaultCertName"`
}

type document struct {
	Azure       *azureSpec       `json:"azure"`
	DNSProvider *DNSProviderSpec `json:"dnsProvider"`
	ACME        ACMESpec         `json:"acme"`
	CertKey     CertKeySpec      `json:"certKey"`
}

// Parse decodes a single request document, applies defaults, and validates
// the result. A failure is fatal for the document only.
func Parse(data []byte) (Request, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	req := Request{
		ACME:    doc.ACME,
		CertKey: doc.CertKey,
	}
	switch {
	case doc.DNSProvider != nil:
		req.DNSProvider = *doc.DNSProvider
	case doc.Azure != nil:
		req.DNSProvider = DNSProviderSpec{
			ProviderAccountID: doc.Azure.SubscriptionID,
			DNSZoneID:         doc.Azure.DNSZoneResourceGroup,
			ZoneName:          doc.Azure.DNSZone,
			StoreID:           doc.Azure.KeyVaultName,
			CertName:          doc.Azure.KeyVaultCertName,
		}
	default:
		return Request{}, fmt.Errorf("%w: missing dnsProvider or azure section", ErrMalformedDocument)
	}

	if req.CertKey.KeySize == 0 {
		req.CertKey.KeySize = DefaultKeySize
	}
	if req.DNSProvider.CertName == "" {
		req.DNSProvider.CertName = storeNameFor(req.CertKey.CommonName)
	}

	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate checks the model invariants. Parse calls it on every document;
// callers constructing requests programmatically should call it themselves.
func (r Request) Validate() error {
	cn := r.CertKey.CommonName
	if cn == "" {
		return ErrEmptyCommonName
	}
	if !isDNSName(cn) {
		return fmt.Errorf("%w: %q", ErrInvalidDNSName, cn)
	}
	if r.CertKey.KeySize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidKeySize, r.CertKey.KeySize)
	}

	seen := make(map[string]struct{}, len(r.CertKey.AlternativeNames))
	for _, san := range r.CertKey.AlternativeNames {
		if !isDNSName(san) {
			return fmt.Errorf("%w: %q", ErrInvalidDNSName, san)
		}
		if san == cn {
			return fmt.Errorf("%w: %q duplicates the common name", ErrDuplicateName, san)
		}
		if _, dup := seen[san]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateName, san)
		}
		seen[san] = struct{}{}
	}

	if r.DNSProvider.ZoneName == "" {
		return ErrMissingZone
	}
	if r.ACME.DirectoryURL == "" {
		return ErrMissingDirectoryURL
	}
	return nil
}

// Domains returns the common name followed by the alternative names, the
// identifier list submitted with the order.
func (r Request) Domains() []string {
	out := make([]string, 0, 1+len(r.CertKey.AlternativeNames))
	out = append(out, r.CertKey.CommonName)
	out = append(out, r.CertKey.AlternativeNames...)
	return out
}

// CertName returns the store-side certificate name for this request.
func (r Request) CertName() string {
	return r.DNSProvider.CertName
}

// SubjectName resolves the certificate subject common name. The subject
// field accepts either a bare name or a "CN=name" form; when empty, the
// common name is used.
func (r Request) SubjectName() string {
	s := strings.TrimSpace(r.CertKey.Subject)
	if s == "" {
		return r.CertKey.CommonName
	}
	if rest, ok := strings.CutPrefix(s, "CN="); ok {
		return strings.TrimSpace(rest)
	}
	return s
}

// storeNameFor derives a store-safe certificate name from a domain:
// wildcards become "wildcard" and dots become dashes.
func storeNameFor(domain string) string {
	name := strings.ReplaceAll(domain, "*", "wildcard")
	name = strings.ReplaceAll(name, ".", "-")
	return strings.Trim(name, "-")
}

// isDNSName reports whether s is a plausible DNS name. A single leading
// "*." wildcard label is accepted.
func isDNSName(s string) bool {
	s = strings.TrimPrefix(s, "*.")
	if s == "" || len(s) > 253 {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			switch {
			case c >= 'a' && c <= 'z':
			case c >= 'A' && c <= 'Z':
			case c >= '0' && c <= '9':
			case c == '-':
			default:
				return false
			}
		}
	}
	return true
}
