package pembundle

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"
)

const (
	pemTypeCertificate = "CERTIFICATE"
	pemTypePKCS8Key    = "PRIVATE KEY"
)

// Bundle pairs a private key with its issued certificate chain.
type Bundle struct {
	// PrivateKey is the key the certificate was issued for.
	PrivateKey crypto.PrivateKey

	// CertificatePEM holds the leaf certificate followed by the issuer
	// chain, PEM encoded.
	CertificatePEM []byte
}

// Encode serializes the bundle to the store format: the certificate chain,
// a blank line, then the private key as a PKCS#8 PEM block.
func (b Bundle) Encode() ([]byte, error) {
	if len(b.CertificatePEM) == 0 {
		return nil, ErrEmptyCertificate
	}
	if b.PrivateKey == nil {
		return nil, ErrMissingPrivateKey
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(b.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyEncoding, err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: pemTypePKCS8Key, Bytes: keyDER})

	var buf bytes.Buffer
	buf.Write(bytes.TrimSpace(b.CertificatePEM))
	buf.WriteString("\n\n")
	buf.Write(keyPEM)
	return buf.Bytes(), nil
}

// Decode parses the store format produced by Encode. The order of blocks is
// not significant; certificate blocks are reassembled into the chain in the
// order they appear.
func Decode(data []byte) (Bundle, error) {
	var (
		chain bytes.Buffer
		key   crypto.PrivateKey
	)

	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch block.Type {
		case pemTypeCertificate:
			if err := pem.Encode(&chain, block); err != nil {
				return Bundle{}, err
			}
		case pemTypePKCS8Key:
			k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return Bundle{}, fmt.Errorf("%w: %v", ErrKeyEncoding, err)
			}
			key = k
		default:
			return Bundle{}, fmt.Errorf("%w: unexpected PEM block %q", ErrMalformedBundle, block.Type)
		}
	}

	if chain.Len() == 0 {
		return Bundle{}, ErrEmptyCertificate
	}
	if key == nil {
		return Bundle{}, ErrMissingPrivateKey
	}

	return Bundle{PrivateKey: key, CertificatePEM: chain.Bytes()}, nil
}

// LeafExpiry parses the first certificate block of a PEM chain and returns
// its NotAfter timestamp.
func LeafExpiry(chainPEM []byte) (time.Time, error) {
	block, _ := pem.Decode(chainPEM)
	if block == nil || block.Type != pemTypeCertificate {
		return time.Time{}, fmt.Errorf("%w: no leading certificate block", ErrMalformedBundle)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedBundle, err)
	}
	return cert.NotAfter, nil
}

// EncodeChainDER converts DER certificates, as returned by an ACME finalize,
// into a single PEM chain.
func EncodeChainDER(der [][]byte) ([]byte, error) {
	if len(der) == 0 {
		return nil, ErrEmptyCertificate
	}
	var buf bytes.Buffer
	for _, b := range der {
		if err := pem.Encode(&buf, &pem.Block{Type: pemTypeCertificate, Bytes: b}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
