// Package certstore defines the certificate store contract and the two
// provisioning modes layered on top of it.
//
// The Client interface is the secret-store collaborator: metadata reads,
// bundle imports, and the vault-generated-key pair of begin-create (yielding
// a CSR) and merge (completing the pending entry with the signed chain).
// Store wraps a Client with the mode logic and the bundle-to-store encoding:
// PEM chain, blank line, PKCS#8 private key.
//
// A metadata read for a certificate that was never provisioned returns
// ErrCertificateNotFound; that is a valid outcome, not a fault.
package certstore
