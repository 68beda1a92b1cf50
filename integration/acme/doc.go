// Package acme implements the certificate-authority collaborator over the
// ACME protocol using golang.org/x/crypto/acme. Each client carries a fresh
// ECDSA P-256 account key; accounts are registered per run and an existing
// registration for the key is resolved rather than treated as an error.
package acme
