// Package pembundle encodes and decodes certificate bundles: a PEM
// certificate chain followed by a blank line and the private key as a
// PKCS#8 PEM block. This is the on-store format for issued certificates;
// keys arriving in PKCS#1 or SEC1 form are re-encoded to PKCS#8.
package pembundle
