// Package s3 persists certificates and request documents in an S3 bucket.
//
// Layout under the configured prefix:
//
//	requests/<name>.json                  request documents
//	stores/<storeID>/<cert>/meta.json     {"enabled": ..., "expiresOn": ...}
//	stores/<storeID>/<cert>/certificate.pem
//	stores/<storeID>/<cert>/pending.key   staged key of an unfinished merge
//
// The staged private key never leaves the bucket: BeginCreateCertificate
// writes it and returns only the CSR, and MergeCertificate pairs it with the
// signed chain and removes the staging object.
package s3
