// Package route53 implements the DNS collaborator over Amazon Route 53.
// Validation records are written with UPSERT so a retried present never
// conflicts with a leftover record, and deletes look the record up first so
// removing an absent record is a no-op. An optional sync wait polls the
// change until every authoritative name server serves it.
package route53
