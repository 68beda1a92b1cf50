// Package issuance drives one certificate order end-to-end: account
// registration, order placement, concurrent DNS-01 authorization solving,
// finalization, and certificate retrieval.
//
// OrderProcess is an explicit state machine over the AuthorityClient
// collaborator. Every authorization of an order is solved concurrently; the
// challenge TXT record published for an authorization is removed on every
// exit path before any order-level failure is reported, so a failing order
// never leaves validation records behind.
//
// Workflow composes a request, an OrderProcess, and the certificate store
// into the unit of work the renewal coordinator dispatches.
package issuance
