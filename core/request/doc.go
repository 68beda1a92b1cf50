// Package request defines the certificate request model: an immutable,
// validated description of one certificate to obtain and maintain.
//
// Requests are parsed from externally supplied JSON documents. Two document
// shapes are accepted: the generic form with a top-level "dnsProvider" key,
// and the legacy form with a top-level "azure" key, which maps onto the same
// model (subscription -> provider account, zone resource -> zone id, vault ->
// store). One parsed Request drives exactly one issuance workflow run and is
// read-only thereafter.
package request
