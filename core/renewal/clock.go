package renewal

import "time"

// IsDue reports whether a certificate expiring at expiresOn should be renewed
// at the given instant. The comparison is fractional: with a threshold of 30
// days, a certificate 29.9 days from expiry is due and one 30.1 days out is
// not. An already expired certificate is always due.
func IsDue(now, expiresOn time.Time, thresholdDays float64) bool {
	remainingDays := expiresOn.Sub(now).Hours() / 24
	return remainingDays <= thresholdDays
}
