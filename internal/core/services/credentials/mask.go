// Package credentials assesses whether a user's cloud credentials are
// usable before the job runner spends a cloud round-trip finding out,
// and masks account identifiers before they reach log lines.
package credentials

import "strings"

// MaskEmail masks the middle portion of an email's local and domain
// parts while preserving enough characters for debugging. Account
// identifiers never reach logs in full.
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if email == "" || at < 0 {
		return "***@***.***"
	}
	local, domain := email[:at], email[at+1:]

	maskedLocal := maskHead(local, 2)

	dotIdx := strings.IndexByte(domain, '.')
	if dotIdx < 0 {
		return maskedLocal + "@" + maskHead(domain, 1)
	}
	mainDomain, tld := domain[:dotIdx], domain[dotIdx+1:]
	return maskedLocal + "@" + maskHead(mainDomain, 2) + "." + tld
}

// maskHead keeps the first keep characters of s (or all of it if
// shorter) and replaces the remainder with "***".
func maskHead(s string, keep int) string {
	if len(s) <= keep {
		return s + "***"
	}
	return s[:keep] + "***"
}
