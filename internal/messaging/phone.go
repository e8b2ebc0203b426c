package messaging

import "strings"

// NormalizeMSISDN reduces a phone number to its bare digits, the format
// the Cloud API expects in the "to" field. A leading + as well as
// spaces, dashes and parentheses are dropped. Returns "" when no digits
// remain.
func NormalizeMSISDN(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
