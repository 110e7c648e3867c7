package messaging

import "strings"

// NormalizeDigits strips everything but digits from a phone value. Sessions,
// reservations, and contacts all key on this normalized form.
func NormalizeDigits(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	var digits strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}
