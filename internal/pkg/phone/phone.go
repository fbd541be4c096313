// Package phone normalizes US phone numbers. All storage uses E.164
// (+1XXXXXXXXXX); the CRM webhook uses the same shape, built from whatever
// the caller submitted.
package phone

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var e164Pattern = regexp.MustCompile(`^\+1\d{10}$`)

// IsValidUS reports whether the input normalizes to a valid
// +1XXXXXXXXXX US number.
func IsValidUS(raw string) bool {
	return e164Pattern.MatchString(FormatE164(raw))
}

// IsE164 reports whether the input already has the exact +1XXXXXXXXXX shape.
// Endpoint validation uses this strict form; FormatE164 is for normalizing
// looser user input before storage.
func IsE164(s string) bool {
	return e164Pattern.MatchString(s)
}

// FormatE164 normalizes a raw US phone number to +1XXXXXXXXXX.
// Inputs with formatting characters, a leading 1, or an existing +1 prefix
// all collapse to the same canonical form. Inputs with fewer than 10 digits
// come back prefixed but invalid; callers gate on IsValidUS.
func FormatE164(raw string) string {
	if raw == "" {
		return ""
	}
	digits := stripNonDigits(raw)
	switch {
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+1" + digits[1:]
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) > 10:
		return "+1" + digits[len(digits)-10:]
	default:
		return "+1" + digits
	}
}

// Hash returns the hex SHA-256 fingerprint of an E.164 phone number.
// Contacts are looked up by this fingerprint so the raw number is not
// indexed twice.
func Hash(e164 string) string {
	if e164 == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(e164))
	return hex.EncodeToString(sum[:])
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
