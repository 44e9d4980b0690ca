// internal/app/system/normalize/normalize.go
package normalize

import (
	"errors"
	"strings"
)

// Bounds on the digit count of a typed phone number. MaxPhoneDigits is the
// E.164 limit.
const (
	MinPhoneDigits = 10
	MaxPhoneDigits = 15
)

// ErrInvalidPhone is returned when typed input is not a usable phone number.
var ErrInvalidPhone = errors.New("invalid phone number")

// Phone reduces s to its digits. It is used for comparing phone numbers
// that arrive from trusted sources (contact shares, stored records), where
// formatting varies but the digits are authoritative.
func Phone(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParsePhone validates a phone number typed by a person. Surrounding
// whitespace, inner spaces and one leading "+" are allowed; anything else
// that is not a digit rejects the input, as does a result outside
// MinPhoneDigits..MaxPhoneDigits.
func ParsePhone(s string) (string, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return "", ErrInvalidPhone
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}
	if len(s) < MinPhoneDigits || len(s) > MaxPhoneDigits {
		return "", ErrInvalidPhone
	}
	return s, nil
}

// GroupName trims and upper-cases a group name.
func GroupName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
