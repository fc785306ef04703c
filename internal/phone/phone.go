// Package phone normalizes Kenyan subscriber numbers to the canonical
// 254XXXXXXXXX digit form used for M-Pesa requests.
package phone

import (
	"errors"
	"strings"
)

var ErrInvalid = errors.New("invalid phone number")

// Normalize strips separators and maps the national trunk prefix to the
// country code. Accepted inputs: "+2547...", "2547...", "07...", "01...".
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
			// separators and the leading plus are dropped
		default:
			return "", ErrInvalid
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "254"):
		return digits, nil
	case len(digits) == 10 && (strings.HasPrefix(digits, "07") || strings.HasPrefix(digits, "01")):
		return "254" + digits[1:], nil
	case len(digits) == 9 && (strings.HasPrefix(digits, "7") || strings.HasPrefix(digits, "1")):
		return "254" + digits, nil
	}
	return "", ErrInvalid
}
