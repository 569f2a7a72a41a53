package middleware

import "errors"

// MaxCallerIDLength is the longest caller ID accepted from X-Caller-ID.
const MaxCallerIDLength = 128

// Caller ID validation errors.
var (
	ErrCallerIDTooLong = errors.New("caller ID exceeds maximum length")
	ErrCallerIDInvalid = errors.New("caller ID contains invalid characters")
)

// ValidateCallerID checks a client-supplied caller ID. Allowed characters
// are ASCII letters, digits and "-_.:@/".
func ValidateCallerID(id string) error {
	if len(id) > MaxCallerIDLength {
		return ErrCallerIDTooLong
	}
	if !isToken(id) {
		return ErrCallerIDInvalid
	}
	return nil
}

func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':', c == '@', c == '/':
		default:
			return false
		}
	}
	return true
}
