package domain

import (
	"net/mail"
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

const maxEmailLength = 254 // RFC 5321

// NormalizeEmail приводит адрес к нижнему регистру и обрезает пробелы.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail принимает только голый адрес, без display name.
func ValidateEmail(email string) error {
	normalized := NormalizeEmail(email)
	if normalized == "" || len(normalized) > maxEmailLength {
		return ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return ErrInvalidEmail
	}

	if !emailRegex.MatchString(addr.Address) {
		return ErrInvalidEmail
	}

	return nil
}

func SameEmail(a, b string) bool {
	return NormalizeEmail(a) == NormalizeEmail(b)
}
