// Package identifier canonicalizes raw phone numbers and CPF strings into
// comparison-ready forms. All functions are pure and perform no I/O.
package identifier

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidFormat reports characters outside the allow-list or a digit
	// count outside the valid range. Client fault, never retried.
	ErrInvalidFormat = errors.New("invalid identifier format")
	// ErrInvalidChecksum reports a well-formed CPF whose check digits do not
	// match. Distinct from ErrInvalidFormat so callers can tell a typo in
	// the verification digits from a malformed string.
	ErrInvalidChecksum = errors.New("invalid identifier checksum")
)

const (
	countryCode = "55"

	// Brazilian numbers: 2-digit area code plus 8 or 9 subscriber digits.
	minNationalDigits = 10
	maxNationalDigits = 11
)

// NormalizePhone canonicalizes a raw phone string into country code plus
// digits only ("55" + DDD + subscriber). Accepts digits, "+", spaces,
// hyphens and parentheses; anything else fails with ErrInvalidFormat.
func NormalizePhone(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidFormat
	}

	var digits strings.Builder
	for i, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+':
			if i != 0 {
				return "", ErrInvalidFormat
			}
		case r == ' ' || r == '-' || r == '(' || r == ')':
			// separator, ignored
		default:
			return "", ErrInvalidFormat
		}
	}

	value := digits.String()
	// International dialing prefix.
	value = strings.TrimPrefix(value, "00")

	national := value
	if strings.HasPrefix(value, countryCode) && len(value) > maxNationalDigits {
		national = value[len(countryCode):]
	}
	if len(national) < minNationalDigits || len(national) > maxNationalDigits {
		return "", ErrInvalidFormat
	}
	return countryCode + national, nil
}

// NormalizeCPF canonicalizes a raw CPF string to its 11-digit form and
// validates both weighted mod-11 check digits.
func NormalizeCPF(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidFormat
	}

	var digits strings.Builder
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '.' || r == '-' || r == ' ':
			// separator, ignored
		default:
			return "", ErrInvalidFormat
		}
	}

	value := digits.String()
	if len(value) != 11 {
		return "", ErrInvalidFormat
	}
	if allSameDigit(value) {
		return "", ErrInvalidChecksum
	}
	if cpfCheckDigit(value, 10) != int(value[9]-'0') || cpfCheckDigit(value, 11) != int(value[10]-'0') {
		return "", ErrInvalidChecksum
	}
	return value, nil
}

// cpfCheckDigit computes one verification digit over the leading digits,
// using descending weights starting at firstWeight (10 for the first check
// digit, 11 for the second).
func cpfCheckDigit(value string, firstWeight int) int {
	sum := 0
	for i := 0; i < firstWeight-1; i++ {
		sum += int(value[i]-'0') * (firstWeight - i)
	}
	digit := (sum * 10) % 11
	if digit == 10 {
		digit = 0
	}
	return digit
}

func allSameDigit(value string) bool {
	for i := 1; i < len(value); i++ {
		if value[i] != value[0] {
			return false
		}
	}
	return true
}
