// Package checksum implements the ISO 7064 MOD 97-10 scheme used for IBAN
// check digits.
package checksum

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned for input the algorithm cannot process. The
// validator filters input before calling into this package, so callers see
// it only when that filtering is broken.
var ErrMalformed = errors.New("malformed checksum input")

const (
	firstChunk = 9
	nextChunk  = 7
)

// Valid reports whether iban passes MOD 97-10. The input must be uppercase
// letters and digits, at least five characters long.
func Valid(iban string) (bool, error) {
	if len(iban) < 5 {
		return false, fmt.Errorf("%w: %d characters, need at least 5", ErrMalformed, len(iban))
	}

	digits, err := toDigits(iban[4:] + iban[:4])
	if err != nil {
		return false, err
	}

	rem, err := Mod97(digits)
	if err != nil {
		return false, err
	}
	return rem == 1, nil
}

// CheckDigits computes the two check digits for a country code and BBAN
func CheckDigits(country, bban string) (string, error) {
	digits, err := toDigits(bban + country + "00")
	if err != nil {
		return "", err
	}

	rem, err := Mod97(digits)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d", 98-rem), nil
}

// toDigits replaces each letter with its two digit value (A=10 ... Z=35)
func toDigits(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s) * 2)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteString(strconv.Itoa(int(c-'A') + 10))
		default:
			return "", fmt.Errorf("%w: unexpected character %q at position %d", ErrMalformed, c, i)
		}
	}

	return b.String(), nil
}

// Mod97 reduces a decimal digit string modulo 97 without arbitrary
// precision arithmetic. The first chunk is nine digits; every following
// chunk is the previous remainder, zero padded to two digits, followed by
// up to seven more digits. No chunk exceeds nine digits.
func Mod97(digits string) (int, error) {
	if digits == "" {
		return 0, fmt.Errorf("%w: empty digit string", ErrMalformed)
	}

	prefix := ""
	rest := digits
	step := firstChunk

	for len(rest) > step {
		rem, err := reduce(prefix + rest[:step])
		if err != nil {
			return 0, err
		}
		// The zero of a single digit remainder is significant.
		prefix = fmt.Sprintf("%02d", rem)
		rest = rest[step:]
		step = nextChunk
	}

	return reduce(prefix + rest)
}

func reduce(chunk string) (int, error) {
	n, err := strconv.ParseUint(chunk, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return int(n % 97), nil
}
