package validator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bunseokbot/iban-validator/internal/checksum"
	"github.com/bunseokbot/iban-validator/internal/registry"
)

// ErrInternal marks faults that are not caused by the input itself, such as
// registry data that lets characters through the checksum cannot handle.
// Invalid IBANs never produce it.
var ErrInternal = errors.New("internal validation fault")

// Reason explains a validation outcome
type Reason string

const (
	ReasonOK                 Reason = "ok"
	ReasonTooShort           Reason = "too_short"
	ReasonUnknownCountry     Reason = "unknown_country"
	ReasonLengthMismatch     Reason = "length_mismatch"
	ReasonStructureMismatch  Reason = "structure_mismatch"
	ReasonInvalidCheckDigits Reason = "invalid_check_digits"
	ReasonChecksumMismatch   Reason = "checksum_mismatch"
)

// Result is the outcome of validating one IBAN
type Result struct {
	// Valid is true only if every check passed
	Valid bool

	// Reason is ReasonOK for valid IBANs, otherwise the first failed check
	Reason Reason

	// Country is the uppercased country prefix, empty when the input is too short
	Country string

	// Spec is the country rule, zero when the country is unknown
	Spec registry.CountrySpec
}

// Validator checks IBANs against a registry. It holds no mutable state and
// is safe for concurrent use.
type Validator struct {
	registry *registry.Registry
}

// New creates a validator bound to reg
func New(reg *registry.Registry) *Validator {
	return &Validator{registry: reg}
}

var defaultValidator = sync.OnceValue(func() *Validator {
	return New(registry.Default())
})

// Default returns a validator over the built-in registry
func Default() *Validator {
	return defaultValidator()
}

// Registry returns the registry the validator reads from
func (v *Validator) Registry() *registry.Registry {
	return v.registry
}

// IsValid reports whether raw is a valid IBAN. Letter case is ignored;
// whitespace is not stripped.
func (v *Validator) IsValid(raw string) (bool, error) {
	res, err := v.Validate(raw)
	if err != nil {
		return false, err
	}
	return res.Valid, nil
}

// Validate runs every check on raw and reports why it failed, if it did.
// Length and structure are checked before the checksum.
func (v *Validator) Validate(raw string) (Result, error) {
	iban := ToUpperASCII(raw)

	if len(iban) < registry.MinLength {
		return Result{Reason: ReasonTooShort}, nil
	}

	res := Result{Country: iban[:2]}

	spec, ok := v.registry.Lookup(res.Country)
	if !ok {
		res.Reason = ReasonUnknownCountry
		return res, nil
	}
	res.Spec = spec

	if len(iban) != spec.Length {
		res.Reason = ReasonLengthMismatch
		return res, nil
	}
	if !spec.MatchBBAN(iban[4:]) {
		res.Reason = ReasonStructureMismatch
		return res, nil
	}
	if !isDigit(iban[2]) || !isDigit(iban[3]) {
		res.Reason = ReasonInvalidCheckDigits
		return res, nil
	}

	valid, err := checksum.Valid(iban)
	if err != nil {
		return Result{}, fmt.Errorf("%w: country %s: %w", ErrInternal, res.Country, err)
	}
	if !valid {
		res.Reason = ReasonChecksumMismatch
		return res, nil
	}

	res.Valid = true
	res.Reason = ReasonOK
	return res, nil
}

// IsSEPACountry reports whether the first two characters of raw name a
// SEPA country. Anything after them is ignored, so a full IBAN works too.
func (v *Validator) IsSEPACountry(raw string) (bool, error) {
	if len(raw) < 2 {
		return false, nil
	}
	return v.registry.IsSEPA(ToUpperASCII(raw[:2])), nil
}

// ToUpperASCII uppercases the letters a-z and leaves every other byte
// alone, so non-ASCII input keeps its length and never folds into A-Z.
func ToUpperASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'a' && c <= 'z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if b[j] >= 'a' && b[j] <= 'z' {
					b[j] -= 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
