package iban

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bunseokbot/iban-validator/internal/validator"
)

// ErrInvalidFormat is returned when a value is not a valid IBAN
var ErrInvalidFormat = errors.New("invalid iban format")

// IBAN is a validated International Bank Account Number in electronic
// format (uppercase, no spaces). The zero value is the empty IBAN.
type IBAN string

// Electronic converts a print format IBAN ("GB82 WEST 1234 ...") to the
// electronic format by dropping whitespace and uppercasing ASCII letters.
func Electronic(s string) string {
	return validator.ToUpperASCII(strings.Join(strings.Fields(s), ""))
}

// Parse validates s with the default validator. Print format input is
// accepted.
func Parse(s string) (IBAN, error) {
	return ParseWith(validator.Default(), s)
}

// ParseWith validates s with v
func ParseWith(v *validator.Validator, s string) (IBAN, error) {
	value := Electronic(s)

	ok, err := v.IsValid(value)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w for value: %q", ErrInvalidFormat, s)
	}
	return IBAN(value), nil
}

// MustParse is like Parse but panics on error
func MustParse(s string) IBAN {
	i, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return i
}

// String returns the electronic format
func (i IBAN) String() string {
	return string(i)
}

// Print returns the IBAN in groups of four characters
func (i IBAN) Print() string {
	s := string(i)
	var b strings.Builder
	for n := 0; n < len(s); n += 4 {
		if n > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s[n:min(n+4, len(s))])
	}
	return b.String()
}

// Country returns the country code
func (i IBAN) Country() string {
	if len(i) < 2 {
		return ""
	}
	return string(i[:2])
}

// CheckDigits returns the two check digits
func (i IBAN) CheckDigits() string {
	if len(i) < 4 {
		return ""
	}
	return string(i[2:4])
}

// BBAN returns the basic bank account number
func (i IBAN) BBAN() string {
	if len(i) < 4 {
		return ""
	}
	return string(i[4:])
}

// IsZero reports whether i is empty
func (i IBAN) IsZero() bool {
	return i == ""
}

// MarshalText implements encoding.TextMarshaler
func (i IBAN) MarshalText() ([]byte, error) {
	return []byte(i), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. The text is validated.
func (i *IBAN) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// MarshalBinary returns the raw text bytes
func (i IBAN) MarshalBinary() ([]byte, error) {
	return []byte(i), nil
}

// UnmarshalBinary stores data without validation. Binary values come from
// a peer that already produced them with MarshalBinary.
func (i *IBAN) UnmarshalBinary(data []byte) error {
	*i = IBAN(data)
	return nil
}

// MarshalJSON implements json.Marshaler
func (i IBAN) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(i))
}

// UnmarshalJSON implements json.Unmarshaler; the value is validated
func (i *IBAN) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return i.UnmarshalText([]byte(s))
}

// MarshalYAML implements yaml.Marshaler
func (i IBAN) MarshalYAML() (interface{}, error) {
	return string(i), nil
}

// UnmarshalYAML implements yaml.Unmarshaler; the value is validated
func (i *IBAN) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return i.UnmarshalText([]byte(s))
}

// Value implements driver.Valuer
func (i IBAN) Value() (driver.Value, error) {
	if i == "" {
		return nil, nil
	}
	return string(i), nil
}

// Scan implements sql.Scanner. Database values are validated like text
// input.
func (i *IBAN) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*i = ""
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into IBAN", src)
	}
}
