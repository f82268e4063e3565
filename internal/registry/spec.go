package registry

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Spec is a registry entry as declared in the built-in table or a registry file
type Spec struct {
	// Code is the ISO 3166 two-letter country code
	Code string `yaml:"code"`

	// Length is the total IBAN length for the country
	Length int `yaml:"length"`

	// Structure is the SWIFT BBAN format, e.g. "4!a6!n8!n"
	Structure string `yaml:"structure,omitempty"`

	// Pattern is a raw regular expression used when Structure is empty
	Pattern string `yaml:"pattern,omitempty"`

	// SEPA reports SEPA participation
	SEPA bool `yaml:"sepa"`
}

// CountrySpec is a compiled, read-only country rule
type CountrySpec struct {
	Code   string
	Length int
	SEPA   bool

	structure string
	pattern   *regexp.Regexp
}

// MatchBBAN reports whether bban fully matches the country's BBAN pattern
func (c CountrySpec) MatchBBAN(bban string) bool {
	if c.pattern == nil {
		return false
	}
	return c.pattern.MatchString(bban)
}

// Pattern returns the anchored regular expression used for the BBAN
func (c CountrySpec) Pattern() string {
	if c.pattern == nil {
		return ""
	}
	return c.pattern.String()
}

// Structure returns the SWIFT BBAN format, empty for pattern-only entries
func (c CountrySpec) Structure() string {
	return c.structure
}

// swiftClasses maps SWIFT character classes to regexp classes.
// "e" (space) is never used by the registry and is rejected.
var swiftClasses = map[byte]string{
	'n': "[0-9]",
	'a': "[A-Z]",
	'c': "[A-Za-z0-9]",
}

var swiftRun = regexp.MustCompile(`([0-9]+)!([a-z])`)

// StructureToPattern converts a SWIFT BBAN format into an anchored regular
// expression and returns the number of characters it consumes.
func StructureToPattern(structure string) (string, int, error) {
	if structure == "" {
		return "", 0, fmt.Errorf("empty structure")
	}

	runs := swiftRun.FindAllStringSubmatchIndex(structure, -1)

	var b strings.Builder
	b.WriteString("^")
	total := 0
	next := 0
	for _, m := range runs {
		if m[0] != next {
			return "", 0, fmt.Errorf("invalid structure %q at offset %d", structure, next)
		}
		count, err := strconv.Atoi(structure[m[2]:m[3]])
		if err != nil || count == 0 {
			return "", 0, fmt.Errorf("invalid run length in structure %q", structure)
		}
		class, ok := swiftClasses[structure[m[4]]]
		if !ok {
			return "", 0, fmt.Errorf("unsupported character class %q in structure %q", structure[m[4]:m[5]], structure)
		}
		fmt.Fprintf(&b, "%s{%d}", class, count)
		total += count
		next = m[1]
	}
	if next != len(structure) {
		return "", 0, fmt.Errorf("invalid structure %q at offset %d", structure, next)
	}
	b.WriteString("$")

	return b.String(), total, nil
}

// anchor wraps a raw pattern so it only accepts full matches
func anchor(pattern string) string {
	return "^(?:" + pattern + ")$"
}
