package registry

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	"k8s.io/apimachinery/pkg/util/sets"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// MinLength is the shortest IBAN the checksum can handle: the four
// character prefix plus at least one BBAN character.
const MinLength = 5

// Registry is an immutable set of country rules keyed by country code.
// It has no mutation API and is safe for concurrent use.
type Registry struct {
	specs map[string]CountrySpec
	sepa  sets.Set[string]
}

// New compiles specs into a registry. Every data error is reported, not
// just the first one.
func New(specs []Spec) (*Registry, error) {
	r := &Registry{
		specs: make(map[string]CountrySpec, len(specs)),
		sepa:  sets.New[string](),
	}

	var errs field.ErrorList
	root := field.NewPath("countries")

	for i, s := range specs {
		path := root.Index(i)

		if !isCountryCode(s.Code) {
			errs = append(errs, field.Invalid(path.Child("code"), s.Code, "must be two uppercase letters"))
			continue
		}
		if _, exists := r.specs[s.Code]; exists {
			errs = append(errs, field.Duplicate(path.Child("code"), s.Code))
			continue
		}
		if s.Length < MinLength {
			errs = append(errs, field.Invalid(path.Child("length"), s.Length, fmt.Sprintf("must be at least %d", MinLength)))
			continue
		}

		compiled, fieldErr := compile(path, s)
		if fieldErr != nil {
			errs = append(errs, fieldErr)
			continue
		}

		r.specs[s.Code] = compiled
		if s.SEPA {
			r.sepa.Insert(s.Code)
		}
	}

	if len(errs) > 0 {
		return nil, errs.ToAggregate()
	}
	return r, nil
}

// MustNew is like New but panics on invalid data. It is meant for curated
// tables compiled into the binary.
func MustNew(specs []Spec) *Registry {
	r, err := New(specs)
	utilruntime.Must(err)
	return r
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return MustNew(BuiltIn)
})

// Default returns the process-wide registry built from the SWIFT IBAN
// registry table. It is built on first use.
func Default() *Registry {
	return defaultRegistry()
}

func compile(path *field.Path, s Spec) (CountrySpec, *field.Error) {
	spec := CountrySpec{
		Code:      s.Code,
		Length:    s.Length,
		SEPA:      s.SEPA,
		structure: s.Structure,
	}

	switch {
	case s.Structure != "":
		expr, total, err := StructureToPattern(s.Structure)
		if err != nil {
			return spec, field.Invalid(path.Child("structure"), s.Structure, err.Error())
		}
		if total != s.Length-4 {
			return spec, field.Invalid(path.Child("structure"), s.Structure,
				fmt.Sprintf("describes %d characters, length %d requires %d", total, s.Length, s.Length-4))
		}
		spec.pattern = regexp.MustCompile(expr)

	case s.Pattern != "":
		re, err := regexp.Compile(anchor(s.Pattern))
		if err != nil {
			return spec, field.Invalid(path.Child("pattern"), s.Pattern, err.Error())
		}
		spec.pattern = re

	default:
		return spec, field.Required(path.Child("structure"), "structure or pattern is required")
	}

	return spec, nil
}

// Lookup returns the rule for a country code. The code must already be
// uppercase.
func (r *Registry) Lookup(code string) (CountrySpec, bool) {
	spec, ok := r.specs[code]
	return spec, ok
}

// IsSEPA reports whether code is a known SEPA country. Unknown or
// malformed codes are not.
func (r *Registry) IsSEPA(code string) bool {
	return r.sepa.Has(code)
}

// Len returns the number of countries
func (r *Registry) Len() int {
	return len(r.specs)
}

// Countries returns all country codes in sorted order
func (r *Registry) Countries() []string {
	codes := make([]string, 0, len(r.specs))
	for code := range r.specs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// SEPACountries returns the SEPA country codes in sorted order
func (r *Registry) SEPACountries() []string {
	return sets.List(r.sepa)
}

// Specs returns every country rule ordered by code
func (r *Registry) Specs() []CountrySpec {
	out := make([]CountrySpec, 0, len(r.specs))
	for _, code := range r.Countries() {
		out = append(out, r.specs[code])
	}
	return out
}

func isCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}
