package registry

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"gopkg.in/yaml.v3"
)

// File is the YAML registry file layout
type File struct {
	Countries []Spec `yaml:"countries"`
}

// LoadYAML builds a registry from a YAML registry document
func LoadYAML(r io.Reader) (*Registry, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	if len(file.Countries) == 0 {
		return nil, fmt.Errorf("registry defines no countries")
	}
	return New(file.Countries)
}

// LoadFile builds a registry from a YAML registry file on disk
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry file: %w", err)
	}
	defer f.Close()

	reg, err := LoadYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// WriteYAML renders specs as a registry file
func WriteYAML(w io.Writer, specs []Spec) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(File{Countries: specs}); err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}
	return enc.Close()
}

// Row labels of the SWIFT IBAN registry text export
const (
	swiftRowCountry   = "IBAN prefix country code (ISO 3166)"
	swiftRowSEPA      = "SEPA country"
	swiftRowStructure = "IBAN structure"
	swiftRowLength    = "IBAN length"
)

// ParseSWIFT reads the SWIFT IBAN registry text export. The export is
// tab separated, Latin-1 encoded and has one column per country.
func ParseSWIFT(r io.Reader) ([]Spec, error) {
	reader := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read SWIFT registry: %w", err)
	}

	rows := make(map[string][]string)
	for _, rec := range records {
		if len(rec) == 0 {
			continue
		}
		rows[strings.TrimSpace(rec[0])] = rec[1:]
	}

	countries, ok := rows[swiftRowCountry]
	if !ok {
		return nil, fmt.Errorf("SWIFT registry has no %q row", swiftRowCountry)
	}
	for _, label := range []string{swiftRowSEPA, swiftRowStructure, swiftRowLength} {
		if _, ok := rows[label]; !ok {
			return nil, fmt.Errorf("SWIFT registry has no %q row", label)
		}
	}

	var specs []Spec
	for i, raw := range countries {
		code := strings.TrimSpace(raw)
		if code == "" {
			continue
		}

		structure := strings.TrimSpace(column(rows[swiftRowStructure], i))
		if !strings.HasPrefix(structure, code) {
			return nil, fmt.Errorf("country %s: structure %q does not start with the country code", code, structure)
		}
		bban, ok := strings.CutPrefix(structure[len(code):], "2!n")
		if !ok {
			return nil, fmt.Errorf("country %s: structure %q has no 2!n check digits", code, structure)
		}

		length, err := strconv.Atoi(strings.TrimSpace(column(rows[swiftRowLength], i)))
		if err != nil {
			return nil, fmt.Errorf("country %s: invalid IBAN length: %w", code, err)
		}

		specs = append(specs, Spec{
			Code:      code,
			Length:    length,
			Structure: bban,
			SEPA:      strings.EqualFold(strings.TrimSpace(column(rows[swiftRowSEPA], i)), "yes"),
		})
	}

	return specs, nil
}

func column(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
