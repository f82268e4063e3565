package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bunseokbot/iban-validator/internal/audit"
	"github.com/bunseokbot/iban-validator/internal/checksum"
	"github.com/bunseokbot/iban-validator/internal/detector"
	"github.com/bunseokbot/iban-validator/internal/iban"
	"github.com/bunseokbot/iban-validator/internal/redactor"
	"github.com/bunseokbot/iban-validator/internal/registry"
	"github.com/bunseokbot/iban-validator/internal/validator"
)

// Exit codes
const (
	exitOK       = 0
	exitFailure  = 1
	exitInternal = 2
)

const auditSource = "cli"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}

	if len(args) < 1 {
		c.printHelp()
		return exitFailure
	}

	switch args[0] {
	case "validate":
		return c.runValidate(args[1:])
	case "sepa":
		return c.runSEPA(args[1:])
	case "scan":
		return c.runScan(args[1:])
	case "countries":
		return c.runCountries(args[1:])
	case "generate":
		return c.runGenerate(args[1:])
	case "rules":
		return c.runRules(args[1:])
	case "registry":
		return c.runRegistry(args[1:])
	case "help", "-h", "--help":
		c.printHelp()
		return exitOK
	default:
		fmt.Fprintf(c.stderr, "Unknown command: %s\n\n", args[0])
		c.printHelp()
		return exitFailure
	}
}

func (c *cli) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

// loadValidator returns the default validator, or one bound to the YAML
// registry at path
func loadValidator(path string) (*validator.Validator, error) {
	if path == "" {
		return validator.Default(), nil
	}
	reg, err := registry.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return validator.New(reg), nil
}

// inputs returns args, or the non-blank lines of stdin when args is empty
func (c *cli) inputs(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	var lines []string
	scanner := bufio.NewScanner(c.stdin)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

type validationOutput struct {
	IBAN    string `json:"iban"`
	Valid   bool   `json:"valid"`
	Reason  string `json:"reason"`
	Country string `json:"country,omitempty"`
	SEPA    bool   `json:"sepa"`
}

func (c *cli) runValidate(args []string) int {
	fs := c.flagSet("validate")
	registryFile := fs.String("registry", "", "YAML registry replacing the built-in country table")
	outputFormat := fs.String("o", "text", "Output format: text, json")
	auditLogFile := fs.String("audit-log", "", "Append JSON audit entries to this file")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	v, err := loadValidator(*registryFile)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error loading registry: %v\n", err)
		return exitFailure
	}

	var auditLogger audit.AuditLogger = audit.NewNoOpLogger()
	if *auditLogFile != "" {
		fileLogger, err := audit.NewJSONFileLogger(*auditLogFile)
		if err != nil {
			fmt.Fprintf(c.stderr, "Error opening audit log: %v\n", err)
			return exitFailure
		}
		auditLogger = fileLogger
	}
	defer auditLogger.Close()

	values, err := c.inputs(fs.Args())
	if err != nil {
		fmt.Fprintf(c.stderr, "Error reading input: %v\n", err)
		return exitFailure
	}
	if len(values) == 0 {
		fmt.Fprintln(c.stderr, "Usage: iban validate [flags] <iban>...")
		return exitFailure
	}

	ctx := context.Background()
	outputs := make([]validationOutput, 0, len(values))
	code := exitOK
	for _, raw := range values {
		value := iban.Electronic(raw)

		res, err := v.Validate(value)
		if err != nil {
			fmt.Fprintf(c.stderr, "Internal error validating %s: %v\n", redactor.Mask(value), err)
			return exitInternal
		}
		if err := auditLogger.Log(ctx, audit.NewValidationEntry(auditSource, value, res)); err != nil {
			fmt.Fprintf(c.stderr, "Error writing audit entry: %v\n", err)
		}
		if !res.Valid {
			code = exitFailure
		}

		outputs = append(outputs, validationOutput{
			IBAN:    value,
			Valid:   res.Valid,
			Reason:  string(res.Reason),
			Country: res.Country,
			SEPA:    res.Spec.SEPA,
		})
	}

	switch *outputFormat {
	case "json":
		c.writeJSON(outputs)
	default:
		for _, o := range outputs {
			if o.Valid {
				fmt.Fprintf(c.stdout, "✓ %s (%s%s)\n", iban.IBAN(o.IBAN).Print(), o.Country, sepaSuffix(o.SEPA))
			} else {
				fmt.Fprintf(c.stdout, "✗ %s (%s)\n", o.IBAN, o.Reason)
			}
		}
	}

	return code
}

func sepaSuffix(sepa bool) string {
	if sepa {
		return ", SEPA"
	}
	return ""
}

func (c *cli) runSEPA(args []string) int {
	fs := c.flagSet("sepa")
	registryFile := fs.String("registry", "", "YAML registry replacing the built-in country table")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(c.stderr, "Usage: iban sepa [flags] <country-code|iban>...")
		return exitFailure
	}

	v, err := loadValidator(*registryFile)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error loading registry: %v\n", err)
		return exitFailure
	}

	code := exitOK
	for _, arg := range fs.Args() {
		sepa, err := v.IsSEPACountry(arg)
		if err != nil {
			fmt.Fprintf(c.stderr, "Internal error: %v\n", err)
			return exitInternal
		}
		if sepa {
			fmt.Fprintf(c.stdout, "%s\tsepa\n", arg)
		} else {
			fmt.Fprintf(c.stdout, "%s\tnot sepa\n", arg)
			code = exitFailure
		}
	}
	return code
}

type scanOutput struct {
	DetectionCount int             `json:"detection_count"`
	Detections     []scanDetection `json:"detections"`
	RedactedText   string          `json:"redacted_text"`
}

type scanDetection struct {
	Country    string `json:"country"`
	SEPA       bool   `json:"sepa"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Confidence string `json:"confidence"`
	Redacted   string `json:"redacted"`
}

func (c *cli) runScan(args []string) int {
	fs := c.flagSet("scan")
	registryFile := fs.String("registry", "", "YAML registry replacing the built-in country table")
	inputFile := fs.String("f", "", "Input file to scan")
	inputText := fs.String("t", "", "Input text to scan")
	outputFormat := fs.String("o", "text", "Output format: text, json")
	countryList := fs.String("c", "", "Comma-separated list of countries to detect (empty = all)")
	maskType := fs.String("mask", redactor.MaskPartial, "Masking: partial, full, hash, tokenize")
	noValidate := fs.Bool("no-validate", false, "Report IBAN-shaped text without checksum validation")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	v, err := loadValidator(*registryFile)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error loading registry: %v\n", err)
		return exitFailure
	}

	var input string
	switch {
	case *inputText != "":
		input = *inputText
	case *inputFile != "":
		content, err := os.ReadFile(*inputFile)
		if err != nil {
			fmt.Fprintf(c.stderr, "Error reading file: %v\n", err)
			return exitFailure
		}
		input = string(content)
	default:
		content, err := io.ReadAll(c.stdin)
		if err != nil {
			fmt.Fprintf(c.stderr, "Error reading input: %v\n", err)
			return exitFailure
		}
		input = string(content)
	}
	if input == "" {
		fmt.Fprintln(c.stderr, "No input provided")
		return exitFailure
	}

	engine := detector.NewEngine(v)
	if *noValidate {
		engine.DisableValidation()
	}

	strategy := redactor.DefaultStrategy
	strategy.Type = *maskType
	redact := redactor.NewRedactor(engine, strategy)

	ctx := context.Background()
	var result *redactor.RedactResult
	if *countryList != "" {
		countries := strings.Split(*countryList, ",")
		for i := range countries {
			countries[i] = strings.ToUpper(strings.TrimSpace(countries[i]))
		}
		result, err = redact.RedactCountries(ctx, input, countries)
	} else {
		result, err = redact.Redact(ctx, input)
	}
	if err != nil {
		fmt.Fprintf(c.stderr, "Error during detection: %v\n", err)
		return exitInternal
	}

	switch *outputFormat {
	case "json":
		out := scanOutput{
			DetectionCount: result.RedactedCount,
			Detections:     make([]scanDetection, 0, len(result.Detections)),
			RedactedText:   result.RedactedText,
		}
		for _, d := range result.Detections {
			out.Detections = append(out.Detections, scanDetection{
				Country:    d.Country,
				SEPA:       d.SEPA,
				Start:      d.Position.Start,
				End:        d.Position.End,
				Confidence: d.Confidence,
				Redacted:   d.RedactedText,
			})
		}
		c.writeJSON(out)
	default:
		c.outputScanText(result)
	}
	return exitOK
}

func (c *cli) outputScanText(result *redactor.RedactResult) {
	if result.RedactedCount == 0 {
		fmt.Fprintln(c.stdout, "No IBAN detected.")
		return
	}

	fmt.Fprintf(c.stdout, "Detected %d IBAN(s)\n", result.RedactedCount)
	fmt.Fprintln(c.stdout, "========================================")
	for _, d := range result.Detections {
		fmt.Fprintf(c.stdout, "  - %s (%s%s, %s confidence)\n", d.RedactedText, d.Country, sepaSuffix(d.SEPA), d.Confidence)
		fmt.Fprintf(c.stdout, "    Position: %d-%d\n", d.Position.Start, d.Position.End)
	}
	fmt.Fprintln(c.stdout, "========================================")
	fmt.Fprintln(c.stdout, "Redacted Output:")
	fmt.Fprintln(c.stdout, "========================================")
	fmt.Fprintln(c.stdout, result.RedactedText)
}

func (c *cli) runCountries(args []string) int {
	fs := c.flagSet("countries")
	registryFile := fs.String("registry", "", "YAML registry replacing the built-in country table")
	sepaOnly := fs.Bool("sepa", false, "List SEPA countries only")
	outputFormat := fs.String("o", "text", "Output format: text, yaml")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	v, err := loadValidator(*registryFile)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error loading registry: %v\n", err)
		return exitFailure
	}

	var specs []registry.Spec
	for _, cs := range v.Registry().Specs() {
		if *sepaOnly && !cs.SEPA {
			continue
		}
		specs = append(specs, registry.Spec{
			Code:      cs.Code,
			Length:    cs.Length,
			Structure: cs.Structure(),
			Pattern:   cs.Pattern(),
			SEPA:      cs.SEPA,
		})
	}

	switch *outputFormat {
	case "yaml":
		if err := registry.WriteYAML(c.stdout, specs); err != nil {
			fmt.Fprintf(c.stderr, "Error writing YAML: %v\n", err)
			return exitFailure
		}
	default:
		for _, s := range specs {
			sepa := ""
			if s.SEPA {
				sepa = "SEPA"
			}
			fmt.Fprintf(c.stdout, "%s  %2d  %-4s  %s\n", s.Code, s.Length, sepa, s.Structure)
		}
	}
	return exitOK
}

func (c *cli) runGenerate(args []string) int {
	fs := c.flagSet("generate")
	registryFile := fs.String("registry", "", "YAML registry replacing the built-in country table")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(c.stderr, "Usage: iban generate [flags] <country> <bban>")
		return exitFailure
	}

	v, err := loadValidator(*registryFile)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error loading registry: %v\n", err)
		return exitFailure
	}

	country := validator.ToUpperASCII(fs.Arg(0))
	bban := iban.Electronic(fs.Arg(1))

	digits, err := checksum.CheckDigits(country, bban)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error computing check digits: %v\n", err)
		return exitFailure
	}

	value, err := iban.ParseWith(v, country+digits+bban)
	if err != nil {
		if errors.Is(err, iban.ErrInvalidFormat) {
			res, _ := v.Validate(country + digits + bban)
			fmt.Fprintf(c.stderr, "Generated value does not satisfy the %s rule (%s)\n", country, res.Reason)
			return exitFailure
		}
		fmt.Fprintf(c.stderr, "Internal error: %v\n", err)
		return exitInternal
	}

	fmt.Fprintln(c.stdout, value.Print())
	return exitOK
}

func (c *cli) runRegistry(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(c.stderr, "Usage: iban registry <command> [args]")
		fmt.Fprintln(c.stderr, "")
		fmt.Fprintln(c.stderr, "Commands:")
		fmt.Fprintln(c.stderr, "  import <swift.txt>   Convert the SWIFT IBAN registry export to YAML")
		fmt.Fprintln(c.stderr, "  check <file>         Validate a YAML registry file")
		return exitFailure
	}

	switch args[0] {
	case "import":
		return c.runRegistryImport(args[1:])
	case "check":
		return c.runRegistryCheck(args[1:])
	default:
		fmt.Fprintf(c.stderr, "Unknown registry command: %s\n", args[0])
		return exitFailure
	}
}

func (c *cli) runRegistryImport(args []string) int {
	fs := c.flagSet("registry import")
	outputFile := fs.String("o", "", "Write the YAML registry to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "Usage: iban registry import [-o file] <swift.txt>")
		return exitFailure
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(c.stderr, "Error reading file %s: %v\n", fs.Arg(0), err)
		return exitFailure
	}
	defer f.Close()

	specs, err := registry.ParseSWIFT(f)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error parsing SWIFT registry: %v\n", err)
		return exitFailure
	}
	if _, err := registry.New(specs); err != nil {
		fmt.Fprintf(c.stderr, "Imported registry is invalid: %v\n", err)
		return exitFailure
	}

	out := c.stdout
	if *outputFile != "" {
		file, err := os.Create(*outputFile)
		if err != nil {
			fmt.Fprintf(c.stderr, "Error creating %s: %v\n", *outputFile, err)
			return exitFailure
		}
		defer file.Close()
		out = file
	}

	if err := registry.WriteYAML(out, specs); err != nil {
		fmt.Fprintf(c.stderr, "Error writing YAML: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(c.stderr, "Imported %d countries\n", len(specs))
	return exitOK
}

func (c *cli) runRegistryCheck(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(c.stderr, "Usage: iban registry check <file>")
		return exitFailure
	}

	reg, err := registry.LoadFile(args[0])
	if err != nil {
		fmt.Fprintf(c.stderr, "✗ %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(c.stdout, "✓ %d countries, %d SEPA\n", reg.Len(), len(reg.SEPACountries()))
	return exitOK
}

func (c *cli) writeJSON(v any) {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(c.stderr, "Error encoding JSON: %v\n", err)
	}
}

func (c *cli) printHelp() {
	fmt.Fprintln(c.stdout, `IBAN Validator CLI

Usage:
  iban <command> [flags] [args]

Commands:
  validate [iban...]        Validate IBANs (arguments or one per line on stdin)
  sepa <code|iban>...       Report SEPA membership
  scan                      Find and mask IBANs in text
  countries                 List the registry
  generate <country> <bban> Compute check digits and print the IBAN
  rules test <file>         Run a test suite file against the validator
  registry import <file>    Convert the SWIFT IBAN registry export to YAML
  registry check <file>     Validate a YAML registry file

Common flags:
  -registry string   YAML registry replacing the built-in country table

Exit codes:
  0  success
  1  invalid input or failed test
  2  internal validation fault

Examples:
  # Validate an IBAN
  iban validate "GB82 WEST 1234 5698 7654 32"

  # Validate a list
  cat ibans.txt | iban validate -o json

  # Mask IBANs in a log file
  iban scan -f /var/log/payments.log -mask full

  # Check SEPA membership
  iban sepa CH BR

  # Test a suite file
  iban rules test testdata/suite.yaml`)
}

// yamlDecode decodes a single YAML document and rejects unknown fields
func yamlDecode(r io.Reader, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	return dec.Decode(v)
}
