package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bunseokbot/iban-validator/internal/registry"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()

	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

// faultyRegistry lets characters through that the checksum cannot encode
const faultyRegistry = `countries:
  - code: XX
    length: 10
    pattern: ".{6}"
`

func TestRun_Commands(t *testing.T) {
	tests := []struct {
		name     string
		stdin    string
		args     []string
		wantCode int
		wantOut  []string
	}{
		{
			name:     "validate valid",
			args:     []string{"validate", "GB82WEST12345698765432"},
			wantCode: exitOK,
			wantOut:  []string{"✓ GB82 WEST 1234 5698 7654 32 (GB, SEPA)"},
		},
		{
			name:     "validate print format",
			args:     []string{"validate", "gb82 west 1234 5698 7654 32"},
			wantCode: exitOK,
			wantOut:  []string{"✓ GB82 WEST 1234 5698 7654 32"},
		},
		{
			name:     "validate non-sepa",
			args:     []string{"validate", "BR1800360305000010009795493C1"},
			wantCode: exitOK,
			wantOut:  []string{"(BR)"},
		},
		{
			name:     "validate invalid",
			args:     []string{"validate", "NL91ABNA0417164300", "NL91ABNA0417164301"},
			wantCode: exitFailure,
			wantOut:  []string{"✓ NL91 ABNA 0417 1643 00", "✗ NL91ABNA0417164301 (checksum_mismatch)"},
		},
		{
			name:     "validate stdin",
			stdin:    "DE89370400440532013000\n\nNO9386011117947\n",
			args:     []string{"validate"},
			wantCode: exitOK,
			wantOut:  []string{"DE89 3704", "NO93 8601"},
		},
		{
			name:     "validate no input",
			args:     []string{"validate"},
			wantCode: exitFailure,
		},
		{
			name:     "sepa",
			args:     []string{"sepa", "DE", "ch"},
			wantCode: exitOK,
			wantOut:  []string{"DE\tsepa", "ch\tsepa"},
		},
		{
			name:     "sepa non member",
			args:     []string{"sepa", "BR"},
			wantCode: exitFailure,
			wantOut:  []string{"BR\tnot sepa"},
		},
		{
			name:     "scan",
			args:     []string{"scan", "-t", "pay DE89370400440532013000 today"},
			wantCode: exitOK,
			wantOut:  []string{"Detected 1 IBAN(s)", "pay DE89**************3000 today"},
		},
		{
			name:     "scan full mask",
			args:     []string{"scan", "-mask", "full", "-t", "NO9386011117947"},
			wantCode: exitOK,
			wantOut:  []string{"***************"},
		},
		{
			name:     "scan country filter",
			args:     []string{"scan", "-c", "nl", "-t", "DE89370400440532013000"},
			wantCode: exitOK,
			wantOut:  []string{"No IBAN detected."},
		},
		{
			name:     "scan stdin",
			stdin:    "GB82 WEST 1234 5698 7654 32",
			args:     []string{"scan"},
			wantCode: exitOK,
			wantOut:  []string{"GB82 **** **** **** **54 32"},
		},
		{
			name:     "countries",
			args:     []string{"countries"},
			wantCode: exitOK,
			wantOut:  []string{"GB  22  SEPA  4!a6!n8!n", "BR  29        8!n5!n10!n1!a1!c"},
		},
		{
			name:     "generate",
			args:     []string{"generate", "GB", "WEST12345698765432"},
			wantCode: exitOK,
			wantOut:  []string{"GB82 WEST 1234 5698 7654 32"},
		},
		{
			name:     "generate lowercase",
			args:     []string{"generate", "de", "370400440532013000"},
			wantCode: exitOK,
			wantOut:  []string{"DE89 3704 0044 0532 0130 00"},
		},
		{
			name:     "generate wrong structure",
			args:     []string{"generate", "GB", "1234"},
			wantCode: exitFailure,
		},
		{
			name:     "generate bad characters",
			args:     []string{"generate", "GB", "WEST-12345698765432"},
			wantCode: exitFailure,
		},
		{
			name:     "generate missing args",
			args:     []string{"generate", "GB"},
			wantCode: exitFailure,
		},
		{
			name:     "rules test",
			args:     []string{"rules", "test", "testdata/suite.yaml"},
			wantCode: exitOK,
			wantOut:  []string{"✓ All 19 tests passed for core-countries"},
		},
		{
			name:     "help",
			args:     []string{"help"},
			wantCode: exitOK,
			wantOut:  []string{"IBAN Validator CLI"},
		},
		{
			name:     "unknown command",
			args:     []string{"frobnicate"},
			wantCode: exitFailure,
		},
		{
			name:     "no command",
			args:     nil,
			wantCode: exitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, tt.stdin, tt.args...)
			if res.code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr: %s)", res.code, tt.wantCode, res.stderr)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(res.stdout, want) {
					t.Errorf("stdout should contain %q, got:\n%s", want, res.stdout)
				}
			}
		})
	}
}

func TestRun_ValidateJSON(t *testing.T) {
	res := runCLI(t, "", "validate", "-o", "json", "GB82WEST12345698765432", "ZZ820000000000")
	if res.code != exitFailure {
		t.Errorf("exit code = %d, want %d", res.code, exitFailure)
	}

	var out []validationOutput
	if err := json.Unmarshal([]byte(res.stdout), &out); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
	if !out[0].Valid || !out[0].SEPA || out[0].Country != "GB" {
		t.Errorf("unexpected first result %+v", out[0])
	}
	if out[1].Valid || out[1].Reason != "unknown_country" {
		t.Errorf("unexpected second result %+v", out[1])
	}
}

func TestRun_ValidateAuditLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")

	res := runCLI(t, "", "validate", "-audit-log", path, "GB82WEST12345698765432")
	if res.code != exitOK {
		t.Fatalf("exit code = %d, stderr: %s", res.code, res.stderr)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.Contains(string(data), "GB82WEST12345698765432") {
		t.Error("audit log must not contain the raw IBAN")
	}
	if !strings.Contains(string(data), `"source":"cli"`) {
		t.Errorf("unexpected audit log %s", data)
	}
}

func TestRun_InternalFault(t *testing.T) {
	reg := writeFile(t, "registry.yaml", faultyRegistry)

	res := runCLI(t, "", "validate", "-registry", reg, "XX00AB!123")
	if res.code != exitInternal {
		t.Errorf("exit code = %d, want %d", res.code, exitInternal)
	}
	if strings.Contains(res.stderr, "XX00AB!123") {
		t.Error("internal errors should not print the raw IBAN")
	}
}

func TestRun_ScanJSON(t *testing.T) {
	res := runCLI(t, "", "scan", "-o", "json", "-t", "DE89370400440532013000 and NL91ABNA0417164300")
	if res.code != exitOK {
		t.Fatalf("exit code = %d, stderr: %s", res.code, res.stderr)
	}

	var out scanOutput
	if err := json.Unmarshal([]byte(res.stdout), &out); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if out.DetectionCount != 2 || len(out.Detections) != 2 {
		t.Fatalf("unexpected output %+v", out)
	}
	if out.Detections[1].Country != "NL" || out.Detections[1].Redacted != "NL91**********4300" {
		t.Errorf("unexpected detection %+v", out.Detections[1])
	}
	if strings.Contains(res.stdout, "DE89370400440532013000") {
		t.Error("JSON output must not contain raw IBANs")
	}
}

func TestRun_CountriesYAML(t *testing.T) {
	res := runCLI(t, "", "countries", "-sepa", "-o", "yaml")
	if res.code != exitOK {
		t.Fatalf("exit code = %d, stderr: %s", res.code, res.stderr)
	}

	reg, err := registry.LoadYAML(strings.NewReader(res.stdout))
	if err != nil {
		t.Fatalf("output should load as a registry: %v", err)
	}
	if want := len(registry.Default().SEPACountries()); reg.Len() != want {
		t.Errorf("Len() = %d, want %d", reg.Len(), want)
	}
	if len(reg.SEPACountries()) != reg.Len() {
		t.Error("every exported country should be SEPA")
	}
}

func TestRun_RegistryImportAndCheck(t *testing.T) {
	export := writeFile(t, "swift.txt", strings.Join([]string{
		"Data element\tAndorra\tGermany\tFinland",
		"IBAN prefix country code (ISO 3166)\tAD\tDE\tFI",
		"SEPA country\tYes\tYes\tYes",
		"IBAN structure\tAD2!n4!n4!n12!c\tDE2!n8!n10!n\tFI2!n3!n11!n",
		"IBAN length\t24\t22\t18",
	}, "\n"))
	out := filepath.Join(t.TempDir(), "registry.yaml")

	res := runCLI(t, "", "registry", "import", "-o", out, export)
	if res.code != exitOK {
		t.Fatalf("import exit code = %d, stderr: %s", res.code, res.stderr)
	}
	if !strings.Contains(res.stderr, "Imported 3 countries") {
		t.Errorf("unexpected stderr %q", res.stderr)
	}

	res = runCLI(t, "", "registry", "check", out)
	if res.code != exitOK {
		t.Fatalf("check exit code = %d, stderr: %s", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "✓ 3 countries, 3 SEPA") {
		t.Errorf("unexpected stdout %q", res.stdout)
	}

	// the imported registry drives validation
	res = runCLI(t, "", "validate", "-registry", out, "DE89370400440532013000", "GB82WEST12345698765432")
	if res.code != exitFailure {
		t.Errorf("exit code = %d, want %d", res.code, exitFailure)
	}
	if !strings.Contains(res.stdout, "(unknown_country)") {
		t.Errorf("GB should be unknown to the imported registry, got %s", res.stdout)
	}
}

func TestRun_RegistryErrors(t *testing.T) {
	broken := writeFile(t, "broken.yaml", "countries:\n  - {code: gb, length: 3}\n")

	tests := []struct {
		name string
		args []string
	}{
		{name: "no subcommand", args: []string{"registry"}},
		{name: "unknown subcommand", args: []string{"registry", "merge"}},
		{name: "import missing file", args: []string{"registry", "import", "missing.txt"}},
		{name: "check invalid registry", args: []string{"registry", "check", broken}},
		{name: "validate with invalid registry", args: []string{"validate", "-registry", broken, "GB82WEST12345698765432"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := runCLI(t, "", tt.args...); res.code != exitFailure {
				t.Errorf("exit code = %d, want %d", res.code, exitFailure)
			}
		})
	}
}

func TestRun_RulesTestFailures(t *testing.T) {
	suite := writeFile(t, "suite.yaml", `apiVersion: iban.bunseokbot.io/v1
kind: IBANTestSuite
metadata:
  name: failing
spec:
  displayName: Failing suite
  testCases:
    shouldValidate:
      - GB82WEST12345698765433
    shouldReject:
      - GB82WEST12345698765432
    nonSepa:
      - DE
`)

	res := runCLI(t, "", "rules", "test", suite)
	if res.code != exitFailure {
		t.Errorf("exit code = %d, want %d", res.code, exitFailure)
	}
	for _, want := range []string{"✗ 3/3 tests failed for failing", "(checksum_mismatch)", "shouldReject: GB82WEST12345698765432"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("stdout should contain %q, got:\n%s", want, res.stdout)
		}
	}
}

func TestRun_RulesTestRegistryFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "registry.yaml"), []byte(faultyRegistry), 0o644); err != nil {
		t.Fatal(err)
	}
	suite := filepath.Join(dir, "suite.yaml")
	if err := os.WriteFile(suite, []byte(`kind: IBANTestSuite
metadata:
  name: faulty
spec:
  registryFile: registry.yaml
  testCases:
    shouldReject:
      - XX00AB!123
`), 0o644); err != nil {
		t.Fatal(err)
	}

	if res := runCLI(t, "", "rules", "test", suite); res.code != exitInternal {
		t.Errorf("exit code = %d, want %d", res.code, exitInternal)
	}
}

func TestRun_RulesTestErrors(t *testing.T) {
	wrongKind := writeFile(t, "suite.yaml", "kind: PIIPattern\nmetadata:\n  name: x\n")
	unknownField := writeFile(t, "suite.yaml", "kind: IBANTestSuite\nspec:\n  cases: []\n")

	tests := []struct {
		name string
		args []string
	}{
		{name: "no subcommand", args: []string{"rules"}},
		{name: "missing file argument", args: []string{"rules", "test"}},
		{name: "missing file", args: []string{"rules", "test", "missing.yaml"}},
		{name: "wrong kind", args: []string{"rules", "test", wrongKind}},
		{name: "unknown field", args: []string{"rules", "test", unknownField}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := runCLI(t, "", tt.args...); res.code != exitFailure {
				t.Errorf("exit code = %d, want %d", res.code, exitFailure)
			}
		})
	}
}
