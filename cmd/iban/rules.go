package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bunseokbot/iban-validator/internal/iban"
)

const suiteKind = "IBANTestSuite"

// SuiteFile represents an IBANTestSuite YAML file
type SuiteFile struct {
	APIVersion string    `yaml:"apiVersion"`
	Kind       string    `yaml:"kind"`
	Metadata   Metadata  `yaml:"metadata"`
	Spec       SuiteSpec `yaml:"spec"`
}

type Metadata struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
}

type SuiteSpec struct {
	DisplayName string `yaml:"displayName"`
	Description string `yaml:"description,omitempty"`

	// RegistryFile is resolved relative to the suite file
	RegistryFile string    `yaml:"registryFile,omitempty"`
	TestCases    TestCases `yaml:"testCases"`
}

type TestCases struct {
	ShouldValidate []string `yaml:"shouldValidate"`
	ShouldReject   []string `yaml:"shouldReject"`
	SEPA           []string `yaml:"sepa,omitempty"`
	NonSEPA        []string `yaml:"nonSepa,omitempty"`
}

func (c *cli) runRules(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(c.stderr, "Usage: iban rules <command> [args]")
		fmt.Fprintln(c.stderr, "")
		fmt.Fprintln(c.stderr, "Commands:")
		fmt.Fprintln(c.stderr, "  test <file>    Run the test cases of a suite file")
		return exitFailure
	}

	switch args[0] {
	case "test":
		if len(args) < 2 {
			fmt.Fprintln(c.stderr, "Usage: iban rules test <file>")
			return exitFailure
		}
		return c.runRulesTest(args[1])
	default:
		fmt.Fprintf(c.stderr, "Unknown rules command: %s\n", args[0])
		return exitFailure
	}
}

func (c *cli) runRulesTest(filePath string) int {
	f, err := os.Open(filePath)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error reading file %s: %v\n", filePath, err)
		return exitFailure
	}
	defer f.Close()

	var suite SuiteFile
	if err := yamlDecode(f, &suite); err != nil {
		fmt.Fprintf(c.stderr, "Error parsing YAML: %v\n", err)
		return exitFailure
	}
	if suite.Kind != suiteKind {
		fmt.Fprintf(c.stderr, "Invalid kind: expected %s, got %s\n", suiteKind, suite.Kind)
		return exitFailure
	}

	registryFile := suite.Spec.RegistryFile
	if registryFile != "" && !filepath.IsAbs(registryFile) {
		registryFile = filepath.Join(filepath.Dir(filePath), registryFile)
	}
	v, err := loadValidator(registryFile)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error loading registry: %v\n", err)
		return exitFailure
	}

	tc := suite.Spec.TestCases
	fmt.Fprintf(c.stdout, "Testing suite: %s (%s)\n", suite.Metadata.Name, suite.Spec.DisplayName)
	fmt.Fprintf(c.stdout, "TestCases: %d shouldValidate, %d shouldReject, %d sepa, %d nonSepa\n",
		len(tc.ShouldValidate), len(tc.ShouldReject), len(tc.SEPA), len(tc.NonSEPA))

	var failures []string
	check := func(section string, cases []string, want bool, test func(string) (bool, string, error)) error {
		if len(cases) == 0 {
			return nil
		}
		fmt.Fprintln(c.stdout)
		fmt.Fprintf(c.stdout, "Testing %s cases:\n", section)
		for _, tcase := range cases {
			got, detail, err := test(tcase)
			if err != nil {
				return err
			}
			if got == want {
				fmt.Fprintf(c.stdout, "  ✓ %q\n", truncate(tcase, 60))
			} else {
				fmt.Fprintf(c.stdout, "  ✗ %q (%s)\n", truncate(tcase, 60), detail)
				failures = append(failures, fmt.Sprintf("%s: %s", section, tcase))
			}
		}
		return nil
	}

	validate := func(s string) (bool, string, error) {
		res, err := v.Validate(iban.Electronic(s))
		return res.Valid, string(res.Reason), err
	}
	sepa := func(s string) (bool, string, error) {
		ok, err := v.IsSEPACountry(s)
		if ok {
			return ok, "sepa", err
		}
		return ok, "not sepa", err
	}

	for _, step := range []struct {
		section string
		cases   []string
		want    bool
		test    func(string) (bool, string, error)
	}{
		{section: "shouldValidate", cases: tc.ShouldValidate, want: true, test: validate},
		{section: "shouldReject", cases: tc.ShouldReject, want: false, test: validate},
		{section: "sepa", cases: tc.SEPA, want: true, test: sepa},
		{section: "nonSepa", cases: tc.NonSEPA, want: false, test: sepa},
	} {
		if err := check(step.section, step.cases, step.want, step.test); err != nil {
			fmt.Fprintf(c.stderr, "Internal error: %v\n", err)
			return exitInternal
		}
	}

	fmt.Fprintln(c.stdout)
	total := len(tc.ShouldValidate) + len(tc.ShouldReject) + len(tc.SEPA) + len(tc.NonSEPA)
	if len(failures) == 0 {
		fmt.Fprintf(c.stdout, "✓ All %d tests passed for %s\n", total, suite.Metadata.Name)
		return exitOK
	}

	fmt.Fprintf(c.stdout, "✗ %d/%d tests failed for %s\n", len(failures), total, suite.Metadata.Name)
	fmt.Fprintln(c.stdout)
	fmt.Fprintln(c.stdout, "Failures:")
	for _, f := range failures {
		fmt.Fprintf(c.stdout, "  - %s\n", f)
	}
	return exitFailure
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
