package config

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/bunseokbot/iban-validator/internal/redactor"
)

// Defaults
const (
	DefaultListenAddress = ":8080"
	DefaultMaxBatch      = 100
	maxBatchLimit        = 10000
)

var maskingTypes = sets.New(redactor.MaskFull, redactor.MaskPartial, redactor.MaskHash, redactor.MaskTokenize)

// Config is the server configuration
type Config struct {
	// ListenAddress is the address the API binds to
	ListenAddress string `yaml:"listenAddress"`

	// RegistryFile replaces the built-in registry when set
	RegistryFile string `yaml:"registryFile,omitempty"`

	// AuditLogFile receives JSON audit entries when set
	AuditLogFile string `yaml:"auditLogFile,omitempty"`

	// MaxBatch caps the number of IBANs in one batch request
	MaxBatch int `yaml:"maxBatch"`

	// RateLimitPerMinute limits requests per client, 0 disables it
	RateLimitPerMinute int `yaml:"rateLimitPerMinute"`

	// TrustForwardedHeaders keys the rate limiter on X-Forwarded-For and
	// X-Real-IP instead of the peer address
	TrustForwardedHeaders bool `yaml:"trustForwardedHeaders"`

	// Masking is used for audit entries and redaction responses
	Masking redactor.MaskingStrategy `yaml:"masking"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields
func (c *Config) ApplyDefaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = DefaultListenAddress
	}
	if c.MaxBatch == 0 {
		c.MaxBatch = DefaultMaxBatch
	}
	switch {
	case c.Masking == (redactor.MaskingStrategy{}):
		c.Masking = redactor.DefaultStrategy
	case c.Masking.Type == "":
		c.Masking.Type = redactor.DefaultStrategy.Type
	}
	if c.Masking.MaskChar == "" {
		c.Masking.MaskChar = redactor.DefaultStrategy.MaskChar
	}
}

// Validate checks the configuration and reports every problem at once
func (c *Config) Validate() error {
	var errs field.ErrorList

	if _, _, err := net.SplitHostPort(c.ListenAddress); err != nil {
		errs = append(errs, field.Invalid(field.NewPath("listenAddress"), c.ListenAddress, err.Error()))
	}
	if c.MaxBatch < 1 || c.MaxBatch > maxBatchLimit {
		errs = append(errs, field.Invalid(field.NewPath("maxBatch"), c.MaxBatch,
			fmt.Sprintf("must be between 1 and %d", maxBatchLimit)))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, field.Invalid(field.NewPath("rateLimitPerMinute"), c.RateLimitPerMinute, "must not be negative"))
	}

	masking := field.NewPath("masking")
	if !maskingTypes.Has(c.Masking.Type) {
		errs = append(errs, field.NotSupported(masking.Child("type"), c.Masking.Type, sets.List(maskingTypes)))
	}
	if c.Masking.ShowFirst < 0 {
		errs = append(errs, field.Invalid(masking.Child("showFirst"), c.Masking.ShowFirst, "must not be negative"))
	}
	if c.Masking.ShowLast < 0 {
		errs = append(errs, field.Invalid(masking.Child("showLast"), c.Masking.ShowLast, "must not be negative"))
	}
	if len([]rune(c.Masking.MaskChar)) != 1 {
		errs = append(errs, field.Invalid(masking.Child("maskChar"), c.Masking.MaskChar, "must be a single character"))
	}

	return errs.ToAggregate()
}

// Parse reads a YAML configuration, applies defaults and validates it
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	c := &Config{}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// Load reads the configuration file at path. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}
