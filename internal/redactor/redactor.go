package redactor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/bunseokbot/iban-validator/internal/detector"
)

// MaskingStrategy defines how to mask a detected IBAN
type MaskingStrategy struct {
	Type        string `yaml:"type" json:"type"` // full, partial, hash, tokenize
	ShowFirst   int    `yaml:"showFirst" json:"showFirst"`
	ShowLast    int    `yaml:"showLast" json:"showLast"`
	MaskChar    string `yaml:"maskChar" json:"maskChar"`
	Replacement string `yaml:"replacement,omitempty" json:"replacement,omitempty"`
}

// Masking types
const (
	MaskFull     = "full"
	MaskPartial  = "partial"
	MaskHash     = "hash"
	MaskTokenize = "tokenize"
)

// DefaultStrategy keeps the country code, check digits and last four
// characters visible
var DefaultStrategy = MaskingStrategy{Type: MaskPartial, ShowFirst: 4, ShowLast: 4, MaskChar: "*"}

// Redactor handles masking of IBANs in text
type Redactor struct {
	engine   *detector.Engine
	strategy MaskingStrategy
}

// NewRedactor creates a new redactor
func NewRedactor(engine *detector.Engine, strategy MaskingStrategy) *Redactor {
	return &Redactor{
		engine:   engine,
		strategy: strategy,
	}
}

// RedactResult represents the result of redaction
type RedactResult struct {
	OriginalText  string
	RedactedText  string
	Detections    []detector.DetectionResult
	RedactedCount int
}

// Redact detects and masks IBANs in text
func (r *Redactor) Redact(ctx context.Context, text string) (*RedactResult, error) {
	detections, err := r.engine.DetectInText(ctx, text)
	if err != nil {
		return nil, err
	}
	return r.apply(text, detections), nil
}

// RedactCountries masks only IBANs of the given countries
func (r *Redactor) RedactCountries(ctx context.Context, text string, countries []string) (*RedactResult, error) {
	detections, err := r.engine.DetectInCountries(ctx, text, countries)
	if err != nil {
		return nil, err
	}
	return r.apply(text, detections), nil
}

func (r *Redactor) apply(text string, detections []detector.DetectionResult) *RedactResult {
	if len(detections) == 0 {
		return &RedactResult{
			OriginalText: text,
			RedactedText: text,
			Detections:   detections,
		}
	}

	// Process from end to start so earlier positions stay valid
	sort.Slice(detections, func(i, j int) bool {
		return detections[i].Position.Start > detections[j].Position.Start
	})

	redactedText := text
	for i := range detections {
		d := &detections[i]
		masked := ApplyMasking(d.MatchedText, r.strategy)
		d.RedactedText = masked

		redactedText = redactedText[:d.Position.Start] + masked + redactedText[d.Position.End:]
	}

	// Report in reading order
	sort.Slice(detections, func(i, j int) bool {
		return detections[i].Position.Start < detections[j].Position.Start
	})

	return &RedactResult{
		OriginalText:  text,
		RedactedText:  redactedText,
		Detections:    detections,
		RedactedCount: len(detections),
	}
}

// ApplyMasking applies a masking strategy to text
func ApplyMasking(text string, strategy MaskingStrategy) string {
	switch strategy.Type {
	case MaskFull:
		if strategy.Replacement != "" {
			return strategy.Replacement
		}
		return strings.Repeat(getMaskChar(strategy), len(text))

	case MaskPartial:
		return applyPartialMasking(text, strategy)

	case MaskHash:
		return hashText(text)

	case MaskTokenize:
		return tokenize(text)

	default:
		return applyPartialMasking(text, strategy)
	}
}

// Mask hides an IBAN with DefaultStrategy. Used for logs and audit entries.
func Mask(iban string) string {
	return ApplyMasking(iban, DefaultStrategy)
}

// applyPartialMasking masks the middle characters. Spaces of the print
// format are kept and not counted.
func applyPartialMasking(text string, strategy MaskingStrategy) string {
	runes := []rune(text)

	visible := 0
	for _, r := range runes {
		if r != ' ' {
			visible++
		}
	}

	showFirst := strategy.ShowFirst
	showLast := strategy.ShowLast
	maskChar := getMaskChar(strategy)

	// Adjust if total visible characters exceed length
	if showFirst+showLast >= visible {
		showFirst, showLast = 0, 0
	}

	var result strings.Builder
	seen := 0
	for _, r := range runes {
		if r == ' ' {
			result.WriteRune(r)
			continue
		}
		if seen < showFirst || seen >= visible-showLast {
			result.WriteRune(r)
		} else {
			result.WriteString(maskChar)
		}
		seen++
	}

	return result.String()
}

// getMaskChar returns the masking character
func getMaskChar(strategy MaskingStrategy) string {
	if strategy.MaskChar != "" {
		return strategy.MaskChar
	}
	return "*"
}

// hashText returns a SHA-256 hash of the text (truncated)
func hashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return "[HASH:" + hex.EncodeToString(hash[:8]) + "]"
}

// tokenize creates a token placeholder
func tokenize(text string) string {
	hash := sha256.Sum256([]byte(text))
	return "[TOKEN:" + hex.EncodeToString(hash[:4]) + "]"
}
