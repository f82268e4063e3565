package detector

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/bunseokbot/iban-validator/internal/validator"
)

// Position represents the position of a match in the text
type Position struct {
	Start int
	End   int
}

// DetectionResult represents one IBAN found in text
type DetectionResult struct {
	// MatchedText is the text as it appears in the input
	MatchedText string

	// IBAN is the electronic format of the match
	IBAN string

	Country      string
	SEPA         bool
	Position     Position
	Confidence   string
	RedactedText string
}

// Confidence levels
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
)

type compiledRule struct {
	Regex      *regexp.Regexp
	Confidence string
}

// candidateRules find IBAN-shaped text. The compact form is a single token;
// the print form is grouped in blocks of four separated by single spaces.
var candidateRules = []*compiledRule{
	{
		Regex:      regexp.MustCompile(`\b[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}\b`),
		Confidence: ConfidenceHigh,
	},
	{
		Regex:      regexp.MustCompile(`\b[A-Z]{2}[0-9]{2}(?: [A-Z0-9]{4}){2,7}(?: [A-Z0-9]{1,4})?\b`),
		Confidence: ConfidenceMedium,
	},
}

// minGroups is the shortest print form worth trying: prefix plus two blocks
const minGroups = 3

// Engine finds IBANs in free text
type Engine struct {
	validator         *validator.Validator
	rules             []*compiledRule
	validationEnabled bool
	mu                sync.RWMutex
}

// NewEngine creates a new detection engine
func NewEngine(v *validator.Validator) *Engine {
	return &Engine{
		validator:         v,
		rules:             candidateRules,
		validationEnabled: true,
	}
}

// DisableValidation reports every IBAN-shaped candidate without checking it
func (e *Engine) DisableValidation() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.validationEnabled = false
}

// DetectInText scans text for IBANs. Results are ordered by position.
func (e *Engine) DetectInText(ctx context.Context, text string) ([]DetectionResult, error) {
	return e.detect(ctx, text, nil)
}

// DetectInCountries scans text for IBANs of the given countries only
func (e *Engine) DetectInCountries(ctx context.Context, text string, countries []string) ([]DetectionResult, error) {
	allowed := make(map[string]bool, len(countries))
	for _, c := range countries {
		allowed[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	return e.detect(ctx, text, allowed)
}

func (e *Engine) detect(ctx context.Context, text string, countries map[string]bool) ([]DetectionResult, error) {
	var results []DetectionResult

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, rule := range e.rules {
		for _, match := range rule.Regex.FindAllStringIndex(text, -1) {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			default:
			}

			if countries != nil && !countries[text[match[0]:match[0]+2]] {
				continue
			}

			result, ok, err := e.confirm(text[match[0]:match[1]])
			if err != nil {
				return results, err
			}
			if !ok {
				continue
			}

			result.Position = Position{
				Start: match[0],
				End:   match[0] + len(result.MatchedText),
			}
			result.Confidence = rule.Confidence
			results = append(results, result)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Position.Start < results[j].Position.Start
	})

	return dropOverlaps(results), nil
}

// confirm validates a candidate. Grouped candidates may have swallowed a
// trailing word, so shorter prefixes are tried before giving up.
func (e *Engine) confirm(candidate string) (DetectionResult, bool, error) {
	groups := strings.Split(candidate, " ")

	for n := len(groups); n >= 1; n-- {
		if n < minGroups && n != len(groups) {
			break
		}

		matched := strings.Join(groups[:n], " ")
		electronic := strings.Join(groups[:n], "")

		result := DetectionResult{
			MatchedText: matched,
			IBAN:        electronic,
			Country:     electronic[:2],
		}

		if !e.validationEnabled {
			return result, true, nil
		}

		res, err := e.validator.Validate(electronic)
		if err != nil {
			return DetectionResult{}, false, err
		}
		if res.Valid {
			result.SEPA = res.Spec.SEPA
			return result, true, nil
		}
	}

	return DetectionResult{}, false, nil
}

func dropOverlaps(results []DetectionResult) []DetectionResult {
	out := results[:0]
	end := -1
	for _, r := range results {
		if r.Position.Start < end {
			continue
		}
		out = append(out, r)
		end = r.Position.End
	}
	return out
}
