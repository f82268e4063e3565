package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/bunseokbot/iban-validator/internal/redactor"
	"github.com/bunseokbot/iban-validator/internal/validator"
)

// AuditLogger defines the interface for audit logging
type AuditLogger interface {
	// Log logs an audit entry
	Log(ctx context.Context, entry *AuditEntry) error

	// Close closes the logger
	Close() error
}

// AuditEntry represents an audit log entry. It never carries a raw IBAN.
type AuditEntry struct {
	// Timestamp is when the entry was created
	Timestamp time.Time `json:"timestamp"`

	// EventType is the type of event
	EventType string `json:"eventType"`

	// Source identifies the caller, e.g. "http" or "cli"
	Source string `json:"source"`

	// Country is the country prefix of the input
	Country string `json:"country,omitempty"`

	// MaskedIBAN is the input with its middle masked
	MaskedIBAN string `json:"maskedIban,omitempty"`

	// Valid is the validation outcome
	Valid bool `json:"valid"`

	// Reason explains the outcome
	Reason string `json:"reason,omitempty"`

	// SEPA is set for SEPA lookups and valid IBANs
	SEPA bool `json:"sepa"`

	// MatchCount is the number of IBANs found by a scan
	MatchCount int `json:"matchCount,omitempty"`

	// Labels contains additional metadata
	Labels map[string]string `json:"labels,omitempty"`
}

// EventTypes for audit logging
const (
	EventTypeIBANValidated = "iban.validated"
	EventTypeIBANRejected  = "iban.rejected"
	EventTypeSEPALookup    = "sepa.lookup"
	EventTypeTextScanned   = "text.scanned"
)

// NewAuditEntry creates a new audit entry
func NewAuditEntry(eventType, source string) *AuditEntry {
	return &AuditEntry{
		Timestamp: time.Now(),
		EventType: eventType,
		Source:    source,
		Labels:    make(map[string]string),
	}
}

// NewValidationEntry creates an entry for a validation outcome. The raw
// input is masked before it is stored.
func NewValidationEntry(source, raw string, res validator.Result) *AuditEntry {
	eventType := EventTypeIBANRejected
	if res.Valid {
		eventType = EventTypeIBANValidated
	}

	return NewAuditEntry(eventType, source).
		WithCountry(res.Country).
		WithMaskedIBAN(redactor.Mask(raw)).
		WithOutcome(res.Valid, string(res.Reason)).
		WithSEPA(res.Spec.SEPA)
}

// WithCountry sets the country
func (e *AuditEntry) WithCountry(country string) *AuditEntry {
	e.Country = country
	return e
}

// WithMaskedIBAN sets the masked IBAN
func (e *AuditEntry) WithMaskedIBAN(masked string) *AuditEntry {
	e.MaskedIBAN = masked
	return e
}

// WithOutcome sets the validation outcome
func (e *AuditEntry) WithOutcome(valid bool, reason string) *AuditEntry {
	e.Valid = valid
	e.Reason = reason
	return e
}

// WithSEPA sets the SEPA flag
func (e *AuditEntry) WithSEPA(sepa bool) *AuditEntry {
	e.SEPA = sepa
	return e
}

// WithMatchCount sets the match count
func (e *AuditEntry) WithMatchCount(count int) *AuditEntry {
	e.MatchCount = count
	return e
}

// AddLabel adds a label
func (e *AuditEntry) AddLabel(key, value string) *AuditEntry {
	if e.Labels == nil {
		e.Labels = make(map[string]string)
	}
	e.Labels[key] = value
	return e
}

// JSONLogger logs audit entries as JSON to an io.Writer
type JSONLogger struct {
	mu     sync.Mutex
	writer io.Writer
	closer io.Closer
}

// NewJSONLogger creates a new JSON logger
func NewJSONLogger(w io.Writer) *JSONLogger {
	logger := &JSONLogger{
		writer: w,
	}

	// If writer is also a closer, store it
	if closer, ok := w.(io.Closer); ok {
		logger.closer = closer
	}

	return logger
}

// NewJSONFileLogger creates a new JSON logger that writes to a file
func NewJSONFileLogger(path string) (*JSONLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &JSONLogger{
		writer: file,
		closer: file,
	}, nil
}

// Log logs an audit entry
func (l *JSONLogger) Log(ctx context.Context, entry *AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	data = append(data, '\n')

	_, err = l.writer.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	return nil
}

// Close closes the logger
func (l *JSONLogger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// ControllerRuntimeLogger logs audit entries using the logger in ctx
type ControllerRuntimeLogger struct{}

// NewControllerRuntimeLogger creates a new controller-runtime logger
func NewControllerRuntimeLogger() *ControllerRuntimeLogger {
	return &ControllerRuntimeLogger{}
}

// Log logs an audit entry
func (l *ControllerRuntimeLogger) Log(ctx context.Context, entry *AuditEntry) error {
	logger := log.FromContext(ctx)

	logger.Info("audit",
		"eventType", entry.EventType,
		"source", entry.Source,
		"country", entry.Country,
		"iban", entry.MaskedIBAN,
		"valid", entry.Valid,
		"reason", entry.Reason,
		"sepa", entry.SEPA,
		"matchCount", entry.MatchCount,
	)

	return nil
}

// Close closes the logger
func (l *ControllerRuntimeLogger) Close() error {
	return nil
}

// MultiLogger logs to multiple loggers
type MultiLogger struct {
	loggers []AuditLogger
}

// NewMultiLogger creates a new multi-logger
func NewMultiLogger(loggers ...AuditLogger) *MultiLogger {
	return &MultiLogger{
		loggers: loggers,
	}
}

// AddLogger adds a logger
func (m *MultiLogger) AddLogger(logger AuditLogger) {
	m.loggers = append(m.loggers, logger)
}

// Log logs to all loggers
func (m *MultiLogger) Log(ctx context.Context, entry *AuditEntry) error {
	var lastErr error
	for _, logger := range m.loggers {
		if err := logger.Log(ctx, entry); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close closes all loggers
func (m *MultiLogger) Close() error {
	var lastErr error
	for _, logger := range m.loggers {
		if err := logger.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoOpLogger is a logger that does nothing (for testing or disabled audit)
type NoOpLogger struct{}

// NewNoOpLogger creates a new no-op logger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// Log does nothing
func (l *NoOpLogger) Log(ctx context.Context, entry *AuditEntry) error {
	return nil
}

// Close does nothing
func (l *NoOpLogger) Close() error {
	return nil
}
