package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/bunseokbot/iban-validator/internal/audit"
	"github.com/bunseokbot/iban-validator/internal/iban"
	"github.com/bunseokbot/iban-validator/internal/redactor"
	"github.com/bunseokbot/iban-validator/internal/validator"
)

type ibanResponse struct {
	IBAN    string `json:"iban"`
	Valid   bool   `json:"valid"`
	Reason  string `json:"reason"`
	Country string `json:"country,omitempty"`
	SEPA    bool   `json:"sepa"`
	Print   string `json:"print,omitempty"`
}

type batchRequest struct {
	IBANs []string `json:"ibans"`
}

type batchResponse struct {
	Results []ibanResponse `json:"results"`
}

type sepaResponse struct {
	Country string `json:"country"`
	SEPA    bool   `json:"sepa"`
}

type countryResponse struct {
	Code      string `json:"code"`
	Length    int    `json:"length"`
	SEPA      bool   `json:"sepa"`
	Structure string `json:"structure,omitempty"`
	Pattern   string `json:"pattern"`
}

type redactRequest struct {
	Text      string   `json:"text"`
	Countries []string `json:"countries,omitempty"`
}

type redactResponse struct {
	Text       string            `json:"text"`
	Count      int               `json:"count"`
	Detections []detectionRecord `json:"detections"`
}

type detectionRecord struct {
	Country    string `json:"country"`
	SEPA       bool   `json:"sepa"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Confidence string `json:"confidence"`
	Masked     string `json:"masked"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := s.validate(ctx, chi.URLParam(r, "iban"))
	if err != nil {
		log.FromContext(ctx).Error(err, "validation failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleValidateBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	var req batchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		logger.Info("invalid batch request", "error", err.Error())
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if len(req.IBANs) > s.maxBatch {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Sprintf("at most %d ibans per request", s.maxBatch))
		return
	}

	resp := batchResponse{Results: make([]ibanResponse, 0, len(req.IBANs))}
	for _, raw := range req.IBANs {
		result, err := s.validate(ctx, raw)
		if err != nil {
			logger.Error(err, "batch validation failed", "batchSize", len(req.IBANs))
			writeError(w, http.StatusInternalServerError, "internal_error", "")
			return
		}
		resp.Results = append(resp.Results, result)
	}

	writeJSON(w, http.StatusOK, resp)
}

// validate checks one IBAN, print format included, and records the outcome
func (s *Server) validate(ctx context.Context, raw string) (ibanResponse, error) {
	value := iban.Electronic(raw)

	res, err := s.validator.Validate(value)
	if err != nil {
		return ibanResponse{}, err
	}
	s.metrics.ObserveValidation(res)

	entry := audit.NewValidationEntry(auditSource, value, res).
		WithMaskedIBAN(redactor.ApplyMasking(value, s.masking))
	s.logAudit(ctx, entry)

	resp := ibanResponse{
		IBAN:    value,
		Valid:   res.Valid,
		Reason:  string(res.Reason),
		Country: res.Country,
		SEPA:    res.Spec.SEPA,
	}
	if res.Valid {
		resp.Print = iban.IBAN(value).Print()
	}
	return resp, nil
}

func (s *Server) handleSEPA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	sepa, err := s.validator.IsSEPACountry(code)
	if err != nil {
		log.FromContext(ctx).Error(err, "sepa lookup failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	s.metrics.ObserveSEPALookup(sepa)

	country := validator.ToUpperASCII(code)
	if len(country) > 2 {
		country = country[:2]
	}
	s.logAudit(ctx, audit.NewAuditEntry(audit.EventTypeSEPALookup, auditSource).
		WithCountry(country).
		WithSEPA(sepa))

	writeJSON(w, http.StatusOK, sepaResponse{Country: country, SEPA: sepa})
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	specs := s.validator.Registry().Specs()

	resp := make([]countryResponse, 0, len(specs))
	for _, spec := range specs {
		resp = append(resp, countryResponse{
			Code:      spec.Code,
			Length:    spec.Length,
			SEPA:      spec.SEPA,
			Structure: spec.Structure(),
			Pattern:   spec.Pattern(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRedact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	var req redactRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		logger.Info("invalid redact request", "error", err.Error())
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	var result *redactor.RedactResult
	var err error
	if len(req.Countries) > 0 {
		result, err = s.redactor.RedactCountries(ctx, req.Text, req.Countries)
	} else {
		result, err = s.redactor.Redact(ctx, req.Text)
	}
	if err != nil {
		logger.Error(err, "redaction failed", "textLength", len(req.Text))
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	s.metrics.AddDetections(result.RedactedCount)

	s.logAudit(ctx, audit.NewAuditEntry(audit.EventTypeTextScanned, auditSource).
		WithMatchCount(result.RedactedCount))

	resp := redactResponse{
		Text:       result.RedactedText,
		Count:      result.RedactedCount,
		Detections: make([]detectionRecord, 0, len(result.Detections)),
	}
	for _, d := range result.Detections {
		resp.Detections = append(resp.Detections, detectionRecord{
			Country:    d.Country,
			SEPA:       d.SEPA,
			Start:      d.Position.Start,
			End:        d.Position.End,
			Confidence: d.Confidence,
			Masked:     d.RedactedText,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) logAudit(ctx context.Context, entry *audit.AuditEntry) {
	if err := s.audit.Log(ctx, entry); err != nil {
		log.FromContext(ctx).Error(err, "failed to write audit entry", "eventType", entry.EventType)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, errorResponse{Error: code, ErrorDescription: description})
}
