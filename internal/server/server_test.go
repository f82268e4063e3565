package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bunseokbot/iban-validator/internal/audit"
	"github.com/bunseokbot/iban-validator/internal/metrics"
	"github.com/bunseokbot/iban-validator/internal/redactor"
	"github.com/bunseokbot/iban-validator/internal/registry"
	"github.com/bunseokbot/iban-validator/internal/validator"
)

type testServer struct {
	server   *Server
	handler  http.Handler
	metrics  *metrics.Metrics
	auditLog *bytes.Buffer
}

func newTestServer(t *testing.T, v *validator.Validator, opts Options) *testServer {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	opts.Gatherer = reg

	var buf bytes.Buffer
	s := New(v, audit.NewJSONLogger(&buf), m, logr.Discard(), opts)

	return &testServer{server: s, handler: s.Handler(), metrics: m, auditLog: &buf}
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHandleValidate(t *testing.T) {
	ts := newTestServer(t, validator.Default(), Options{})

	tests := []struct {
		name        string
		target      string
		wantValid   bool
		wantReason  string
		wantCountry string
		wantSEPA    bool
		wantPrint   string
	}{
		{
			name:        "valid",
			target:      "/v1/iban/GB82WEST12345698765432",
			wantValid:   true,
			wantReason:  "ok",
			wantCountry: "GB",
			wantSEPA:    true,
			wantPrint:   "GB82 WEST 1234 5698 7654 32",
		},
		{
			name:        "print format",
			target:      "/v1/iban/GB82%20WEST%201234%205698%207654%2032",
			wantValid:   true,
			wantReason:  "ok",
			wantCountry: "GB",
			wantSEPA:    true,
			wantPrint:   "GB82 WEST 1234 5698 7654 32",
		},
		{
			name:        "lowercase",
			target:      "/v1/iban/de89370400440532013000",
			wantValid:   true,
			wantReason:  "ok",
			wantCountry: "DE",
			wantSEPA:    true,
			wantPrint:   "DE89 3704 0044 0532 0130 00",
		},
		{
			name:        "bad checksum",
			target:      "/v1/iban/GB82WEST12345698765433",
			wantReason:  "checksum_mismatch",
			wantCountry: "GB",
			wantSEPA:    true,
		},
		{
			name:        "unknown country",
			target:      "/v1/iban/ZZ820000000000",
			wantReason:  "unknown_country",
			wantCountry: "ZZ",
		},
		{
			name:       "too short",
			target:     "/v1/iban/GB8",
			wantReason: "too_short",
		},
		{
			name:        "non-sepa country",
			target:      "/v1/iban/BR1800360305000010009795493C1",
			wantValid:   true,
			wantReason:  "ok",
			wantCountry: "BR",
			wantPrint:   "BR18 0036 0305 0000 1000 9795 493C 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, tt.target, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %s", ct)
			}

			resp := decode[ibanResponse](t, w)
			if resp.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", resp.Valid, tt.wantValid)
			}
			if resp.Reason != tt.wantReason {
				t.Errorf("reason = %s, want %s", resp.Reason, tt.wantReason)
			}
			if resp.Country != tt.wantCountry {
				t.Errorf("country = %s, want %s", resp.Country, tt.wantCountry)
			}
			if resp.SEPA != tt.wantSEPA {
				t.Errorf("sepa = %v, want %v", resp.SEPA, tt.wantSEPA)
			}
			if resp.Print != tt.wantPrint {
				t.Errorf("print = %q, want %q", resp.Print, tt.wantPrint)
			}
		})
	}
}

func TestHandleValidate_InternalFault(t *testing.T) {
	reg, err := registry.New([]registry.Spec{{Code: "XX", Length: 10, Pattern: ".{6}"}})
	if err != nil {
		t.Fatalf("registry.New() error = %v", err)
	}
	ts := newTestServer(t, validator.New(reg), Options{})

	w := ts.do(t, http.MethodGet, "/v1/iban/XX00AB!123", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	resp := decode[errorResponse](t, w)
	if resp.Error != "internal_error" {
		t.Errorf("error = %s, want internal_error", resp.Error)
	}
	if resp.ErrorDescription != "" {
		t.Errorf("internal errors should not be described, got %q", resp.ErrorDescription)
	}
}

func TestHandleValidate_AuditAndMetrics(t *testing.T) {
	ts := newTestServer(t, validator.Default(), Options{})

	ts.do(t, http.MethodGet, "/v1/iban/GB82WEST12345698765432", "")
	ts.do(t, http.MethodGet, "/v1/iban/GB82WEST12345698765433", "")

	logged := ts.auditLog.String()
	if strings.Contains(logged, "GB82WEST12345698765432") {
		t.Error("audit log must not contain the raw IBAN")
	}
	if !strings.Contains(logged, `"maskedIban":"GB82**************5432"`) {
		t.Errorf("audit log should contain the masked IBAN, got %s", logged)
	}
	if strings.Count(logged, "\n") != 2 {
		t.Errorf("expected 2 audit entries, got %q", logged)
	}

	if got := testutil.ToFloat64(ts.metrics.Validations.WithLabelValues("GB", "ok")); got != 1 {
		t.Errorf("GB ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ts.metrics.Validations.WithLabelValues("GB", "checksum_mismatch")); got != 1 {
		t.Errorf("GB checksum_mismatch = %v, want 1", got)
	}
}

func TestHandleValidate_AuditMasking(t *testing.T) {
	ts := newTestServer(t, validator.Default(), Options{
		Masking: redactor.MaskingStrategy{Type: redactor.MaskFull},
	})

	ts.do(t, http.MethodGet, "/v1/iban/NO9386011117947", "")

	if !strings.Contains(ts.auditLog.String(), `"maskedIban":"***************"`) {
		t.Errorf("configured masking should be used, got %s", ts.auditLog.String())
	}
}

func TestHandleValidateBatch(t *testing.T) {
	ts := newTestServer(t, validator.Default(), Options{MaxBatch: 3})

	w := ts.do(t, http.MethodPost, "/v1/iban/validate",
		`{"ibans":["NL91ABNA0417164300","NL91ABNA0417164301","FR14 2004 1010 0505 0001 3M02 606"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	resp := decode[batchResponse](t, w)
	if len(resp.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(resp.Results))
	}
	want := []bool{true, false, true}
	for i, r := range resp.Results {
		if r.Valid != want[i] {
			t.Errorf("results[%d].valid = %v, want %v", i, r.Valid, want[i])
		}
	}
	if resp.Results[2].IBAN != "FR1420041010050500013M02606" {
		t.Errorf("results[2].iban = %s", resp.Results[2].IBAN)
	}
}

func TestHandleValidateBatch_Errors(t *testing.T) {
	ts := newTestServer(t, validator.Default(), Options{MaxBatch: 2})

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "bad json", body: `{"ibans":`, wantCode: http.StatusBadRequest},
		{name: "wrong type", body: `{"ibans":"GB82WEST12345698765432"}`, wantCode: http.StatusBadRequest},
		{name: "too many", body: `{"ibans":["a","b","c"]}`, wantCode: http.StatusBadRequest},
		{name: "empty", body: `{"ibans":[]}`, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/v1/iban/validate", tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleSEPA(t *testing.T) {
	ts := newTestServer(t, validator.Default(), Options{})

	tests := []struct {
		code        string
		wantCountry string
		wantSEPA    bool
	}{
		{code: "DE", wantCountry: "DE", wantSEPA: true},
		{code: "ch", wantCountry: "CH", wantSEPA: true},
		{code: "BR", wantCountry: "BR"},
		{code: "GB82WEST12345698765432", wantCountry: "GB", wantSEPA: true},
		{code: "X", wantCountry: "X"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, "/v1/sepa/"+tt.code, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			resp := decode[sepaResponse](t, w)
			if resp.Country != tt.wantCountry || resp.SEPA != tt.wantSEPA {
				t.Errorf("got %+v, want %s/%v", resp, tt.wantCountry, tt.wantSEPA)
			}
		})
	}

	if got := testutil.ToFloat64(ts.metrics.SEPALookups.WithLabelValues("true")); got != 3 {
		t.Errorf("sepa=true lookups = %v, want 3", got)
	}
}

func TestHandleCountries(t *testing.T) {
	ts := newTestServer(t, validator.Default(), Options{})

	w := ts.do(t, http.MethodGet, "/v1/countries", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	resp := decode[[]countryResponse](t, w)
	if len(resp) != registry.Default().Len() {
		t.Errorf("countries = %d, want %d", len(resp), registry.Default().Len())
	}
	for _, c := range resp {
		if c.Code == "GB" {
			if c.Length != 22 || !c.SEPA || c.Pattern == "" {
				t.Errorf("unexpected GB entry %+v", c)
			}
			return
		}
	}
	t.Error("GB missing from country list")
}

func TestHandleRedact(t *testing.T) {
	ts := newTestServer(t, validator.Default(), Options{})

	w := ts.do(t, http.MethodPost, "/v1/redact",
		`{"text":"pay DE89370400440532013000 or NL91ABNA0417164300"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	resp := decode[redactResponse](t, w)
	if resp.Text != "pay DE89**************3000 or NL91**********4300" {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.Count != 2 || len(resp.Detections) != 2 {
		t.Fatalf("count = %d, detections = %d", resp.Count, len(resp.Detections))
	}
	if d := resp.Detections[0]; d.Country != "DE" || d.Start != 4 || d.End != 26 {
		t.Errorf("unexpected detection %+v", d)
	}
	if got := testutil.ToFloat64(ts.metrics.Detections); got != 2 {
		t.Errorf("detections metric = %v, want 2", got)
	}
	if !strings.Contains(ts.auditLog.String(), `"matchCount":2`) {
		t.Errorf("audit log should record the scan, got %s", ts.auditLog.String())
	}
}

func TestHandleRedact_Countries(t *testing.T) {
	ts := newTestServer(t, validator.Default(), Options{})

	w := ts.do(t, http.MethodPost, "/v1/redact",
		`{"text":"DE89370400440532013000 NL91ABNA0417164300","countries":["NL"]}`)
	resp := decode[redactResponse](t, w)
	if resp.Text != "DE89370400440532013000 NL91**********4300" {
		t.Errorf("text = %q", resp.Text)
	}
}

func TestHandleRedact_BadRequest(t *testing.T) {
	ts := newTestServer(t, validator.Default(), Options{})

	w := ts.do(t, http.MethodPost, "/v1/redact", `not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, validator.Default(), Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		if w := ts.do(t, http.MethodGet, "/v1/sepa/DE", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
	}

	w := ts.do(t, http.MethodGet, "/v1/sepa/DE", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "30" {
		t.Errorf("Retry-After = %s, want 30", w.Header().Get("Retry-After"))
	}
	if got := testutil.ToFloat64(ts.metrics.RateLimited); got != 1 {
		t.Errorf("rate limited metric = %v, want 1", got)
	}

	// probes are not limited
	if w := ts.do(t, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", w.Code)
	}
}

func TestRateLimit_IgnoresForwardedHeaders(t *testing.T) {
	ts := newTestServer(t, validator.Default(), Options{RateLimitPerMinute: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/sepa/DE", nil)
		req.RemoteAddr = "203.0.113.7:4321"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i+1))

		w := httptest.NewRecorder()
		ts.handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("status codes = %v, want %v", codes, want)
		}
	}
	if got := ts.server.limiter.Len(); got != 1 {
		t.Errorf("tracked clients = %d, want 1", got)
	}
}

func TestRateLimit_TrustedForwardedHeaders(t *testing.T) {
	ts := newTestServer(t, validator.Default(), Options{RateLimitPerMinute: 1, TrustForwardedHeaders: true})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/sepa/DE", nil)
		req.RemoteAddr = "203.0.113.7:4321"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))

		w := httptest.NewRecorder()
		ts.handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
	}
	if got := ts.server.limiter.Len(); got != 3 {
		t.Errorf("tracked clients = %d, want 3", got)
	}
}

func TestPruneLimiter(t *testing.T) {
	var lines []string
	logger := funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{Verbosity: 1})

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := New(validator.Default(), nil, m, logger, Options{RateLimitPerMinute: 2})
	handler := s.Handler()

	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/sepa/DE", nil))
	}

	s.pruneLimiter()

	// the drained bucket is not idle yet
	if got := testutil.ToFloat64(m.RateLimiterClients); got != 1 {
		t.Errorf("rate limiter clients = %v, want 1", got)
	}
	if len(lines) != 1 {
		t.Fatalf("log lines = %d, want 1: %v", len(lines), lines)
	}
	for _, want := range []string{`"clients"=1`, `"allowed"=2`, `"blocked"=1`, `"removed"=0`} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("log line %q does not contain %s", lines[0], want)
		}
	}
}

func TestProbes(t *testing.T) {
	ts := newTestServer(t, validator.Default(), Options{})

	for _, target := range []string{"/healthz", "/readyz"} {
		t.Run(target, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, target, "")
			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", w.Code)
			}
		})
	}
}

func TestReadyz_EmptyRegistry(t *testing.T) {
	ts := newTestServer(t, validator.New(&registry.Registry{}), Options{})

	w := ts.do(t, http.MethodGet, "/readyz", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, validator.Default(), Options{})

	ts.do(t, http.MethodGet, "/v1/iban/GB82WEST12345698765432", "")

	w := ts.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"iban_validations_total", "iban_request_duration_seconds"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output should contain %s", want)
		}
	}
	if !strings.Contains(body, `route="/v1/iban/{iban}"`) {
		t.Error("latency should be labelled with the route pattern")
	}
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t, validator.Default(), Options{})

	if w := ts.do(t, http.MethodGet, "/v1/unknown", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
