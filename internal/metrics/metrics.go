package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bunseokbot/iban-validator/internal/validator"
)

// Metrics provides observability for the validation service.
type Metrics struct {
	// Validation outcomes by country and reason
	Validations *prometheus.CounterVec

	// SEPA lookups by answer
	SEPALookups *prometheus.CounterVec

	// IBANs found by text scans
	Detections prometheus.Counter

	// Requests rejected by the rate limiter
	RateLimited prometheus.Counter

	// Clients holding a rate limiter bucket
	RateLimiterClients prometheus.Gauge

	// Request latency by route
	RequestLatency *prometheus.HistogramVec
}

// New creates a Metrics instance registered with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Validations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "iban_validations_total",
			Help: "Total IBAN validations by country and outcome reason",
		}, []string{"country", "reason"}), // country is "unknown" for codes outside the registry

		SEPALookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "iban_sepa_lookups_total",
			Help: "Total SEPA membership lookups by answer",
		}, []string{"sepa"}),

		Detections: factory.NewCounter(prometheus.CounterOpts{
			Name: "iban_detections_total",
			Help: "Total IBANs found in scanned text",
		}),

		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "iban_rate_limited_requests_total",
			Help: "Total requests rejected by the rate limiter",
		}),

		RateLimiterClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "iban_rate_limiter_clients",
			Help: "Number of clients tracked by the rate limiter",
		}),

		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iban_request_duration_seconds",
			Help:    "Duration of API requests by route",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"route"}),
	}
}

// ObserveValidation records a validation outcome.
func (m *Metrics) ObserveValidation(res validator.Result) {
	if m == nil {
		return
	}
	country := res.Spec.Code
	if country == "" {
		country = "unknown"
	}
	m.Validations.WithLabelValues(country, string(res.Reason)).Inc()
}

// ObserveSEPALookup records a SEPA membership answer.
func (m *Metrics) ObserveSEPALookup(sepa bool) {
	if m != nil {
		m.SEPALookups.WithLabelValues(strconv.FormatBool(sepa)).Inc()
	}
}

// AddDetections records IBANs found by a scan.
func (m *Metrics) AddDetections(n int) {
	if m != nil {
		m.Detections.Add(float64(n))
	}
}

// IncrementRateLimited records a rejected request.
func (m *Metrics) IncrementRateLimited() {
	if m != nil {
		m.RateLimited.Inc()
	}
}

// SetRateLimiterClients records the number of tracked rate limiter clients.
func (m *Metrics) SetRateLimiterClients(n int) {
	if m != nil {
		m.RateLimiterClients.Set(float64(n))
	}
}

// ObserveRequestLatency records the duration of a request.
func (m *Metrics) ObserveRequestLatency(route string, d time.Duration) {
	if m != nil {
		m.RequestLatency.WithLabelValues(route).Observe(d.Seconds())
	}
}
