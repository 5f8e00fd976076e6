// Package observability provides Prometheus metrics and HTTP middleware
// for the restful service.
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restful_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restful_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// NegotiatedTotal counts responses by the content type they were sent as.
	NegotiatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restful_negotiated_total",
			Help: "Responses by negotiated content type",
		},
		[]string{"content_type"},
	)

	// UnsupportedMediaTypeTotal counts Accept values no registered format matched.
	UnsupportedMediaTypeTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "restful_unsupported_media_type_total",
			Help: "Negotiation failures",
		},
	)

	// MappingErrorsTotal counts encode and decode failures by content type.
	MappingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restful_mapping_errors_total",
			Help: "Mapping failures",
		},
		[]string{"content_type", "direction"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		NegotiatedTotal,
		UnsupportedMediaTypeTotal,
		MappingErrorsTotal,
	)
}
