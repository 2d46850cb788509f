// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic. Labels are
// chosen to keep cardinality bounded: method, registered route path (raw
// path only for unmatched requests), and status code. The analysis endpoint
// additionally records staged upload sizes, since media payloads dominate
// this service's traffic profile.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// uploadBytes tracks inbound media sizes up to the 50 MiB ceiling.
	uploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "analysis_upload_size_bytes",
			Help: "Size of media uploads submitted for analysis.",
			Buckets: []float64{
				64 << 10, 256 << 10, 1 << 20, 4 << 20,
				10 << 20, 25 << 20, 50 << 20,
			},
		},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, uploadBytes)
}

// ObserveUploadSize records the size of an inbound media upload.
func ObserveUploadSize(n int64) {
	if n >= 0 {
		uploadBytes.Observe(float64(n))
	}
}

// Metrics returns a Gin middleware that instruments requests with
// Prometheus counters, latency histograms, and an in-flight gauge.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpReqs.WithLabelValues(method, path, status).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
