// Package metrics exposes Prometheus instrumentation for capture clients.
// The Collector plugs into a client through its two extension points: an
// AfterHook observing whole logical calls, and a transport Middleware
// observing every hop a chain dispatches.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lgc202/httptrail/trail"
)

// Collector owns the capture metrics and the registry they live in.
//
// Call-level series (fed by Hook):
//
//	httptrail_requests_total{method,code}      completed logical calls
//	httptrail_request_duration_seconds{method} call latency, redirects included
//	httptrail_transport_errors_total{kind}     classified transport failures
//
// Hop-level series (fed by Middleware):
//
//	httptrail_hops_total{method,code} every dispatched exchange
//	httptrail_hops_in_flight          exchanges currently on the wire
type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	TransportErrors *prometheus.CounterVec

	HopsTotal    *prometheus.CounterVec
	HopsInFlight prometheus.Gauge
}

// NewCollector builds a Collector backed by its own registry.
func NewCollector() *Collector {
	r := prometheus.NewRegistry()
	c := &Collector{
		registry: r,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "httptrail",
			Name:      "requests_total",
			Help:      "Completed logical calls by method and final status code",
		}, []string{"method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "httptrail",
			Name:      "request_duration_seconds",
			Help:      "Logical call latency, redirect hops included",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		TransportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "httptrail",
			Name:      "transport_errors_total",
			Help:      "Classified transport failures by kind",
		}, []string{"kind"}),
		HopsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "httptrail",
			Name:      "hops_total",
			Help:      "Dispatched exchanges by method and status code",
		}, []string{"method", "code"}),
		HopsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "httptrail",
			Name:      "hops_in_flight",
			Help:      "Exchanges currently on the wire",
		}),
	}
	r.MustRegister(c.RequestsTotal, c.RequestDuration, c.TransportErrors, c.HopsTotal, c.HopsInFlight)
	return c
}

// Registry returns the backing registry for custom gathering.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collected metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Hook returns an AfterHook counting logical calls. It observes the raw
// outcome, before failures are mapped to synthetic responses, so error
// series reflect real transport behavior rather than fabricated statuses.
func (c *Collector) Hook() trail.AfterHook {
	return func(req *http.Request, resp *http.Response, err error, dur time.Duration) {
		method := req.Method
		c.RequestDuration.WithLabelValues(method).Observe(dur.Seconds())
		if err != nil {
			c.TransportErrors.WithLabelValues(string(trail.KindOf(err))).Inc()
			return
		}
		c.RequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	}
}

// Middleware returns a transport middleware counting individual hops, so a
// followed redirect chain shows up once per exchange.
func (c *Collector) Middleware() trail.Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return trail.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			c.HopsInFlight.Inc()
			defer c.HopsInFlight.Dec()

			resp, err := next.RoundTrip(req)
			if err != nil {
				return nil, err
			}
			c.HopsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()
			return resp, nil
		})
	}
}
