// Package metrics exports prometheus metrics for ONVIF SOAP traffic and session bootstrap.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "onvif"

// Outcomes of a SOAP call or bootstrap step.
const (
	OutcomeOK             = "ok"
	OutcomeFault          = "fault"
	OutcomeHTTPError      = "http_error"
	OutcomeTransportError = "transport_error"
	OutcomeFailed         = "failed"
)

// Recorder receives observations from the device transport and the bootstrapper.
type Recorder interface {
	ObserveSOAPCall(service, method, outcome string, took time.Duration)
	ObserveBootstrapStep(step, outcome string)
}

// Collector is a Recorder backed by prometheus vectors. It implements prometheus.Collector.
type Collector struct {
	soapCalls    *prometheus.CounterVec
	soapDuration *prometheus.HistogramVec
	steps        *prometheus.CounterVec
	sessions     prometheus.Gauge
}

// NewCollector creates an unregistered Collector.
func NewCollector() *Collector {
	return &Collector{
		soapCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "soap_calls_total",
			Help:      "SOAP calls sent to ONVIF devices.",
		}, []string{"service", "method", "outcome"}),
		soapDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "soap_call_duration_seconds",
			Help:      "Latency of SOAP calls to ONVIF devices.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "method"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bootstrap_steps_total",
			Help:      "Session bootstrap steps by outcome.",
		}, []string{"step", "outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Device sessions currently held.",
		}),
	}
}

// ObserveSOAPCall implements Recorder.
func (c *Collector) ObserveSOAPCall(service, method, outcome string, took time.Duration) {
	c.soapCalls.WithLabelValues(service, method, outcome).Inc()
	c.soapDuration.WithLabelValues(service, method).Observe(took.Seconds())
}

// ObserveBootstrapStep implements Recorder.
func (c *Collector) ObserveBootstrapStep(step, outcome string) {
	c.steps.WithLabelValues(step, outcome).Inc()
}

// SetSessions records the number of sessions currently held.
func (c *Collector) SetSessions(n int) {
	c.sessions.Set(float64(n))
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.soapCalls.Describe(ch)
	c.soapDuration.Describe(ch)
	c.steps.Describe(ch)
	ch <- c.sessions.Desc()
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.soapCalls.Collect(ch)
	c.soapDuration.Collect(ch)
	c.steps.Collect(ch)
	ch <- c.sessions
}

// Nop discards observations.
type Nop struct{}

// ObserveSOAPCall implements Recorder.
func (Nop) ObserveSOAPCall(string, string, string, time.Duration) {}

// ObserveBootstrapStep implements Recorder.
func (Nop) ObserveBootstrapStep(string, string) {}
