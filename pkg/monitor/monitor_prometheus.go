package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Prometheus struct {
	registry *prometheus.Registry

	connectedGauge prometheus.Gauge
	loginCounter   prometheus.Counter
	inseqGauge     prometheus.Gauge
	outseqGauge    prometheus.Gauge

	// ---------------- upstream ----------------
	upstreamTrafficCounter prometheus.Counter
	upstreamMessageCounter *prometheus.CounterVec
	outboundBufferedGauge  prometheus.Gauge

	// ---------------- downstream ----------------
	downstreamTrafficCounter prometheus.Counter
	downstreamMessageCounter *prometheus.CounterVec
	heartbeatCounter         prometheus.Counter
	gapCounter               prometheus.Counter
	duplicateCounter         prometheus.Counter

	// ---------------- dispatch ----------------
	dispatchHistogram   *prometheus.HistogramVec
	handlerErrorCounter *prometheus.CounterVec
}

// NewPrometheus registers its collectors on a registry of its own so several
// sessions can live in one process.
func NewPrometheus() *Prometheus {
	namespace := "smarkets"
	subsystem := "stream"

	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		connectedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "connected",
			Help:      "1 while the transport is connected",
		}),
		loginCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "login_total",
			Help:      "Login responses received",
		}),
		inseqGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "inseq",
			Help:      "Next expected inbound sequence number",
		}),
		outseqGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outseq",
			Help:      "Next confirmed outbound sequence number",
		}),
		upstreamTrafficCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upstream_traffic_bytes",
			Help:      "Bytes written to the socket",
		}),
		upstreamMessageCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upstream_messages_total",
			Help:      "Messages queued for sending by type",
		}, []string{"type"}),
		outboundBufferedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbound_buffered_bytes",
			Help:      "Bytes waiting in the outbound buffer",
		}),
		downstreamTrafficCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "downstream_traffic_bytes",
			Help:      "Bytes read from the socket",
		}),
		downstreamMessageCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "downstream_messages_total",
			Help:      "Messages accepted by type",
		}, []string{"type"}),
		heartbeatCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "heartbeats_total",
			Help:      "Heartbeats answered",
		}),
		gapCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sequence_gaps_total",
			Help:      "Inbound messages ahead of the expected sequence",
		}),
		duplicateCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duplicates_total",
			Help:      "Inbound messages behind the expected sequence",
		}),
		dispatchHistogram: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatch_seconds",
			Help:      "Time spent in handlers per message type",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"type"}),
		handlerErrorCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handler_errors_total",
			Help:      "Handler errors per message type",
		}, []string{"type"}),
	}
	p.registry.MustRegister(
		p.connectedGauge,
		p.loginCounter,
		p.inseqGauge,
		p.outseqGauge,
		p.upstreamTrafficCounter,
		p.upstreamMessageCounter,
		p.outboundBufferedGauge,
		p.downstreamTrafficCounter,
		p.downstreamMessageCounter,
		p.heartbeatCounter,
		p.gapCounter,
		p.duplicateCounter,
		p.dispatchHistogram,
		p.handlerErrorCounter,
	)
	return p
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) ConnectedSet(connected bool) {
	if connected {
		p.connectedGauge.Set(1)
	} else {
		p.connectedGauge.Set(0)
	}
}

func (p *Prometheus) LoginInc() {
	p.loginCounter.Inc()
}

func (p *Prometheus) UpstreamTrafficAdd(v int) {
	p.upstreamTrafficCounter.Add(float64(v))
}

func (p *Prometheus) UpstreamMessageInc(name string) {
	p.upstreamMessageCounter.WithLabelValues(name).Inc()
}

func (p *Prometheus) OutboundBufferedSet(v int) {
	p.outboundBufferedGauge.Set(float64(v))
}

func (p *Prometheus) DownstreamTrafficAdd(v int) {
	p.downstreamTrafficCounter.Add(float64(v))
}

func (p *Prometheus) DownstreamMessageInc(name string) {
	p.downstreamMessageCounter.WithLabelValues(name).Inc()
}

func (p *Prometheus) HeartbeatInc() {
	p.heartbeatCounter.Inc()
}

func (p *Prometheus) GapInc() {
	p.gapCounter.Inc()
}

func (p *Prometheus) DuplicateInc() {
	p.duplicateCounter.Inc()
}

func (p *Prometheus) SeqSet(inseq, outseq uint64) {
	p.inseqGauge.Set(float64(inseq))
	p.outseqGauge.Set(float64(outseq))
}

func (p *Prometheus) DispatchObserve(name string, v time.Duration) {
	p.dispatchHistogram.WithLabelValues(name).Observe(v.Seconds())
}

func (p *Prometheus) HandlerErrorInc(name string) {
	p.handlerErrorCounter.WithLabelValues(name).Inc()
}
