// Package kcpmetrics wires a [kcp.ControlBlock]'s RTT/congestion/retransmit
// counters to Prometheus. It is an optional companion package: the core kcp
// package never imports prometheus itself, only the narrow sink interface
// [Collector] satisfies.
package kcpmetrics

import "github.com/prometheus/client_golang/prometheus"

// Collector reports per-ControlBlock transport health to Prometheus: a
// retransmit counter, an RTT histogram, and cwnd/ssthresh gauges, one set
// per conversation label value. Register it with a [prometheus.Registerer]
// and pass it to kcp.ControlBlock.SetMetrics.
type Collector struct {
	xmitTotal prometheus.Counter
	rtt       prometheus.Histogram
	cwnd      prometheus.Gauge
	ssthresh  prometheus.Gauge
}

// NewCollector builds a Collector labeled with conv, the conversation id of
// the ControlBlock it will be attached to. constLabels carries any
// additional process-wide labels (instance, peer address) the caller wants
// attached to every series.
func NewCollector(conv uint32, constLabels prometheus.Labels) *Collector {
	labels := prometheus.Labels{}
	for k, v := range constLabels {
		labels[k] = v
	}
	labels["conv"] = fmtConv(conv)

	return &Collector{
		xmitTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "kcp",
			Name:        "segments_retransmitted_total",
			Help:        "Segments (re)transmitted by this control block's flush cycle.",
			ConstLabels: labels,
		}),
		rtt: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "kcp",
			Name:        "round_trip_time_milliseconds",
			Help:        "Raw RTT samples fed to the control block's estimator.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 16),
		}),
		cwnd: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "kcp",
			Name:        "congestion_window_segments",
			Help:        "Current congestion window, in segments.",
			ConstLabels: labels,
		}),
		ssthresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "kcp",
			Name:        "slow_start_threshold_segments",
			Help:        "Current slow-start threshold, in segments.",
			ConstLabels: labels,
		}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.xmitTotal.Describe(ch)
	c.rtt.Describe(ch)
	c.cwnd.Describe(ch)
	c.ssthresh.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.xmitTotal.Collect(ch)
	c.rtt.Collect(ch)
	c.cwnd.Collect(ch)
	c.ssthresh.Collect(ch)
}

// ObserveRTT feeds one RTT sample, in milliseconds.
func (c *Collector) ObserveRTT(ms float64) { c.rtt.Observe(ms) }

// ObserveXmit counts one segment (re)transmission.
func (c *Collector) ObserveXmit() { c.xmitTotal.Inc() }

// SetCwnd reports the current congestion window, in segments.
func (c *Collector) SetCwnd(v float64) { c.cwnd.Set(v) }

// SetSsthresh reports the current slow-start threshold, in segments.
func (c *Collector) SetSsthresh(v float64) { c.ssthresh.Set(v) }

func fmtConv(conv uint32) string {
	const hexdigits = "0123456789abcdef"
	buf := [8]byte{}
	for i := 7; i >= 0; i-- {
		buf[i] = hexdigits[conv&0xf]
		conv >>= 4
	}
	return string(buf[:])
}
