package kcp

// metricsSink is the narrow interface [ControlBlock] pushes instrumentation
// through; kept separate from prometheus types so the core engine doesn't
// import prometheus/client_golang unless a caller opts in via
// kcpmetrics.NewCollector and [ControlBlock.SetMetrics].
type metricsSink interface {
	ObserveRTT(ms float64)
	ObserveXmit()
	SetCwnd(v float64)
	SetSsthresh(v float64)
}
