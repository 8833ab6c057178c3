// Package kcp implements a reliable, ordered, windowed ARQ transport engine
// carried over an unreliable datagram substrate: a conversation's
// [ControlBlock] owns its send/receive queues, RTT estimator, and AIMD
// congestion window, and exposes Send/Recv/Input/Update/Flush as the only
// points of entry. It performs no socket I/O itself; wiring datagrams in and
// out is the caller's job, normally through [ControlBlock.SetOutput] and
// repeated calls to [ControlBlock.Input].
package kcp
