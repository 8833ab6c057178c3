package kcp

import (
	"log/slog"
)

// OutputFunc is the capability a [ControlBlock] holds for its lifetime to
// hand encoded datagrams to the substrate (§6's collaborator contract).
// Callers close over whatever user data they need (socket, peer address)
// rather than threading a void* through the call, the idiomatic Go
// equivalent of the upstream callback(bytes, size, cb, user) signature.
// flush calls it synchronously and never retains buf past the call.
type OutputFunc func(buf []byte) error

// ControlBlock is a single KCP ARQ connection endpoint: the reliable,
// ordered, windowed, congestion-controlled engine described by §2–§4. One
// ControlBlock exists per (local endpoint, remote peer, conv) triple; it
// performs no I/O of its own; Send/Recv/Input/Update/Flush must be
// externally serialized per instance (§5).
//
// The zero value is not usable; construct with [NewControlBlock] or
// [ControlBlock.Reset].
type ControlBlock struct {
	conv uint32
	mtu  int
	mss  int

	sndUna Seq
	sndNxt Seq
	rcvNxt Seq

	sndWnd Window
	rcvWnd Window
	rmtWnd Window

	cwnd     Window
	incr     uint32
	ssthresh uint32

	rxSrtt   uint32
	rxRttval uint32
	rxRto    uint32
	rxMinrto uint32

	current  uint32
	interval uint32
	tsFlush  uint32
	updated  bool

	probe     uint32
	tsProbe   uint32
	probeWait uint32

	nodelay         int
	fastresend      int
	fastlimit       int
	nocwnd          bool
	stream          bool
	deadLink        uint32
	xmit            uint32
	state           uint32
	fastackConserve bool

	sndQueue segFIFO
	sndBuf   sendWindow
	rcvBuf   recvWindow
	rcvQueue segFIFO
	acklist  ackList

	scratch []byte // pre-allocated flush staging buffer, 3*(mtu+Overhead).
	output  OutputFunc

	metrics metricsSink

	logger
}

// NewControlBlock returns a ControlBlock for conversation id conv with all
// defaults from §3.2/§6 applied and every queue empty. Use [NewConv] to
// mint a conv id if the caller has no out-of-band negotiation of its own.
func NewControlBlock(conv uint32) *ControlBlock {
	cb := &ControlBlock{}
	cb.Reset(conv)
	return cb
}

// Reset reinitializes cb as if newly created for conv, draining and
// discarding every queue (§4.1 release semantics folded into re-creation,
// since a ControlBlock has no other owned OS resources to free).
func (cb *ControlBlock) Reset(conv uint32) {
	out := cb.output
	log := cb.logger
	met := cb.metrics
	sndQueue, rcvQueue := cb.sndQueue, cb.rcvQueue
	sndQueue.reuse()
	rcvQueue.reuse()
	*cb = ControlBlock{}
	cb.sndQueue = sndQueue
	cb.rcvQueue = rcvQueue
	cb.conv = conv
	cb.mtu = DefaultMTU
	cb.mss = DefaultMTU - Overhead
	cb.sndWnd = DefaultSndWnd
	cb.rcvWnd = DefaultRcvWnd
	cb.rmtWnd = DefaultRcvWnd
	cb.cwnd = 1
	cb.ssthresh = threshInit
	cb.rxRto = rtoDefault
	cb.rxMinrto = rtoMin
	cb.interval = DefaultInterval
	cb.fastlimit = fastackLimit
	cb.deadLink = defaultDeadLink
	cb.scratch = make([]byte, 0, (DefaultMTU+Overhead)*3)
	cb.output = out
	cb.logger = log
	cb.metrics = met
}

// Release drains every queue, freeing segment payloads and the scratch
// buffer. After Release the ControlBlock must not be used except via Reset.
// See §4.1.
func (cb *ControlBlock) Release() {
	cb.sndQueue.Reset()
	cb.sndBuf.Reset()
	cb.rcvBuf.entries = nil
	cb.rcvQueue.Reset()
	cb.acklist.Reset()
	cb.scratch = nil
}

// Conv returns the conversation id identifying this control block.
func (cb *ControlBlock) Conv() uint32 { return cb.conv }

// State returns 0 under normal operation, or the dead-link sentinel
// (0xFFFFFFFF) once some segment has exhausted dead_link transmissions.
// Teardown on a dead link is the caller's responsibility; see §7/§9.
func (cb *ControlBlock) State() uint32 { return cb.state }

// IsDead reports whether [ControlBlock.State] has reached the dead-link
// sentinel.
func (cb *ControlBlock) IsDead() bool { return cb.state == deadLinkState }

// SetOutput registers the callback invoked synchronously by flush with each
// encoded datagram. Exactly one callback may be registered per
// ControlBlock; a later call replaces the previous one.
func (cb *ControlBlock) SetOutput(fn OutputFunc) { cb.output = fn }

// SetLogger installs a structured logger. mask narrows which traced
// subsystems (§6 log-mask bits) actually format and emit attributes; pass
// [LogMaskAll] to trace everything the logger's level allows.
func (cb *ControlBlock) SetLogger(log *slog.Logger, mask LogMask) {
	cb.logger = logger{log: log, mask: mask}
}

// SetMetrics installs an optional metrics sink; see the kcpmetrics package
// for a Prometheus-backed implementation.
func (cb *ControlBlock) SetMetrics(m metricsSink) { cb.metrics = m }

// MTU returns the current maximum transmission unit.
func (cb *ControlBlock) MTU() int { return cb.mtu }

// MSS returns the maximum segment payload size (mtu - Overhead).
func (cb *ControlBlock) MSS() int { return cb.mss }

// SetMTU changes the maximum transmission unit and reallocates the scratch
// buffer accordingly. Fails with an error if mtu is below max(50, Overhead).
// See §4.1.
func (cb *ControlBlock) SetMTU(mtu int) error {
	if mtu < minMTU || mtu < Overhead {
		return errMTUTooSmall
	}
	cb.mtu = mtu
	cb.mss = mtu - Overhead
	cb.scratch = make([]byte, 0, (mtu+Overhead)*3)
	return nil
}

// SetWndSize updates the local send/receive window sizes, in segments.
// rcv is raised to at least [DefaultRcvWnd] (128) per §4.1, since frg is an
// 8-bit remaining-fragment counter and the receive window must be able to
// hold every fragment of the largest legal message.
func (cb *ControlBlock) SetWndSize(snd, rcv int) {
	if snd > 0 {
		cb.sndWnd = Window(snd)
	}
	if rcv > 0 {
		if rcv < DefaultRcvWnd {
			rcv = DefaultRcvWnd
		}
		cb.rcvWnd = Window(rcv)
	}
}

// SetNodelay tunes retransmission aggressiveness. A negative argument
// leaves the corresponding field unchanged. See §4.1:
//
//   - nodelay: 0 disables low-latency RTO floor, 1 sets minrto=30ms, 2 also
//     selects the more aggressive RTO-growth rule in flush (§4.6 step 6).
//   - interval: flush cadence in ms, clamped to [10, 5000].
//   - resend: duplicate-ACK threshold before fast retransmit; 0 disables
//     fast retransmit.
//   - nc: disable the congestion window throttle (rmt_wnd still binds).
func (cb *ControlBlock) SetNodelay(nodelay, interval, resend int, nc bool) {
	if nodelay >= 0 {
		cb.nodelay = nodelay
		if nodelay == 0 {
			cb.rxMinrto = rtoMin
		} else {
			cb.rxMinrto = rtoMinNoDelay
		}
	}
	if interval >= 0 {
		if interval > maxInterval {
			interval = maxInterval
		} else if interval < minInterval {
			interval = minInterval
		}
		cb.interval = uint32(interval)
	}
	if resend >= 0 {
		cb.fastresend = resend
	}
	cb.nocwnd = nc
}

// SetFastackConserve toggles the FASTACK_CONSERVE mode (§3.2, §9): when
// enabled, the fastack bump during parse_fastack and the tracked
// (maxack, ts) pair during ACK processing both require timestamp ordering
// before they apply. Default off, matching upstream's build-time default.
func (cb *ControlBlock) SetFastackConserve(on bool) { cb.fastackConserve = on }

// SetDeadLink sets the number of (re)transmissions a single segment may
// reach before [ControlBlock.State] latches to the dead-link sentinel.
// n == 0 disables dead-link detection entirely. See §4.6/§7.
func (cb *ControlBlock) SetDeadLink(n int) {
	if n < 0 {
		n = 0
	}
	cb.deadLink = uint32(n)
}

// SetStream enables stream mode: outgoing data may merge into the tail
// segment of snd_queue instead of always starting a new fragment group.
// See §4.2.
func (cb *ControlBlock) SetStream(on bool) { cb.stream = on }

// WaitSnd returns the number of segments not yet acknowledged: those
// in-flight in snd_buf plus those still queued in snd_queue. See §4.8.
func (cb *ControlBlock) WaitSnd() int { return cb.sndBuf.Len() + cb.sndQueue.Len() }

// rtomin returns the extra grace period folded into a first-send resendts
// (§4.6 step 6): rx_rto/8 when nodelay is off, 0 when nodelay is on (the
// low-latency profile already runs a floored minrto and doesn't need it).
func (cb *ControlBlock) rtomin() uint32 {
	if cb.nodelay != 0 {
		return 0
	}
	return cb.rxRto / 8
}

// freeRcvWnd returns the receive window currently advertisable to the
// remote: rcv_wnd minus what's already queued for delivery.
func (cb *ControlBlock) freeRcvWnd() Window {
	n := Window(cb.rcvQueue.Len())
	if n < cb.rcvWnd {
		return cb.rcvWnd - n
	}
	return 0
}
