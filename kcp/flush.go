package kcp

import "log/slog"

// Update advances the control block's clock to now (ms, caller-chosen epoch,
// monotonic within a single ControlBlock's lifetime) and flushes if the
// configured interval has elapsed or this is the first call. See §4.7.
//
// A backwards jump in now (clock step, NTP correction) is treated as if no
// time had passed rather than propagated into resendts/ts_flush math, which
// would otherwise wrap every outstanding deadline into the past and trigger
// a retransmit storm.
func (cb *ControlBlock) Update(now uint32) {
	cb.current = now

	if !cb.updated {
		cb.updated = true
		cb.tsFlush = cb.current
	}

	diff := timediff32(cb.current, cb.tsFlush)
	if diff >= int32(maxInterval*10) || diff < -int32(maxInterval*10) {
		cb.tsFlush = cb.current
		diff = 0
	}

	if diff >= 0 {
		cb.tsFlush += cb.interval
		if timediff32(cb.current, cb.tsFlush) >= 0 {
			cb.tsFlush = cb.current + cb.interval
		}
		cb.Flush()
	}
}

// Check reports the absolute timestamp (same epoch as Update's now) at which
// Update should next be called, given no further Send/Input activity: the
// earlier of the next scheduled flush and the earliest snd_buf resend
// deadline. A caller driving its own event loop uses this to size a timer
// instead of polling Update on a fixed tick. See §4.7.
func (cb *ControlBlock) Check(now uint32) uint32 {
	if !cb.updated {
		return now
	}

	tsFlush := cb.tsFlush
	if timediff32(now, tsFlush) >= int32(maxInterval*10) || timediff32(now, tsFlush) < -int32(maxInterval*10) {
		tsFlush = now
	}
	if timediff32(now, tsFlush) >= 0 {
		return now
	}
	next := tsFlush

	for i := 0; i < cb.sndBuf.Len(); i++ {
		e := cb.sndBuf.At(i)
		diff := timediff32(e.resendts, now)
		if diff <= 0 {
			return now
		}
		if timediff32(e.resendts, next) < 0 {
			next = e.resendts
		}
	}
	return next
}

// Flush performs one emission cycle per §4.6, in order: (1) drain acklist
// into ACK segments, (2) probe-window bookkeeping and WASK scheduling,
// (3) emit any pending WASK/WINS, (4) promote snd_queue into snd_buf under
// the effective congestion/remote/local window, (5) walk snd_buf emitting
// first sends, timeouts and fast retransmits, (6) flush any partially
// filled datagram still in the scratch buffer, (7) post-loop ssthresh/cwnd
// adjustments for whichever of fast-retransmit or timeout occurred.
//
// Flush is a no-op if no output callback has been registered; callers that
// never call [ControlBlock.SetOutput] can still drive Send/Recv/Input for
// local queue bookkeeping, though nothing will ever reach the wire.
func (cb *ControlBlock) Flush() {
	if !cb.updated || cb.output == nil {
		return
	}

	batch := cb.scratch[:0]
	emit := func(seg *Segment) {
		need := seg.Len()
		if len(batch)+need > cb.mtu {
			cb.flushBatch(batch)
			batch = batch[:0]
		}
		batch = seg.Encode(batch)
	}

	wnd := cb.freeRcvWnd()

	// Step 1: ACKs.
	for i := 0; i < cb.acklist.Len(); i++ {
		rec := cb.acklist.recs[i]
		seg := Segment{Conv: cb.conv, Cmd: CmdAck, Wnd: uint16(wnd), Sn: uint32(rec.sn), Ts: rec.ts, Una: uint32(cb.rcvNxt)}
		cb.trace(LogOutAck, "ack", segAttrs(&seg)...)
		emit(&seg)
	}
	cb.acklist.Reset()

	// Step 2: probe scheduling. If the remote's last-known window is zero,
	// arm (or back off) a WASK probe timer; §4.6.
	if cb.rmtWnd == 0 {
		if cb.probeWait == 0 {
			cb.probeWait = probeInit
			cb.tsProbe = cb.current + cb.probeWait
		} else if timediff32(cb.current, cb.tsProbe) >= 0 {
			cb.probeWait += cb.probeWait / 2
			if cb.probeWait > probeLimit {
				cb.probeWait = probeLimit
			}
			cb.tsProbe = cb.current + cb.probeWait
			cb.probe |= probeAskSend
		}
	} else {
		cb.probeWait = 0
		cb.tsProbe = 0
	}

	// Step 3: WASK / WINS.
	if cb.probe&probeAskSend != 0 {
		seg := Segment{Conv: cb.conv, Cmd: CmdWask, Wnd: uint16(wnd), Una: uint32(cb.rcvNxt)}
		cb.trace(LogOutProbe, "wask", segAttrs(&seg)...)
		emit(&seg)
	}
	if cb.probe&probeAskTell != 0 {
		seg := Segment{Conv: cb.conv, Cmd: CmdWins, Wnd: uint16(wnd), Una: uint32(cb.rcvNxt)}
		cb.trace(LogOutWins, "wins", segAttrs(&seg)...)
		emit(&seg)
	}
	cb.probe = 0

	// Step 4: promote snd_queue -> snd_buf under min(snd_wnd, rmt_wnd, cwnd),
	// plus the nocwnd override binding only rmt_wnd.
	effWnd := cb.sndWnd
	if effWnd > cb.rmtWnd {
		effWnd = cb.rmtWnd
	}
	if !cb.nocwnd && effWnd > cb.cwnd {
		effWnd = cb.cwnd
	}
	for uint32(cb.sndNxt-cb.sndUna) < uint32(effWnd) {
		seg, ok := cb.sndQueue.PopFront()
		if !ok {
			break
		}
		seg.Conv = cb.conv
		seg.Sn = uint32(cb.sndNxt)
		seg.Una = uint32(cb.rcvNxt)
		cb.sndBuf.Push(sendEntry{seg: seg, resendts: cb.current, rto: cb.rxRto})
		cb.sndNxt = cb.sndNxt.Add(1)
	}

	// Step 5: walk snd_buf.
	resent := uint32(cb.fastresend)
	if resent == 0 {
		resent = ^uint32(0)
	}
	var change uint32
	var lost bool
	for i := 0; i < cb.sndBuf.Len(); i++ {
		e := cb.sndBuf.At(i)
		needSend := false
		switch {
		case e.xmit == 0:
			needSend = true
			e.rto = cb.rxRto
			e.resendts = cb.current + e.rto + cb.rtomin()
		case timediff32(cb.current, e.resendts) >= 0:
			needSend = true
			if cb.nodelay == 0 {
				e.rto += max32(e.rto, cb.rxRto) // additive RTO backoff.
			} else {
				inc := e.rto
				if cb.nodelay != 2 {
					inc = e.rto / 2
				}
				e.rto += inc
			}
			e.resendts = cb.current + e.rto
			lost = true
		case e.fastack >= resent && (cb.fastlimit <= 0 || e.xmit <= uint32(cb.fastlimit)):
			needSend = true
			e.fastack = 0
			e.rto = cb.rxRto
			e.resendts = cb.current + e.rto
			change++
		}

		if !needSend {
			continue
		}

		e.xmit++
		e.seg.Ts = cb.current
		e.seg.Wnd = uint16(wnd)
		e.seg.Una = uint32(cb.rcvNxt)
		cb.xmit++
		if cb.metrics != nil {
			cb.metrics.ObserveXmit()
		}

		if cb.deadLink > 0 && e.xmit >= cb.deadLink {
			cb.state = deadLinkState
		}

		cb.trace(LogOutData, "push", segAttrs(&e.seg)...)
		emit(&e.seg)
	}

	// Step 6: flush trailing partial datagram.
	cb.flushBatch(batch)
	cb.scratch = batch[:0]

	// Step 7: post-loop ssthresh/cwnd adjustment.
	if change > 0 {
		inflight := uint32(cb.sndNxt - cb.sndUna)
		cb.ssthresh = max32(inflight/2, threshMin)
		cb.cwnd = Window(cb.ssthresh) + Window(change)
		cb.incr = uint32(cb.cwnd) * uint32(cb.mss)
	}
	if lost {
		cb.ssthresh = max32(uint32(cb.cwnd)/2, threshMin)
		cb.cwnd = 1
		cb.incr = uint32(cb.mss)
	}
	if cb.cwnd < 1 {
		cb.cwnd = 1
		cb.incr = uint32(cb.mss)
	}
}

func (cb *ControlBlock) flushBatch(batch []byte) {
	if len(batch) == 0 || cb.output == nil {
		return
	}
	cb.trace(LogOutput, "output", slog.Int("bytes", len(batch)))
	if err := cb.output(batch); err != nil {
		cb.logerr("output failed", slog.String("err", err.Error()))
	}
}
