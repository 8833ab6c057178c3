package kcp

import "log/slog"

// Input feeds one received datagram (possibly several packed segments) into
// the control block: §4.4. Segments are decoded and dispatched one at a
// time, in order. If a segment fails to decode, or is rejected, Input
// returns that error at once: segments before it in the same datagram stay
// applied, the rest of the datagram is discarded, and the end-of-datagram
// fastack and congestion-window updates are skipped.
//
// Input never panics on attacker-controlled input: a conv mismatch or
// unrecognized command rejects the datagram via a [RejectError] without
// touching connection state that a legitimate peer could trip.
func (cb *ControlBlock) Input(data []byte) error {
	if len(data) < Overhead {
		return errShortBuffer
	}

	cb.trace(LogInput, "input", slog.Int("bytes", len(data)))

	prevUna := cb.sndUna
	var maxackSn Seq
	var maxackTs uint32
	hasMaxack := false

	for len(data) > 0 {
		seg, n, err := DecodeSegment(data)
		if err != nil {
			return err
		}
		data = data[n:]

		if seg.Conv != cb.conv {
			return errConvMismatch
		}
		if !seg.Cmd.valid() {
			return errUnknownCmd
		}

		cb.rmtWnd = Window(seg.Wnd)
		cb.parseUna(Seq(seg.Una))
		cb.shrinkBuf()

		switch seg.Cmd {
		case CmdAck:
			cb.trace(LogInAck, "ack", segAttrs(&seg)...)
			if timediff32(cb.current, seg.Ts) >= 0 {
				rtt := timediff32(cb.current, seg.Ts)
				cb.updateRTT(rtt)
				if cb.metrics != nil {
					cb.metrics.ObserveRTT(float64(rtt))
				}
			}
			cb.parseAck(Seq(seg.Sn))
			cb.shrinkBuf()
			if !hasMaxack {
				hasMaxack = true
				maxackSn, maxackTs = Seq(seg.Sn), seg.Ts
			} else if cb.fastackConserve {
				if seg.Ts > maxackTs && maxackSn.LessThan(Seq(seg.Sn)) {
					maxackSn, maxackTs = Seq(seg.Sn), seg.Ts
				}
			} else if maxackSn.LessThan(Seq(seg.Sn)) {
				maxackSn, maxackTs = Seq(seg.Sn), seg.Ts
			}

		case CmdPush:
			cb.trace(LogInData, "push", segAttrs(&seg)...)
			sn := Seq(seg.Sn)
			if cb.rcvNxt.LessThanEq(sn) && sn.LessThan(cb.rcvNxt.Add(uint32(cb.rcvWnd))) {
				cb.acklist.Push(sn, seg.Ts)
				cb.parseData(seg)
			}

		case CmdWask:
			cb.trace(LogInProbe, "wask", segAttrs(&seg)...)
			cb.probe |= probeAskTell

		case CmdWins:
			cb.trace(LogInWins, "wins", segAttrs(&seg)...)
			// rmt_wnd already refreshed above from seg.Wnd.
		}
	}

	if hasMaxack {
		cb.parseFastack(maxackSn, maxackTs)
	}

	if prevUna.LessThan(cb.sndUna) {
		cb.growCongestionWindow()
	}
	if cb.metrics != nil {
		cb.metrics.SetCwnd(float64(cb.cwnd))
		cb.metrics.SetSsthresh(float64(cb.ssthresh))
	}

	return nil
}

// timediff32 returns later-earlier as a signed difference, used for RTT
// samples where later is cb.current and earlier is the echoed send
// timestamp; negative results mean a clock rollback or corrupted timestamp
// and are discarded by the caller rather than fed to the estimator.
func timediff32(later, earlier uint32) int32 { return int32(later - earlier) }

// parseUna drops every snd_buf entry fully acknowledged by a cumulative una
// and advances snd_una to match. See §4.4 parse_una.
func (cb *ControlBlock) parseUna(una Seq) {
	cb.sndBuf.DropBelow(una)
	if cb.sndUna.LessThan(una) {
		cb.sndUna = una
	}
}

// shrinkBuf recomputes snd_una from snd_buf's current head after a removal,
// matching upstream's ikcp_shrink_buf: snd_una tracks the lowest
// still-in-flight sn, or snd_nxt if snd_buf is empty.
func (cb *ControlBlock) shrinkBuf() {
	if e := cb.sndBuf.First(); e != nil {
		cb.sndUna = Seq(e.seg.Sn)
	} else {
		cb.sndUna = cb.sndNxt
	}
}

// parseAck removes the single snd_buf entry matching sn (selective
// acknowledgment). It takes no RTT sample; Input does that from the ACK's
// echoed timestamp before calling it. See §4.4 parse_ack.
func (cb *ControlBlock) parseAck(sn Seq) {
	if sn.LessThan(cb.sndUna) || cb.sndNxt.LessThanEq(sn) {
		return // stale or premature ack, outside the in-flight range.
	}
	cb.sndBuf.RemoveSn(sn)
}

// parseFastack bumps the duplicate-ack counter on every snd_buf entry whose
// sn precedes the highest sn acknowledged in this Input batch, unconditionally:
// fastack counts duplicate acks received, and it's flush's fast-retransmit
// branch that caps how many times that's allowed to trigger a resend
// (fastlimit gates e.xmit there, not this counter). See §4.4 parse_fastack
// and §9's FASTACK_CONSERVE note: in conserve mode an entry is only bumped
// when ts is not older than the entry's own send timestamp.
func (cb *ControlBlock) parseFastack(sn Seq, ts uint32) {
	if sn.LessThan(cb.sndUna) || cb.sndNxt.LessThanEq(sn) {
		return
	}
	for i := 0; i < cb.sndBuf.Len(); i++ {
		e := cb.sndBuf.At(i)
		if !Seq(e.seg.Sn).LessThan(sn) {
			break
		}
		if cb.fastackConserve && timediff32(ts, e.seg.Ts) < 0 {
			continue
		}
		e.fastack++
	}
}

// parseData inserts an in-window PUSH segment into rcv_buf (rejecting exact
// sn duplicates) and drains whatever is now contiguous into rcv_queue. See
// §4.4 parse_data.
func (cb *ControlBlock) parseData(seg Segment) {
	sn := Seq(seg.Sn)
	if sn.LessThan(cb.rcvNxt) || !sn.LessThan(cb.rcvNxt.Add(uint32(cb.rcvWnd))) {
		return
	}
	// seg.Data is re-sliced from Input's caller-owned buffer (see
	// DecodeSegment); copy it before it outlives this call.
	data := make([]byte, len(seg.Data))
	copy(data, seg.Data)
	seg.Data = data
	cb.rcvBuf.Insert(seg)
	cb.refillRcvQueue()
}

// growCongestionWindow applies the AIMD update from §4.4 step 5 once per
// Input call in which snd_una advanced (an ACK, or a una field on any
// segment, moved the cumulative acknowledgment point forward): slow start
// below ssthresh, additive congestion avoidance above it, both capped by the
// peer's advertised window.
func (cb *ControlBlock) growCongestionWindow() {
	if cb.nocwnd {
		return
	}
	if cb.cwnd >= cb.rmtWnd {
		return
	}
	mss := uint32(cb.mss)
	if uint32(cb.cwnd) < cb.ssthresh {
		cb.cwnd++
		cb.incr += mss
	} else {
		if cb.incr < mss {
			cb.incr = mss
		}
		cb.incr += (mss*mss)/cb.incr + mss/16
		if (uint32(cb.cwnd)+1)*mss <= cb.incr {
			if mss > 0 {
				cb.cwnd = Window((cb.incr + mss - 1) / mss)
			}
		}
	}
	if cb.cwnd > cb.rmtWnd {
		cb.cwnd = cb.rmtWnd
		cb.incr = uint32(cb.rmtWnd) * mss
	}
}
