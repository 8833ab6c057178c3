package kcp

// updateRTT folds one fresh RTT sample (ms) into the smoothed estimators and
// recomputes rx_rto, following the Jacobson/Karels update from §4.5 exactly:
// a first sample seeds srtt/rttval directly, later samples apply the
// standard EWMA with the upstream's integer-arithmetic rounding (division by
// 8 and 4 truncate, matching the reference's shifts). rto is then
// srtt + max(interval, 4*rttval), clamped to [rx_minrto, rtoMax].
func (cb *ControlBlock) updateRTT(rtt int32) {
	if rtt < 0 {
		return
	}
	if cb.rxSrtt == 0 {
		cb.rxSrtt = uint32(rtt)
		cb.rxRttval = uint32(rtt) / 2
	} else {
		delta := rtt - int32(cb.rxSrtt)
		if delta < 0 {
			delta = -delta
		}
		cb.rxRttval = (3*cb.rxRttval + uint32(delta)) / 4
		newSrtt := (7*int64(cb.rxSrtt) + int64(rtt)) / 8
		if newSrtt < 1 {
			newSrtt = 1
		}
		cb.rxSrtt = uint32(newSrtt)
	}

	rto := cb.rxSrtt + max32(cb.interval, 4*cb.rxRttval)
	if rto < cb.rxMinrto {
		rto = cb.rxMinrto
	}
	if rto > rtoMax {
		rto = rtoMax
	}
	cb.rxRto = rto
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
