package kcp

import "log/slog"

// Peeksize reports the byte length of the next complete message ready in
// rcv_queue without removing it, or an error if none is ready yet (§4.3):
// errNoMessage if rcv_queue is empty, errIncompleteHead if the head fragment
// group hasn't fully arrived (a later frg=0 fragment is still missing from
// the contiguous run at the front of rcv_queue).
func (cb *ControlBlock) Peeksize() (int, error) {
	head := cb.rcvQueue.Front()
	if head == nil {
		return 0, errNoMessage
	}
	if head.Frg == 0 {
		return len(head.Data), nil
	}
	if cb.rcvQueue.Len() < int(head.Frg)+1 {
		return 0, errIncompleteHead
	}
	size := 0
	for i := 0; i <= int(head.Frg); i++ {
		seg := cb.rcvQueue.At(i)
		size += len(seg.Data)
		if seg.Frg == 0 {
			break
		}
	}
	return size, nil
}

// Recv copies the next complete message from rcv_queue into buf, returning
// the number of bytes written. See §4.3: returns errNoMessage /
// errIncompleteHead as Peeksize does, or errBufferTooSmall if buf is shorter
// than the pending message (the message is left queued, untouched, so a
// caller can retry with a larger buffer).
//
// Once a full message has been drained, Recv refills rcv_queue from rcv_buf
// (segments with sn == rcv_nxt, popped in order) and, if the receive queue
// just crossed back under its window after being full, schedules an ASK_TELL
// probe so the remote learns the window opened up again without waiting for
// its own probe timer.
func (cb *ControlBlock) Recv(buf []byte) (int, error) {
	size, err := cb.Peeksize()
	if err != nil {
		return 0, err
	}
	if size > len(buf) {
		return 0, errBufferTooSmall
	}

	wasFull := Window(cb.rcvQueue.Len()) >= cb.rcvWnd

	n := 0
	for {
		seg, ok := cb.rcvQueue.PopFront()
		if !ok {
			break
		}
		n += copy(buf[n:], seg.Data)
		if seg.Frg == 0 {
			break
		}
	}

	cb.refillRcvQueue()

	if wasFull && Window(cb.rcvQueue.Len()) < cb.rcvWnd {
		cb.probe |= probeAskTell
	}

	cb.trace(LogRecv, "recv", slog.Int("bytes", n))
	return n, nil
}

// refillRcvQueue moves contiguous, in-order segments from rcv_buf into
// rcv_queue: rcv_buf's head must carry sn == rcv_nxt and rcv_queue must have
// room, matching §4.3's move_rcvbuf_to_rcvqueue step.
func (cb *ControlBlock) refillRcvQueue() {
	for {
		head := cb.rcvBuf.Front()
		if head == nil {
			break
		}
		if Seq(head.Sn) != cb.rcvNxt {
			break
		}
		if Window(cb.rcvQueue.Len()) >= cb.rcvWnd {
			break
		}
		seg, _ := cb.rcvBuf.PopFront()
		cb.rcvQueue.PushBack(seg)
		cb.rcvNxt = cb.rcvNxt.Add(1)
	}
}
