package kcp

import "log/slog"

// Send accepts an application message into snd_queue, splitting it into
// mss-sized fragments per §4.2. In stream mode (see [ControlBlock.SetStream])
// buf is first appended to the tail fragment of snd_queue, if that fragment
// still has room and hasn't been promoted to snd_buf yet, merging small
// writes the way a byte stream would instead of always starting a new
// fragment group.
//
// Returns errMessageTooLarge if the bytes left after any stream-mode merge
// would need [DefaultRcvWnd] (128) fragments or more (§4.2); returns nil on
// success. On that failure no new fragment is enqueued, but in stream mode
// the bytes already merged into the tail fragment stay queued.
func (cb *ControlBlock) Send(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}

	if cb.stream {
		if tail := cb.sndQueue.Back(); tail != nil {
			room := cb.mss - len(tail.Data)
			if room > 0 {
				n := room
				if n > len(buf) {
					n = len(buf)
				}
				tail.Data = append(tail.Data, buf[:n]...)
				tail.Frg = 0
				buf = buf[n:]
				if len(buf) == 0 {
					return nil
				}
			}
		}
	}

	count := (len(buf) + cb.mss - 1) / cb.mss
	if count == 0 {
		count = 1
	}
	if count >= int(DefaultRcvWnd) {
		return errMessageTooLarge
	}

	total := len(buf)
	for i := 0; i < count; i++ {
		n := cb.mss
		if n > len(buf) {
			n = len(buf)
		}
		chunk := buf[:n]
		buf = buf[n:]

		data := make([]byte, len(chunk))
		copy(data, chunk)

		seg := Segment{Cmd: CmdPush, Data: data}
		if cb.stream {
			seg.Frg = 0
		} else {
			seg.Frg = uint8(count - i - 1)
		}
		cb.sndQueue.PushBack(seg)
	}
	cb.trace(LogSend, "send", slog.Int("fragments", count), slog.Int("bytes", total))
	return nil
}
