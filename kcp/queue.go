package kcp

import "github.com/arqcore/kcp/internal"

// segFIFO is a FIFO queue of segments, used for snd_queue (fragments
// awaiting sn assignment) and rcv_queue (in-order segments awaiting
// delivery). It is a growable slice with a head offset rather than an
// intrusive linked list, the same tradeoff the teacher makes in
// tcp/txqueue.go's sentlist: appends are O(1) amortized, and the head
// offset is compacted back to zero once it grows past half the backing
// array so the slice doesn't grow unboundedly under sustained traffic.
type segFIFO struct {
	buf  []Segment
	head int
}

func (q *segFIFO) Len() int { return len(q.buf) - q.head }

func (q *segFIFO) PushBack(seg Segment) {
	q.buf = append(q.buf, seg)
}

// Front returns a pointer to the head element, or nil if empty. The pointer
// is valid until the next PushBack/PopFront/compact.
func (q *segFIFO) Front() *Segment {
	if q.Len() == 0 {
		return nil
	}
	return &q.buf[q.head]
}

// Back returns a pointer to the tail element, or nil if empty.
func (q *segFIFO) Back() *Segment {
	if q.Len() == 0 {
		return nil
	}
	return &q.buf[len(q.buf)-1]
}

// At returns a pointer to the i'th element counting from the head, or nil
// if out of range.
func (q *segFIFO) At(i int) *Segment {
	if i < 0 || i >= q.Len() {
		return nil
	}
	return &q.buf[q.head+i]
}

func (q *segFIFO) PopFront() (Segment, bool) {
	if q.Len() == 0 {
		return Segment{}, false
	}
	seg := q.buf[q.head]
	q.buf[q.head] = Segment{}
	q.head++
	q.compact()
	return seg, true
}

func (q *segFIFO) compact() {
	if q.head == 0 {
		return
	}
	if q.head == len(q.buf) {
		q.buf = q.buf[:0]
		q.head = 0
		return
	}
	if q.head*2 > len(q.buf) {
		n := copy(q.buf, q.buf[q.head:])
		q.buf = q.buf[:n]
		q.head = 0
	}
}

func (q *segFIFO) Reset() {
	q.buf = q.buf[:0]
	q.head = 0
}

// sendEntry is a snd_buf element: a segment in flight, plus the
// retransmission bookkeeping the upstream protocol keeps per segment
// (resend deadline, current rto, duplicate-ack counter, transmit count).
type sendEntry struct {
	seg      Segment
	resendts uint32 // absolute ms deadline for next (re)transmission
	rto      uint32
	fastack  uint32
	xmit     uint32
}

// sendWindow holds snd_buf: segments in flight, ordered ascending by sn.
// Segments are always appended in increasing sn order (flush assigns sn at
// promotion time), so the slice is sorted by construction; removal compacts
// in place, mirroring tcp/txqueue.go's sentlist.removeRecvd.
type sendWindow struct {
	entries []sendEntry
}

func (w *sendWindow) Len() int { return len(w.entries) }

func (w *sendWindow) Push(e sendEntry) {
	w.entries = append(w.entries, e)
}

func (w *sendWindow) At(i int) *sendEntry { return &w.entries[i] }

// First returns the oldest (lowest-sn) entry, or nil if empty.
func (w *sendWindow) First() *sendEntry {
	if len(w.entries) == 0 {
		return nil
	}
	return &w.entries[0]
}

// DropBelow removes every entry with sn < una (cumulative ACK progress).
// Entries are sorted ascending so this is a prefix trim.
func (w *sendWindow) DropBelow(una Seq) {
	i := 0
	for i < len(w.entries) && Seq(w.entries[i].seg.Sn).LessThan(una) {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(w.entries, w.entries[i:])
	w.entries = w.entries[:n]
}

// RemoveSn removes the single entry with the given sn (selective ACK),
// reporting whether one was found.
func (w *sendWindow) RemoveSn(sn Seq) bool {
	for i := range w.entries {
		if Seq(w.entries[i].seg.Sn) == sn {
			w.entries = append(w.entries[:i], w.entries[i+1:]...)
			return true
		}
		if sn.LessThan(Seq(w.entries[i].seg.Sn)) {
			break // sorted ascending, sn can't appear further on.
		}
	}
	return false
}

func (w *sendWindow) Reset() { w.entries = w.entries[:0] }

// recvWindow holds rcv_buf: segments received out of order, ordered
// ascending by sn with duplicates rejected. Inserts walk from the tail
// (§4.4 parse_data), matching the common case that new arrivals are close
// to the newest sn already buffered.
type recvWindow struct {
	entries []Segment
}

func (w *recvWindow) Len() int { return len(w.entries) }

// Insert inserts seg in sorted position, rejecting an exact sn duplicate.
// Returns false (and does not insert) if seg.Sn is already present.
func (w *recvWindow) Insert(seg Segment) bool {
	i := len(w.entries)
	for i > 0 {
		prev := Seq(w.entries[i-1].Sn)
		if Seq(seg.Sn) == prev {
			return false // duplicate.
		}
		if prev.LessThan(Seq(seg.Sn)) {
			break
		}
		i--
	}
	w.entries = append(w.entries, Segment{})
	copy(w.entries[i+1:], w.entries[i:])
	w.entries[i] = seg
	return true
}

func (w *recvWindow) Front() *Segment {
	if len(w.entries) == 0 {
		return nil
	}
	return &w.entries[0]
}

// PopFront removes and returns the head element.
func (w *recvWindow) PopFront() (Segment, bool) {
	if len(w.entries) == 0 {
		return Segment{}, false
	}
	seg := w.entries[0]
	w.entries = append(w.entries[:0], w.entries[1:]...)
	return seg, true
}

// ackRecord is a pending (sn, ts) pair awaiting emission as an ACK segment.
type ackRecord struct {
	sn Seq
	ts uint32
}

// ackList accumulates ackRecords between flushes. Its backing array is
// never shrunk across the control block's lifetime (only reset to length
// zero), so repeated bursts of acks settle into a steady-state capacity
// instead of reallocating every flush cycle; Go's append already grows the
// backing array geometrically, which satisfies the power-of-two growth the
// upstream ACK list maintains explicitly.
type ackList struct {
	recs []ackRecord
}

func (a *ackList) Push(sn Seq, ts uint32) {
	a.recs = append(a.recs, ackRecord{sn: sn, ts: ts})
}

func (a *ackList) Len() int { return len(a.recs) }

func (a *ackList) Reset() { a.recs = a.recs[:0] }

// reuse prepares the queues for a fresh conv, matching internal.SliceReuse's
// "reuse capacity, reset length" behavior rather than discarding allocations.
func (q *segFIFO) reuse() { internal.SliceReuse(&q.buf, 0); q.head = 0 }
