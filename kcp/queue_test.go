package kcp

import "testing"

func TestSegFIFOPushPopOrder(t *testing.T) {
	var q segFIFO
	for i := 0; i < 5; i++ {
		q.PushBack(Segment{Sn: uint32(i)})
	}
	if q.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", q.Len())
	}
	for i := 0; i < 5; i++ {
		seg, ok := q.PopFront()
		if !ok || seg.Sn != uint32(i) {
			t.Fatalf("PopFront() = (%+v, %v), want sn=%d", seg, ok, i)
		}
	}
	if _, ok := q.PopFront(); ok {
		t.Fatal("PopFront() on empty queue returned ok=true")
	}
}

func TestSegFIFOCompactsAfterDrain(t *testing.T) {
	var q segFIFO
	for i := 0; i < 10; i++ {
		q.PushBack(Segment{Sn: uint32(i)})
	}
	for i := 0; i < 6; i++ {
		q.PopFront()
	}
	if q.head != 0 {
		t.Fatalf("head = %d after compaction threshold crossed, want 0", q.head)
	}
	if q.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", q.Len())
	}
}

func TestSendWindowDropBelow(t *testing.T) {
	var w sendWindow
	for i := 0; i < 5; i++ {
		w.Push(sendEntry{seg: Segment{Sn: uint32(i)}})
	}
	w.DropBelow(3)
	if w.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", w.Len())
	}
	if w.First().seg.Sn != 3 {
		t.Fatalf("First().seg.Sn = %d, want 3", w.First().seg.Sn)
	}
}

func TestSendWindowRemoveSn(t *testing.T) {
	var w sendWindow
	for i := 0; i < 5; i++ {
		w.Push(sendEntry{seg: Segment{Sn: uint32(i)}})
	}
	if !w.RemoveSn(2) {
		t.Fatal("RemoveSn(2) = false, want true")
	}
	if w.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", w.Len())
	}
	for i := 0; i < w.Len(); i++ {
		if w.At(i).seg.Sn == 2 {
			t.Fatal("sn=2 still present after RemoveSn")
		}
	}
	if w.RemoveSn(2) {
		t.Fatal("RemoveSn(2) on absent sn = true, want false")
	}
}

func TestRecvWindowInsertSortsAndRejectsDuplicates(t *testing.T) {
	var w recvWindow
	order := []uint32{5, 1, 3, 2, 4}
	for _, sn := range order {
		if !w.Insert(Segment{Sn: sn}) {
			t.Fatalf("Insert(%d) = false, want true", sn)
		}
	}
	if w.Insert(Segment{Sn: 3}) {
		t.Fatal("Insert(3) duplicate = true, want false")
	}
	for i := 0; i < w.Len(); i++ {
		if w.entries[i].Sn != uint32(i+1) {
			t.Fatalf("entries[%d].Sn = %d, want %d", i, w.entries[i].Sn, i+1)
		}
	}
}

func TestAckListPushReset(t *testing.T) {
	var a ackList
	a.Push(1, 100)
	a.Push(2, 200)
	if a.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", a.Len())
	}
	a.Reset()
	if a.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", a.Len())
	}
}
