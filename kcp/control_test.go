package kcp

import (
	"io"
	"log/slog"
	"testing"
)

func TestNewControlBlockDefaults(t *testing.T) {
	cb := NewControlBlock(42)
	if cb.Conv() != 42 {
		t.Fatalf("Conv() = %d, want 42", cb.Conv())
	}
	if cb.MTU() != DefaultMTU {
		t.Fatalf("MTU() = %d, want %d", cb.MTU(), DefaultMTU)
	}
	if cb.MSS() != DefaultMTU-Overhead {
		t.Fatalf("MSS() = %d, want %d", cb.MSS(), DefaultMTU-Overhead)
	}
	if cb.State() != 0 || cb.IsDead() {
		t.Fatal("freshly created control block reports dead")
	}
	if cb.WaitSnd() != 0 {
		t.Fatalf("WaitSnd() = %d, want 0", cb.WaitSnd())
	}
}

func TestSetMTUTooSmallRejected(t *testing.T) {
	cb := NewControlBlock(1)
	if err := cb.SetMTU(10); err != errMTUTooSmall {
		t.Fatalf("SetMTU(10) = %v, want errMTUTooSmall", err)
	}
	if cb.MTU() != DefaultMTU {
		t.Fatalf("MTU() changed after rejected SetMTU: %d", cb.MTU())
	}
}

func TestSetMTURecomputesMSS(t *testing.T) {
	cb := NewControlBlock(1)
	if err := cb.SetMTU(600); err != nil {
		t.Fatalf("SetMTU(600): %v", err)
	}
	if cb.MSS() != 600-Overhead {
		t.Fatalf("MSS() = %d, want %d", cb.MSS(), 600-Overhead)
	}
}

func TestSetWndSizeRaisesRcvToMinimum(t *testing.T) {
	cb := NewControlBlock(1)
	cb.SetWndSize(16, 4)
	if cb.sndWnd != 16 {
		t.Fatalf("sndWnd = %d, want 16", cb.sndWnd)
	}
	if cb.rcvWnd != DefaultRcvWnd {
		t.Fatalf("rcvWnd = %d, want %d (raised to minimum)", cb.rcvWnd, DefaultRcvWnd)
	}
}

func TestSetNodelayNegativeLeavesFieldsUnchanged(t *testing.T) {
	cb := NewControlBlock(1)
	cb.SetNodelay(1, 20, 2, true)
	cb.SetNodelay(-1, -1, -1, false)
	if cb.nodelay != 1 || cb.interval != 20 || cb.fastresend != 2 {
		t.Fatalf("negative args mutated fields: nodelay=%d interval=%d fastresend=%d",
			cb.nodelay, cb.interval, cb.fastresend)
	}
	// nc is a plain bool, always applied.
	if cb.nocwnd != false {
		t.Fatalf("nocwnd = %v, want false", cb.nocwnd)
	}
}

func TestSetNodelayClampsInterval(t *testing.T) {
	cb := NewControlBlock(1)
	cb.SetNodelay(0, 1, 0, false)
	if cb.interval != minInterval {
		t.Fatalf("interval = %d, want clamped to %d", cb.interval, minInterval)
	}
	cb.SetNodelay(0, 100000, 0, false)
	if cb.interval != maxInterval {
		t.Fatalf("interval = %d, want clamped to %d", cb.interval, maxInterval)
	}
}

func TestResetPreservesOutputAndLogger(t *testing.T) {
	cb := NewControlBlock(1)
	called := false
	cb.SetOutput(func(buf []byte) error { called = true; return nil })
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	cb.SetLogger(lg, LogMaskAll)
	cb.Reset(2)
	if cb.Conv() != 2 {
		t.Fatalf("Conv() after Reset = %d, want 2", cb.Conv())
	}
	if cb.logger.log != lg || cb.logger.mask != LogMaskAll {
		t.Fatal("logger lost across Reset")
	}
	if err := cb.SetMTU(DefaultMTU); err != nil {
		t.Fatalf("SetMTU: %v", err)
	}
	cb.sndQueue.PushBack(Segment{Cmd: CmdPush, Data: []byte("x")})
	cb.Update(0)
	if !called {
		t.Fatal("output callback lost across Reset")
	}
}

func TestReleaseDrainsQueues(t *testing.T) {
	cb := NewControlBlock(1)
	cb.sndQueue.PushBack(Segment{Cmd: CmdPush})
	cb.rcvQueue.PushBack(Segment{Cmd: CmdPush})
	cb.acklist.Push(1, 1)
	cb.Release()
	if cb.sndQueue.Len() != 0 || cb.rcvQueue.Len() != 0 || cb.acklist.Len() != 0 {
		t.Fatal("Release left non-empty queues")
	}
}
