package kcp

import "testing"

func TestUpdateRTTFirstSampleSeeds(t *testing.T) {
	cb := NewControlBlock(1)
	cb.updateRTT(100)
	if cb.rxSrtt != 100 {
		t.Fatalf("rxSrtt = %d, want 100", cb.rxSrtt)
	}
	if cb.rxRttval != 50 {
		t.Fatalf("rxRttval = %d, want 50", cb.rxRttval)
	}
}

func TestUpdateRTTSubsequentSampleSmooths(t *testing.T) {
	cb := NewControlBlock(1)
	cb.updateRTT(100)
	cb.updateRTT(100)
	if cb.rxSrtt != 100 {
		t.Fatalf("rxSrtt after stable samples = %d, want 100", cb.rxSrtt)
	}
	if cb.rxRttval != 37 {
		t.Fatalf("rxRttval after stable samples = %d, want 37 (3*50+0)/4", cb.rxRttval)
	}
}

func TestUpdateRTTNegativeSampleIgnored(t *testing.T) {
	cb := NewControlBlock(1)
	cb.updateRTT(100)
	before := cb.rxSrtt
	cb.updateRTT(-1)
	if cb.rxSrtt != before {
		t.Fatalf("negative rtt sample mutated rxSrtt: %d -> %d", before, cb.rxSrtt)
	}
}

func TestUpdateRTTClampsToMinRTO(t *testing.T) {
	cb := NewControlBlock(1)
	cb.SetNodelay(1, 10, 0, false) // rxMinrto = rtoMinNoDelay (30)
	cb.updateRTT(1)
	if cb.rxRto < cb.rxMinrto {
		t.Fatalf("rxRto = %d, below rxMinrto = %d", cb.rxRto, cb.rxMinrto)
	}
}

func TestUpdateRTTClampsToMaxRTO(t *testing.T) {
	cb := NewControlBlock(1)
	cb.updateRTT(10_000_000)
	if cb.rxRto != rtoMax {
		t.Fatalf("rxRto = %d, want clamped to %d", cb.rxRto, rtoMax)
	}
}
