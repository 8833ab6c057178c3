package kcp

import "testing"

func TestSeqLessThanWraparound(t *testing.T) {
	cases := []struct {
		a, b Seq
		want bool
	}{
		{0, 1, true},
		{1, 0, false},
		{0, 0xFFFFFFFF, false}, // 0 is "after" the wrap point, treated as later.
		{0xFFFFFFFF, 0, true},
		{100, 100, false},
	}
	for _, c := range cases {
		if got := c.a.LessThan(c.b); got != c.want {
			t.Errorf("Seq(%d).LessThan(%d) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestSeqLessThanEq(t *testing.T) {
	if !Seq(5).LessThanEq(5) {
		t.Error("Seq(5).LessThanEq(5) = false, want true")
	}
	if Seq(6).LessThanEq(5) {
		t.Error("Seq(6).LessThanEq(5) = true, want false")
	}
}

func TestSeqAddWraps(t *testing.T) {
	s := Seq(0xFFFFFFFE)
	if got := s.Add(3); got != 1 {
		t.Errorf("Add wraparound: got %d, want 1", got)
	}
}
